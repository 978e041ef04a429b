package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// scanShadow reads a row of name, passwd, lastchange, min, max, warn, inact,
// expire and flag. NULL numbers are unset.
func scanShadow(row scanner) (types.ShadowEntry, error) {
	var s types.ShadowEntry
	var passwd sql.NullString
	var nums [6]sql.NullInt64
	var flag sql.NullInt64
	if err := row.Scan(&s.Name, &passwd, &nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &flag); err != nil {
		return types.ShadowEntry{}, err
	}

	s.Passwd = passwd.String
	for i, dst := range []*int64{&s.LastPwdChange, &s.MinPwdAge, &s.MaxPwdAge, &s.PwdWarnPeriod, &s.PwdInactivity, &s.ExpirationDate} {
		*dst = -1
		if nums[i].Valid {
			*dst = nums[i].Int64
		}
	}
	if flag.Valid && flag.Int64 > 0 {
		s.Flag = uint64(flag.Int64)
	}

	if err := s.Validate(); err != nil {
		return types.ShadowEntry{}, fmt.Errorf("invalid shadow entry: %w", err)
	}
	return s, nil
}

// NextShadow implements [backend.Backend].
func (b *Backend) NextShadow(_ context.Context) (s types.ShadowEntry, err error) {
	cn, err := b.advance(backend.QueryAllShadow)
	if err != nil {
		return types.ShadowEntry{}, err
	}
	s, err = scanShadow(cn.rows)
	if err != nil {
		return types.ShadowEntry{}, fmt.Errorf("scan error: %w", err)
	}
	return s, nil
}

// ShadowByName implements [backend.Backend].
func (b *Backend) ShadowByName(ctx context.Context, name string) (s types.ShadowEntry, err error) {
	defer decorate.OnError(&err, "could not get shadow entry %q", name)

	db, err := b.db(backend.CategoryShadow)
	if err != nil {
		return types.ShadowEntry{}, err
	}

	s, err = scanShadow(db.QueryRowContext(ctx, b.cfg.Shadow.ByName, name))
	if errors.Is(err, sql.ErrNoRows) {
		return types.ShadowEntry{}, backend.NewNoDataFoundError("shadow", name)
	}
	if err != nil {
		return types.ShadowEntry{}, fmt.Errorf("query error: %w", err)
	}
	return s, nil
}
