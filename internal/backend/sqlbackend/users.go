package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser reads a row of name, passwd, uid, gid, gecos, dir and shell.
func scanUser(row scanner) (types.UserEntry, error) {
	var u types.UserEntry
	var passwd, gecos sql.NullString
	if err := row.Scan(&u.Name, &passwd, &u.UID, &u.GID, &gecos, &u.Dir, &u.Shell); err != nil {
		return types.UserEntry{}, err
	}
	u.Passwd = passwd.String
	u.Gecos = gecos.String

	if err := u.Validate(); err != nil {
		return types.UserEntry{}, fmt.Errorf("invalid user: %w", err)
	}
	return u, nil
}

// NextUser implements [backend.Backend].
func (b *Backend) NextUser(_ context.Context) (u types.UserEntry, err error) {
	cn, err := b.advance(backend.QueryAllUsers)
	if err != nil {
		return types.UserEntry{}, err
	}
	u, err = scanUser(cn.rows)
	if err != nil {
		return types.UserEntry{}, fmt.Errorf("scan error: %w", err)
	}
	return u, nil
}

// UserByName implements [backend.Backend].
func (b *Backend) UserByName(ctx context.Context, name string) (types.UserEntry, error) {
	return b.user(ctx, b.cfg.GetPwnam, name, name)
}

// UserByID implements [backend.Backend].
func (b *Backend) UserByID(ctx context.Context, uid uint32) (types.UserEntry, error) {
	return b.user(ctx, b.cfg.GetPwuid, strconv.FormatUint(uint64(uid), 10), uid)
}

func (b *Backend) user(ctx context.Context, query, key string, arg any) (u types.UserEntry, err error) {
	defer decorate.OnError(&err, "could not get user %q", key)

	db, err := b.db(backend.CategoryUserGroup)
	if err != nil {
		return types.UserEntry{}, err
	}

	u, err = scanUser(db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return types.UserEntry{}, backend.NewNoDataFoundError("users", key)
	}
	if err != nil {
		return types.UserEntry{}, fmt.Errorf("query error: %w", err)
	}
	return u, nil
}
