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

// scanGroup reads a row of name, passwd and gid.
func scanGroup(row scanner) (types.GroupEntry, error) {
	var g types.GroupEntry
	var passwd sql.NullString
	if err := row.Scan(&g.Name, &passwd, &g.GID); err != nil {
		return types.GroupEntry{}, err
	}
	g.Passwd = passwd.String
	return g, nil
}

// withMembers fills the members of g and validates it.
func (b *Backend) withMembers(ctx context.Context, db queryable, g types.GroupEntry) (_ types.GroupEntry, err error) {
	rows, err := db.QueryContext(ctx, b.cfg.GetGroupMembersByGID, g.GID)
	if err != nil {
		return types.GroupEntry{}, fmt.Errorf("members query error: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return types.GroupEntry{}, fmt.Errorf("members scan error: %w", err)
		}
		g.Users = append(g.Users, name)
	}
	if err := rows.Err(); err != nil {
		return types.GroupEntry{}, fmt.Errorf("members query error: %w", err)
	}

	if err := g.Validate(); err != nil {
		return types.GroupEntry{}, fmt.Errorf("invalid group: %w", err)
	}
	return g, nil
}

// NextGroup implements [backend.Backend].
func (b *Backend) NextGroup(ctx context.Context) (g types.GroupEntry, err error) {
	cn, err := b.advance(backend.QueryAllGroups)
	if err != nil {
		return types.GroupEntry{}, err
	}
	g, err = scanGroup(cn.rows)
	if err != nil {
		return types.GroupEntry{}, fmt.Errorf("scan error: %w", err)
	}
	return b.withMembers(ctx, cn.db, g)
}

// GroupByName implements [backend.Backend].
func (b *Backend) GroupByName(ctx context.Context, name string) (types.GroupEntry, error) {
	return b.group(ctx, b.cfg.GetGrnam, name, name)
}

// GroupByID implements [backend.Backend].
func (b *Backend) GroupByID(ctx context.Context, gid uint32) (types.GroupEntry, error) {
	return b.group(ctx, b.cfg.GetGrgid, strconv.FormatUint(uint64(gid), 10), gid)
}

func (b *Backend) group(ctx context.Context, query, key string, arg any) (g types.GroupEntry, err error) {
	defer decorate.OnError(&err, "could not get group %q", key)

	db, err := b.db(backend.CategoryUserGroup)
	if err != nil {
		return types.GroupEntry{}, err
	}

	g, err = scanGroup(db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return types.GroupEntry{}, backend.NewNoDataFoundError("groups", key)
	}
	if err != nil {
		return types.GroupEntry{}, fmt.Errorf("query error: %w", err)
	}
	return b.withMembers(ctx, db, g)
}

// GroupsForUser implements [backend.Backend]. The query receives the user
// name and the GID to skip.
func (b *Backend) GroupsForUser(ctx context.Context, user string, skip uint32) (gids []uint32, err error) {
	defer decorate.OnError(&err, "could not get groups of %q", user)

	db, err := b.db(backend.CategoryUserGroup)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, b.cfg.GroupsDyn, user, skip)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var gid uint32
		if err := rows.Scan(&gid); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if gid == skip {
			continue
		}
		gids = append(gids, gid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return gids, nil
}
