package nss

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// SetGrent starts an enumeration of all groups, superseding any active one.
func (m *Module) SetGrent(ctx context.Context) (status Status) {
	defer m.end(ctx, "setgrent", time.Now(), &status)
	s := m.lock()
	defer m.unlock()

	return groupFamily.begin(ctx, s)
}

// EndGrent ends the groups enumeration and closes the user and group connection.
func (m *Module) EndGrent(ctx context.Context) (status Status) {
	defer m.end(ctx, "endgrent", time.Now(), &status)
	s := m.lock()
	defer m.unlock()

	return groupFamily.end(ctx, s)
}

// GetGrent packs the next group of the enumeration into buf. The enumeration
// is started if SetGrent was not called.
func (m *Module) GetGrent(ctx context.Context, buf []byte) (res Result[GroupRecord]) {
	defer m.end(ctx, "getgrent_r", time.Now(), &res.Status)
	s := m.lock()
	defer m.unlock()

	return groupFamily.nextRecord(ctx, s, buf)
}

// GetGrnam packs the group named name into buf.
func (m *Module) GetGrnam(ctx context.Context, name string, buf []byte) (res Result[GroupRecord]) {
	defer m.end(ctx, "getgrnam_r", time.Now(), &res.Status)
	if name == "" {
		return failure[GroupRecord](backend.NewNoDataFoundError("groups", name))
	}
	s := m.lock()
	defer m.unlock()

	return groupFamily.lookup(ctx, s, buf, func(ctx context.Context) (types.GroupEntry, error) {
		return s.backend.GroupByName(ctx, name)
	})
}

// GetGrgid packs the group with the given GID into buf.
func (m *Module) GetGrgid(ctx context.Context, gid uint32, buf []byte) (res Result[GroupRecord]) {
	defer m.end(ctx, "getgrgid_r", time.Now(), &res.Status)
	s := m.lock()
	defer m.unlock()

	return groupFamily.lookup(ctx, s, buf, func(ctx context.Context) (types.GroupEntry, error) {
		return s.backend.GroupByID(ctx, gid)
	})
}

// InitGroupsDyn appends to groups the GIDs of the groups user is a member of.
//
// The primary group and the GIDs already in groups are skipped, and groups
// never grows beyond limit entries when limit is positive. The status is
// StatusSuccess when at least one GID was added.
func (m *Module) InitGroupsDyn(ctx context.Context, user string, group uint32, groups []uint32, limit int) (res Membership) {
	defer m.end(ctx, "initgroups_dyn", time.Now(), &res.Status)
	res.Groups = groups
	s := m.lock()
	defer m.unlock()

	var gids []uint32
	err := s.withCategory(ctx, backend.CategoryUserGroup, func() (err error) {
		gids, err = s.backend.GroupsForUser(ctx, user, group)
		return err
	})
	if err != nil && !errors.Is(err, backend.NoDataFoundError{}) {
		res.Status, res.Errno = classify(err)
		return res
	}

	for _, gid := range gids {
		if limit > 0 && len(res.Groups) >= limit {
			break
		}
		if gid == group || slices.Contains(res.Groups, gid) {
			continue
		}
		res.Groups = append(res.Groups, gid)
		res.Added++
	}

	if res.Added == 0 {
		res.Status = StatusNotFound
		return res
	}
	res.Status = StatusSuccess
	return res
}
