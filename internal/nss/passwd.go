package nss

import (
	"context"
	"time"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// SetPwent starts an enumeration of all users, superseding any active one.
func (m *Module) SetPwent(ctx context.Context) (status Status) {
	defer m.end(ctx, "setpwent", time.Now(), &status)
	s := m.lock()
	defer m.unlock()

	return passwdFamily.begin(ctx, s)
}

// EndPwent ends the users enumeration and closes the user and group connection.
func (m *Module) EndPwent(ctx context.Context) (status Status) {
	defer m.end(ctx, "endpwent", time.Now(), &status)
	s := m.lock()
	defer m.unlock()

	return passwdFamily.end(ctx, s)
}

// GetPwent packs the next user of the enumeration into buf. The enumeration is
// started if SetPwent was not called.
func (m *Module) GetPwent(ctx context.Context, buf []byte) (res Result[UserRecord]) {
	defer m.end(ctx, "getpwent_r", time.Now(), &res.Status)
	s := m.lock()
	defer m.unlock()

	return passwdFamily.nextRecord(ctx, s, buf)
}

// GetPwnam packs the user named name into buf.
func (m *Module) GetPwnam(ctx context.Context, name string, buf []byte) (res Result[UserRecord]) {
	defer m.end(ctx, "getpwnam_r", time.Now(), &res.Status)
	if name == "" {
		return failure[UserRecord](backend.NewNoDataFoundError("users", name))
	}
	s := m.lock()
	defer m.unlock()

	return passwdFamily.lookup(ctx, s, buf, func(ctx context.Context) (types.UserEntry, error) {
		return s.backend.UserByName(ctx, name)
	})
}

// GetPwuid packs the user with the given UID into buf.
func (m *Module) GetPwuid(ctx context.Context, uid uint32, buf []byte) (res Result[UserRecord]) {
	defer m.end(ctx, "getpwuid_r", time.Now(), &res.Status)
	s := m.lock()
	defer m.unlock()

	return passwdFamily.lookup(ctx, s, buf, func(ctx context.Context) (types.UserEntry, error) {
		return s.backend.UserByID(ctx, uid)
	})
}
