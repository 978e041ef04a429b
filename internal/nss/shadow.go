package nss

import (
	"context"
	"time"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// SetSpent starts an enumeration of all shadow entries, superseding any active one.
func (m *Module) SetSpent(ctx context.Context) (status Status) {
	defer m.end(ctx, "setspent", time.Now(), &status)
	s := m.lock()
	defer m.unlock()

	return shadowFamily.begin(ctx, s)
}

// EndSpent ends the shadow enumeration and closes the shadow connection.
func (m *Module) EndSpent(ctx context.Context) (status Status) {
	defer m.end(ctx, "endspent", time.Now(), &status)
	s := m.lock()
	defer m.unlock()

	return shadowFamily.end(ctx, s)
}

// GetSpent packs the next shadow entry of the enumeration into buf. The
// enumeration is started if SetSpent was not called.
func (m *Module) GetSpent(ctx context.Context, buf []byte) (res Result[ShadowRecord]) {
	defer m.end(ctx, "getspent_r", time.Now(), &res.Status)
	s := m.lock()
	defer m.unlock()

	return shadowFamily.nextRecord(ctx, s, buf)
}

// GetSpnam packs the shadow entry of the user named name into buf.
func (m *Module) GetSpnam(ctx context.Context, name string, buf []byte) (res Result[ShadowRecord]) {
	defer m.end(ctx, "getspnam_r", time.Now(), &res.Status)
	if name == "" {
		return failure[ShadowRecord](backend.NewNoDataFoundError("shadow", name))
	}
	s := m.lock()
	defer m.unlock()

	return shadowFamily.lookup(ctx, s, buf, func(ctx context.Context) (types.ShadowEntry, error) {
		return s.backend.ShadowByName(ctx, name)
	})
}
