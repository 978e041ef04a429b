// Package testbackend provides an in-memory backend recording every call, for tests only.
package testbackend

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/testsdetection"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// Backend is an in-memory [backend.Backend].
type Backend struct {
	users       []types.UserEntry
	groups      []types.GroupEntry
	shadows     []types.ShadowEntry
	memberships map[string][]uint32

	openErrs    map[backend.Category]error
	prepareErr  error
	nextErr     error
	lookupErr   error
	callLatency time.Duration

	mu      sync.Mutex
	open    map[backend.Category]bool
	cursors map[backend.Category]*cursor
	calls   []string

	inFlight   atomic.Int32
	concurrent atomic.Bool
}

type cursor struct {
	query backend.Query
	pos   int
}

// Option configures a [Backend].
type Option func(*Backend)

// WithUsers sets the users of the backend.
func WithUsers(users ...types.UserEntry) Option {
	return func(b *Backend) { b.users = users }
}

// WithGroups sets the groups of the backend.
func WithGroups(groups ...types.GroupEntry) Option {
	return func(b *Backend) { b.groups = groups }
}

// WithShadows sets the shadow entries of the backend.
func WithShadows(shadows ...types.ShadowEntry) Option {
	return func(b *Backend) { b.shadows = shadows }
}

// WithMembership sets the GIDs returned by GroupsForUser for user.
func WithMembership(user string, gids ...uint32) Option {
	return func(b *Backend) { b.memberships[user] = gids }
}

// WithOpenError makes opening the category fail with err.
func WithOpenError(c backend.Category, err error) Option {
	return func(b *Backend) { b.openErrs[c] = err }
}

// WithPrepareError makes Prepare fail with err.
func WithPrepareError(err error) Option {
	return func(b *Backend) { b.prepareErr = err }
}

// WithNextError makes every Next* call fail with err.
func WithNextError(err error) Option {
	return func(b *Backend) { b.nextErr = err }
}

// WithLookupError makes every single record lookup fail with err.
func WithLookupError(err error) Option {
	return func(b *Backend) { b.lookupErr = err }
}

// WithCallLatency makes every call block for d.
func WithCallLatency(d time.Duration) Option {
	return func(b *Backend) { b.callLatency = d }
}

// New returns a new in-memory backend.
func New(args ...Option) *Backend {
	testsdetection.MustBeTesting()

	b := &Backend{
		memberships: make(map[string][]uint32),
		openErrs:    make(map[backend.Category]error),
		open:        make(map[backend.Category]bool),
		cursors:     make(map[backend.Category]*cursor),
	}
	for _, arg := range args {
		arg(b)
	}
	return b
}

// Calls returns the calls that changed the connection or cursor state, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// Concurrent reports whether two calls were ever running at the same time.
func (b *Backend) Concurrent() bool {
	return b.concurrent.Load()
}

// Open implements [backend.Backend].
func (b *Backend) Open(_ context.Context, c backend.Category) error {
	defer b.enter()()

	b.record("open %v", c)
	if err := b.openErrs[c]; err != nil {
		return err
	}
	b.open[c] = true
	return nil
}

// IsOpen implements [backend.Backend].
func (b *Backend) IsOpen(c backend.Category) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open[c]
}

// Close implements [backend.Backend].
func (b *Backend) Close(c backend.Category) error {
	defer b.enter()()

	b.record("close %v", c)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.open, c)
	delete(b.cursors, c)
	return nil
}

// Prepare implements [backend.Backend].
func (b *Backend) Prepare(_ context.Context, c backend.Category, q backend.Query) error {
	defer b.enter()()

	b.record("prepare %v %v", c, q)
	if !b.IsOpen(c) {
		return backend.ErrNotOpen
	}
	if b.prepareErr != nil {
		return b.prepareErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursors[c] = &cursor{query: q}
	return nil
}

// EndEnumeration implements [backend.Backend].
func (b *Backend) EndEnumeration(c backend.Category) {
	defer b.enter()()

	b.record("end %v", c)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cursors, c)
}

// NextUser implements [backend.Backend].
func (b *Backend) NextUser(_ context.Context) (types.UserEntry, error) {
	return next(b, backend.QueryAllUsers, b.users)
}

// NextGroup implements [backend.Backend].
func (b *Backend) NextGroup(_ context.Context) (types.GroupEntry, error) {
	g, err := next(b, backend.QueryAllGroups, b.groups)
	return g.DeepCopy(), err
}

// NextShadow implements [backend.Backend].
func (b *Backend) NextShadow(_ context.Context) (types.ShadowEntry, error) {
	return next(b, backend.QueryAllShadow, b.shadows)
}

func next[E any](b *Backend, q backend.Query, entries []E) (e E, err error) {
	defer b.enter()()

	c := q.Category()
	if !b.IsOpen(c) {
		return e, backend.ErrNotOpen
	}
	if b.nextErr != nil {
		return e, b.nextErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.cursors[c]
	if cur == nil || cur.query != q {
		return e, backend.ErrNotPrepared
	}
	if cur.pos >= len(entries) {
		return e, backend.NewNoDataFoundError(string(q), "")
	}
	cur.pos++
	return entries[cur.pos-1], nil
}

// UserByName implements [backend.Backend].
func (b *Backend) UserByName(_ context.Context, name string) (types.UserEntry, error) {
	return find(b, backend.CategoryUserGroup, "users", name, b.users, func(u types.UserEntry) bool { return u.Name == name })
}

// UserByID implements [backend.Backend].
func (b *Backend) UserByID(_ context.Context, uid uint32) (types.UserEntry, error) {
	return find(b, backend.CategoryUserGroup, "users", strconv.FormatUint(uint64(uid), 10), b.users,
		func(u types.UserEntry) bool { return u.UID == uid })
}

// GroupByName implements [backend.Backend].
func (b *Backend) GroupByName(_ context.Context, name string) (types.GroupEntry, error) {
	g, err := find(b, backend.CategoryUserGroup, "groups", name, b.groups, func(g types.GroupEntry) bool { return g.Name == name })
	return g.DeepCopy(), err
}

// GroupByID implements [backend.Backend].
func (b *Backend) GroupByID(_ context.Context, gid uint32) (types.GroupEntry, error) {
	g, err := find(b, backend.CategoryUserGroup, "groups", strconv.FormatUint(uint64(gid), 10), b.groups,
		func(g types.GroupEntry) bool { return g.GID == gid })
	return g.DeepCopy(), err
}

// ShadowByName implements [backend.Backend].
func (b *Backend) ShadowByName(_ context.Context, name string) (types.ShadowEntry, error) {
	return find(b, backend.CategoryShadow, "shadow", name, b.shadows, func(s types.ShadowEntry) bool { return s.Name == name })
}

// GroupsForUser implements [backend.Backend].
func (b *Backend) GroupsForUser(_ context.Context, user string, skip uint32) ([]uint32, error) {
	defer b.enter()()

	b.record("groups_dyn %s", user)
	if !b.IsOpen(backend.CategoryUserGroup) {
		return nil, backend.ErrNotOpen
	}
	if b.lookupErr != nil {
		return nil, b.lookupErr
	}
	gids, ok := b.memberships[user]
	if !ok {
		return nil, backend.NewNoDataFoundError("groups_dyn", user)
	}
	return slices.DeleteFunc(slices.Clone(gids), func(gid uint32) bool { return gid == skip }), nil
}

func find[E any](b *Backend, c backend.Category, table, key string, entries []E, match func(E) bool) (e E, err error) {
	defer b.enter()()

	b.record("lookup %v %s", c, key)
	if !b.IsOpen(c) {
		return e, backend.ErrNotOpen
	}
	if b.lookupErr != nil {
		return e, b.lookupErr
	}
	i := slices.IndexFunc(entries, match)
	if i < 0 {
		return e, backend.NewNoDataFoundError(table, key)
	}
	return entries[i], nil
}

// enter flags overlapping calls. It returns the function to call on exit.
func (b *Backend) enter() func() {
	if b.inFlight.Add(1) > 1 {
		b.concurrent.Store(true)
	}
	if b.callLatency > 0 {
		time.Sleep(b.callLatency)
	}
	return func() { b.inFlight.Add(-1) }
}

func (b *Backend) record(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}
