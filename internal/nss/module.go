// Package nss is the NSS module core: it serializes every lookup, tracks the
// open state of each backend connection and keeps the enumeration cursors
// alive across calls.
package nss

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/log"
)

// Observer is notified once every entry point returns.
type Observer interface {
	ObserveLookup(op string, status Status, elapsed time.Duration)
}

type options struct {
	guard    sync.Locker
	observer Observer
}

// Option represents an optional function to override [New] default values.
type Option func(*options)

// WithGuard sets the lock serializing every entry point. It defaults to a [sync.Mutex].
func WithGuard(guard sync.Locker) Option {
	return func(o *options) {
		o.guard = guard
	}
}

// WithObserver sets an observer notified of every entry point outcome.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// Module multiplexes the lookups of a process over the backend connections.
type Module struct {
	guard    sync.Locker
	observer Observer

	// st must only be accessed while holding guard.
	st state
}

// New returns a Module resolving records through b.
func New(b backend.Backend, args ...Option) (*Module, error) {
	if b == nil {
		return nil, fmt.Errorf("no backend provided")
	}

	opts := options{guard: &sync.Mutex{}}
	for _, arg := range args {
		arg(&opts)
	}

	return &Module{
		guard:    opts.guard,
		observer: opts.observer,
		st: state{
			backend:  b,
			sessions: make(map[backend.Category]*session),
		},
	}, nil
}

// Close ends every enumeration and closes every category.
func (m *Module) Close(ctx context.Context) {
	s := m.lock()
	defer m.unlock()

	for _, c := range backend.Categories {
		s.close(ctx, c)
	}
}

// IsOpen returns whether the category currently holds an open connection.
func (m *Module) IsOpen(c backend.Category) bool {
	s := m.lock()
	defer m.unlock()

	return s.backend.IsOpen(c)
}

// end is deferred by every entry point before it takes the guard. It turns a
// panic into StatusUnavail and reports the outcome to the observer.
func (m *Module) end(ctx context.Context, op string, start time.Time, status *Status) {
	if r := recover(); r != nil {
		log.Errorf(ctx, "%s: unexpected failure: %v", op, r)
		*status = StatusUnavail
	}
	if m.observer != nil {
		m.observer.ObserveLookup(op, *status, time.Since(start))
	}
}
