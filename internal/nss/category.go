package nss

import (
	"context"
	"errors"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/log"
)

// state is the mutable state of a Module. It is only reachable through
// [Module.lock].
type state struct {
	backend backend.Backend
	// sessions holds the active enumeration of each category, if any.
	sessions map[backend.Category]*session
}

// open makes sure the connection of the category is open.
func (s *state) open(ctx context.Context, c backend.Category) error {
	if s.backend.IsOpen(c) {
		return nil
	}

	log.Debugf(ctx, "Opening %v connection", c)
	err := s.backend.Open(ctx, c)
	if err == nil {
		return nil
	}
	// A category which failed to open has no cursor left.
	delete(s.sessions, c)
	if errors.Is(err, backend.UnavailableError{}) {
		return err
	}
	return backend.UnavailableError{Category: c, Err: err}
}

// close discards the session of the category and closes its connection.
// It is safe on a closed category.
func (s *state) close(ctx context.Context, c backend.Category) {
	if sess, ok := s.sessions[c]; ok {
		log.Debugf(ctx, "Discarding %v enumeration %v after %d records", sess.query, sess.id, sess.returned)
		delete(s.sessions, c)
	}
	if !s.backend.IsOpen(c) {
		return
	}

	log.Debugf(ctx, "Closing %v connection", c)
	if err := s.backend.Close(c); err != nil {
		log.Warningf(ctx, "Failed to close %v connection: %v", c, err)
	}
}

// withCategory opens the category, runs fn and closes the category whatever the outcome.
func (s *state) withCategory(ctx context.Context, c backend.Category, fn func() error) error {
	defer s.close(ctx, c)

	if err := s.open(ctx, c); err != nil {
		return err
	}
	return fn()
}
