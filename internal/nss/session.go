package nss

import (
	"context"

	"github.com/google/uuid"
	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/log"
)

// session is the enumeration cursor state of a category.
type session struct {
	id    string
	query backend.Query

	// pending is a record read from the cursor that didn't fit in the caller
	// buffer. It is returned by the next call instead of advancing the cursor.
	pending any
	// returned counts the records handed to callers.
	returned int
}

// begin opens the category of the query and starts a new enumeration on it,
// superseding the previous one.
func (s *state) begin(ctx context.Context, q backend.Query) error {
	c := q.Category()
	if err := s.open(ctx, c); err != nil {
		return err
	}

	if prev, ok := s.sessions[c]; ok {
		log.Debugf(ctx, "Superseding %v enumeration %v", prev.query, prev.id)
		delete(s.sessions, c)
	}

	if err := s.backend.Prepare(ctx, c, q); err != nil {
		log.Debugf(ctx, "Could not prepare %v enumeration: %v", q, err)
		s.close(ctx, c)
		return err
	}

	sess := &session{id: uuid.NewString(), query: q}
	s.sessions[c] = sess
	log.Debugf(ctx, "Started %v enumeration %v on %v connection", q, sess.id, c)
	return nil
}

// current returns the session of the query, starting it if the category is
// closed, has no session or has a session for another query.
func (s *state) current(ctx context.Context, q backend.Query) (*session, error) {
	c := q.Category()
	if sess, ok := s.sessions[c]; ok && sess.query == q && s.backend.IsOpen(c) {
		return sess, nil
	}

	if err := s.begin(ctx, q); err != nil {
		return nil, err
	}
	return s.sessions[c], nil
}

// end discards the session of the category and closes it.
func (s *state) end(ctx context.Context, c backend.Category) {
	if sess, ok := s.sessions[c]; ok {
		s.backend.EndEnumeration(c)
		delete(s.sessions, c)
		log.Debugf(ctx, "Ended %v enumeration %v after %d records", sess.query, sess.id, sess.returned)
	}
	s.close(ctx, c)
}
