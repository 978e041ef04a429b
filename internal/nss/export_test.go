package nss

import "github.com/ubuntu/nss-sql/internal/backend"

// ActiveQuery returns the query of the active enumeration of the category, if any.
func (m *Module) ActiveQuery(c backend.Category) (backend.Query, bool) {
	s := m.lock()
	defer m.unlock()

	sess, ok := s.sessions[c]
	if !ok {
		return "", false
	}
	return sess.query, true
}

// HasPending returns whether the active enumeration of the category holds a
// record that did not fit in the caller buffer.
func (m *Module) HasPending(c backend.Category) bool {
	s := m.lock()
	defer m.unlock()

	sess, ok := s.sessions[c]
	return ok && sess.pending != nil
}
