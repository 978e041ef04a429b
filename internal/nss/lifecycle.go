package nss

import (
	"context"
	"errors"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/users/types"
	"github.com/ubuntu/nss-sql/log"
)

// family composes the connection lifecycle for one kind of record.
type family[E, R any] struct {
	query backend.Query
	next  func(b backend.Backend) func(context.Context) (E, error)
	pack  packer[E, R]
}

var (
	passwdFamily = family[types.UserEntry, UserRecord]{
		query: backend.QueryAllUsers,
		next:  func(b backend.Backend) func(context.Context) (types.UserEntry, error) { return b.NextUser },
		pack:  packUser,
	}
	groupFamily = family[types.GroupEntry, GroupRecord]{
		query: backend.QueryAllGroups,
		next:  func(b backend.Backend) func(context.Context) (types.GroupEntry, error) { return b.NextGroup },
		pack:  packGroup,
	}
	shadowFamily = family[types.ShadowEntry, ShadowRecord]{
		query: backend.QueryAllShadow,
		next:  func(b backend.Backend) func(context.Context) (types.ShadowEntry, error) { return b.NextShadow },
		pack:  packShadow,
	}
)

func (f family[E, R]) category() backend.Category {
	return f.query.Category()
}

// begin opens the category and leaves it open with a fresh enumeration.
func (f family[E, R]) begin(ctx context.Context, s *state) Status {
	status, _ := classify(s.begin(ctx, f.query))
	return status
}

// end discards the enumeration and closes the category.
func (f family[E, R]) end(ctx context.Context, s *state) Status {
	s.end(ctx, f.category())
	return StatusSuccess
}

// nextRecord returns the next record of the enumeration, starting it first if needed.
func (f family[E, R]) nextRecord(ctx context.Context, s *state, buf []byte) Result[R] {
	sess, err := s.current(ctx, f.query)
	if err != nil {
		return failure[R](err)
	}

	e, ok := sess.pending.(E)
	if ok {
		sess.pending = nil
	} else {
		e, err = f.next(s.backend)(ctx)
		if errors.Is(err, backend.NoDataFoundError{}) {
			return failure[R](err)
		}
		if err != nil {
			log.Warningf(ctx, "Reading %v enumeration %v failed: %v", f.query, sess.id, err)
			s.end(ctx, f.category())
			return failure[R](err)
		}
	}

	rec, err := f.pack(buf, e)
	if err != nil {
		// The record is kept for the call retrying with a bigger buffer.
		sess.pending = e
		return failure[R](err)
	}

	sess.returned++
	return Result[R]{Status: StatusSuccess, Record: rec}
}

// lookup opens the category, runs a single query and closes the category whatever the outcome.
func (f family[E, R]) lookup(ctx context.Context, s *state, buf []byte, fetch func(context.Context) (E, error)) Result[R] {
	var rec R
	err := s.withCategory(ctx, f.category(), func() error {
		e, err := fetch(ctx)
		if err != nil {
			return err
		}
		rec, err = f.pack(buf, e)
		return err
	})
	if err != nil {
		return failure[R](err)
	}
	return Result[R]{Status: StatusSuccess, Record: rec}
}
