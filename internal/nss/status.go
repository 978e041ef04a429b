package nss

import (
	"errors"
	"fmt"

	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/buffer"
	"golang.org/x/sys/unix"
)

// Status is the outcome of an entry point. Values match glibc's enum nss_status.
type Status int

const (
	// StatusTryAgain means the operation could succeed if retried, chiefly with a bigger buffer.
	StatusTryAgain Status = -2
	// StatusUnavail means the data source could not be reached or used.
	StatusUnavail Status = -1
	// StatusNotFound means the query ran and matched nothing.
	StatusNotFound Status = 0
	// StatusSuccess means a record was produced.
	StatusSuccess Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusTryAgain:
		return "tryagain"
	case StatusUnavail:
		return "unavail"
	case StatusNotFound:
		return "notfound"
	case StatusSuccess:
		return "success"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of a record producing entry point.
type Result[R any] struct {
	Status Status
	// Errno is the platform error code describing a failure.
	Errno unix.Errno
	// Required is the buffer size needed to hold the record when Status is
	// StatusTryAgain because the caller buffer was too small.
	Required int
	// Record is only valid when Status is StatusSuccess.
	Record R
}

// Err converts a failed result to an error. It returns nil on success.
func (r Result[R]) Err() error {
	return statusError(r.Status, r.Errno)
}

// Membership is the outcome of [Module.InitGroupsDyn].
type Membership struct {
	Status Status
	Errno  unix.Errno
	// Groups is the caller array with the new GIDs appended.
	Groups []uint32
	// Added is the number of GIDs appended to the caller array.
	Added int
}

// StatusError is the error form of a failed status.
type StatusError struct {
	Status Status
	Errno  unix.Errno
}

// Error implements the error interface.
func (err StatusError) Error() string {
	if err.Errno == 0 {
		return err.Status.String()
	}
	return fmt.Sprintf("%v: %v", err.Status, err.Errno.Error())
}

// Unwrap returns the errno of the failure.
func (err StatusError) Unwrap() error {
	if err.Errno == 0 {
		return nil
	}
	return err.Errno
}

func statusError(s Status, errno unix.Errno) error {
	if s == StatusSuccess {
		return nil
	}
	return StatusError{Status: s, Errno: errno}
}

// classify maps an error from the backend or the packer to a status and errno.
func classify(err error) (Status, unix.Errno) {
	if err == nil {
		return StatusSuccess, 0
	}
	if errors.Is(err, buffer.InsufficientError{}) {
		return StatusTryAgain, unix.ERANGE
	}
	if errors.Is(err, backend.NoDataFoundError{}) {
		return StatusNotFound, unix.ENOENT
	}
	if errors.Is(err, backend.UnavailableError{}) {
		return StatusUnavail, unix.ENOENT
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return StatusUnavail, errno
	}
	return StatusUnavail, unix.EIO
}

func failure[R any](err error) Result[R] {
	s, errno := classify(err)
	var insufficient buffer.InsufficientError
	if errors.As(err, &insufficient) {
		return Result[R]{Status: s, Errno: errno, Required: insufficient.Required}
	}
	return Result[R]{Status: s, Errno: errno}
}
