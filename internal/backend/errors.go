package backend

import (
	"errors"
	"fmt"
)

// NoDataFoundError is returned when we didn't find a matching entry.
type NoDataFoundError struct {
	key   string
	table string
}

// NewNoDataFoundError returns a [NoDataFoundError] for the given key and table.
func NewNoDataFoundError(table, key string) NoDataFoundError {
	return NoDataFoundError{key: key, table: table}
}

// Error implements the error interface.
func (err NoDataFoundError) Error() string {
	if err.key == "" {
		return fmt.Sprintf("no more entries in %v", err.table)
	}
	return fmt.Sprintf("no result matching %v in %v", err.key, err.table)
}

// Is makes this error insensitive to the key and table names.
func (NoDataFoundError) Is(target error) bool { return target == NoDataFoundError{} }

// ErrNotOpen is returned when a record is requested on a category that is not open.
var ErrNotOpen = errors.New("connection is not open")

// ErrNotPrepared is returned when an enumeration record is requested without a prepared query.
var ErrNotPrepared = errors.New("no enumeration prepared")

// UnavailableError is returned when the connection of a category can't be established.
type UnavailableError struct {
	Category Category
	Err      error
}

// Error implements the error interface.
func (err UnavailableError) Error() string {
	return fmt.Sprintf("%v connection unavailable: %v", err.Category, err.Err)
}

// Unwrap returns the underlying error.
func (err UnavailableError) Unwrap() error { return err.Err }

// Is makes this error insensitive to its category and cause.
func (UnavailableError) Is(target error) bool {
	_, ok := target.(UnavailableError)
	return ok
}
