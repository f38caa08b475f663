package query

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/filterql/filter"
)

var (
	// ErrInvalidQuery matches ordering and paging errors caused by the caller.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrStore matches StoreExecutionError.
	ErrStore = errors.New("store execution failed")

	// ErrExecutorUsed is returned when an executor runs a second time.
	ErrExecutorUsed = errors.New("query: executor already used")

	// ErrOwnerRequired is returned when an owner-scoped entity is queried
	// without a server-side predicate.
	ErrOwnerRequired = errors.New("query: owner predicate required")
)

// InvalidOrderingError reports a sorting specification that cannot be honored.
type InvalidOrderingError struct {
	Field    string
	Ordering string
	Reason   string
}

func (e *InvalidOrderingError) Error() string {
	return fmt.Sprintf("invalid ordering %q on field %q: %s", e.Ordering, e.Field, e.Reason)
}

func (e *InvalidOrderingError) Is(target error) bool { return target == ErrInvalidQuery }

// InvalidPageError reports a bad first/max_count parameter.
type InvalidPageError struct {
	Param  string
	Reason string
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

func (e *InvalidPageError) Is(target error) bool { return target == ErrInvalidQuery }

// StoreExecutionError wraps a failure of the backing store.
// Partial results are never returned alongside it.
type StoreExecutionError struct {
	Entity string
	Err    error
}

func (e *StoreExecutionError) Error() string {
	return fmt.Sprintf("query %s: store execution failed: %v", e.Entity, e.Err)
}

func (e *StoreExecutionError) Unwrap() error { return e.Err }

func (e *StoreExecutionError) Is(target error) bool { return target == ErrStore }

// IsCallerFault reports whether err was caused by the request rather than
// the environment. Boundary layers map these to "bad request" responses.
func IsCallerFault(err error) bool {
	return errors.Is(err, filter.ErrInvalidFilter) || errors.Is(err, ErrInvalidQuery)
}
