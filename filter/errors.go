package filter

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/filterql/catalog"
)

var (
	// ErrInvalidFilter matches every caller-caused filter error
	// (malformed structure, unknown operator, unknown field, type mismatch).
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrScopeClosed is returned when a builder is used after its query finished.
	ErrScopeClosed = errors.New("filter: query scope is closed")

	// ErrForeignNode is returned when a tree mixes nodes from different query scopes.
	ErrForeignNode = errors.New("filter: node belongs to another query scope")
)

// MalformedFilterError reports a structurally invalid filter document.
type MalformedFilterError struct {
	Path   string
	Reason string
}

func (e *MalformedFilterError) Error() string {
	return fmt.Sprintf("malformed filter at %s: %s", pathOrRoot(e.Path), e.Reason)
}

func (e *MalformedFilterError) Is(target error) bool { return target == ErrInvalidFilter }

// UnknownOperatorError reports an unrecognized "filter" name.
type UnknownOperatorError struct {
	Path string
	Name string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown filter operator %q at %s", e.Name, pathOrRoot(e.Path))
}

func (e *UnknownOperatorError) Is(target error) bool { return target == ErrInvalidFilter }

// UnknownFieldError reports a field that the entity does not declare.
type UnknownFieldError struct {
	Path   string
	Entity string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q for entity %s", e.Field, e.Entity)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	return msg
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrInvalidFilter }

// TypeMismatchError reports an operand that is incompatible with the
// operator or with the field kind.
type TypeMismatchError struct {
	Path    string
	Field   string
	Op      Op
	Kind    catalog.Kind
	Operand ScalarKind
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("operator %s on %s field %q does not accept a %s operand", e.Op, e.Kind, e.Field, e.Operand)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	return msg
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrInvalidFilter }

// setPath records where in the document a builder error occurred.
func setPath(err error, path string) error {
	var uf *UnknownFieldError
	if errors.As(err, &uf) && uf.Path == "" {
		uf.Path = pathOrRoot(path)
	}
	var tm *TypeMismatchError
	if errors.As(err, &tm) && tm.Path == "" {
		tm.Path = pathOrRoot(path)
	}
	return err
}

func pathOrRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
