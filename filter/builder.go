package filter

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hugr-lab/filterql/catalog"
)

// Scope is the lifetime of one query. Nodes created under a scope can only
// be combined with nodes of the same scope, and builders stop producing
// nodes once the scope is closed.
type Scope struct {
	id     uuid.UUID
	closed atomic.Bool
}

// NewScope starts a new query scope.
func NewScope() *Scope {
	return &Scope{id: uuid.New()}
}

// ID returns the scope identifier. Useful as a request id in logs.
func (s *Scope) ID() uuid.UUID { return s.id }

// Close ends the scope. Further builder calls return ErrScopeClosed.
func (s *Scope) Close() { s.closed.Store(true) }

// Closed reports whether Close was called.
func (s *Scope) Closed() bool { return s.closed.Load() }

// Owns reports whether n and all of its descendants were built under s.
func (s *Scope) Owns(n Node) bool {
	if n == nil || n.scopeID() != s.id {
		return false
	}
	if b, ok := n.(*Boolean); ok {
		for _, c := range b.Children {
			if !s.Owns(c) {
				return false
			}
		}
	}
	return true
}

// Builder constructs validated filter nodes for one entity.
// A Builder is bound to a single Scope and is not meant to outlive it.
type Builder struct {
	scope  *Scope
	entity *catalog.Entity
}

// NewBuilder returns a builder bound to scope and entity.
func NewBuilder(scope *Scope, entity *catalog.Entity) *Builder {
	return &Builder{scope: scope, entity: entity}
}

// Entity returns the entity the builder validates against.
func (b *Builder) Entity() *catalog.Entity { return b.entity }

// Scope returns the query scope the builder is bound to.
func (b *Builder) Scope() *Scope { return b.scope }

// LessThan builds field < value. The operand must be a number.
func (b *Builder) LessThan(field string, value Scalar) (Node, error) {
	return b.compare(field, OpLess, value)
}

// GreaterThan builds field > value. The operand must be a number.
func (b *Builder) GreaterThan(field string, value Scalar) (Node, error) {
	return b.compare(field, OpGreater, value)
}

// EqualTo builds field = value.
func (b *Builder) EqualTo(field string, value Scalar) (Node, error) {
	return b.compare(field, OpEquals, value)
}

// Like builds a pattern match on a string field.
// % and _ in pattern are wildcards; a backslash escapes them.
func (b *Builder) Like(field, pattern string) (Node, error) {
	return b.compare(field, OpLike, StringValue(pattern))
}

// And builds the conjunction of children. With no children it matches everything.
func (b *Builder) And(children ...Node) (Node, error) {
	return b.combine(And, children)
}

// Or builds the disjunction of children. With no children it matches nothing.
func (b *Builder) Or(children ...Node) (Node, error) {
	return b.combine(Or, children)
}

// Not builds the negation of child.
func (b *Builder) Not(child Node) (Node, error) {
	if child == nil {
		return nil, &MalformedFilterError{Reason: "not requires exactly one argument"}
	}
	return b.combine(Not, []Node{child})
}

func (b *Builder) compare(field string, op Op, value Scalar) (Node, error) {
	if b.scope.Closed() {
		return nil, ErrScopeClosed
	}
	if err := CheckComparison(b.entity, field, op, value); err != nil {
		return nil, err
	}
	return &Comparison{Field: field, Op: op, Operand: value, scope: b.scope.id}, nil
}

func (b *Builder) combine(op BoolOp, children []Node) (Node, error) {
	if b.scope.Closed() {
		return nil, ErrScopeClosed
	}
	for i, c := range children {
		if c == nil {
			return nil, &MalformedFilterError{Reason: fmt.Sprintf("%s argument %d is empty", op, i)}
		}
		if c.scopeID() != b.scope.id {
			return nil, ErrForeignNode
		}
	}
	return &Boolean{Op: op, Children: append([]Node(nil), children...), scope: b.scope.id}, nil
}

// CheckComparison validates a comparison against the entity schema.
//
// Less and Greater need a number operand on a number or timestamp field.
// Like needs a string operand on a string field. Equals needs an operand
// matching the field kind. Timestamp fields take numbers as Unix epoch
// milliseconds.
func CheckComparison(entity *catalog.Entity, field string, op Op, value Scalar) error {
	f, ok := entity.Field(field)
	if !ok {
		return &UnknownFieldError{Entity: entity.Name(), Field: field}
	}

	mismatch := &TypeMismatchError{Field: field, Op: op, Kind: f.Kind, Operand: value.Kind()}
	switch op {
	case OpLess, OpGreater:
		if value.Kind() != ScalarNumber {
			return mismatch
		}
		if f.Kind != catalog.KindNumber && f.Kind != catalog.KindTimestamp {
			return mismatch
		}
	case OpLike:
		if value.Kind() != ScalarString || f.Kind != catalog.KindString {
			return mismatch
		}
	case OpEquals:
		if !operandFits(f.Kind, value.Kind()) {
			return mismatch
		}
	default:
		return &MalformedFilterError{Reason: fmt.Sprintf("invalid comparison operator %d", op)}
	}
	return nil
}

func operandFits(kind catalog.Kind, operand ScalarKind) bool {
	switch kind {
	case catalog.KindBool:
		return operand == ScalarBool
	case catalog.KindNumber, catalog.KindTimestamp:
		return operand == ScalarNumber
	case catalog.KindString:
		return operand == ScalarString
	default:
		return false
	}
}
