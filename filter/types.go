package filter

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Op is a comparison operator.
type Op int

const (
	OpLess Op = iota + 1
	OpGreater
	OpEquals
	OpLike
)

// String returns the wire name of the operator.
func (o Op) String() string {
	switch o {
	case OpLess:
		return "less"
	case OpGreater:
		return "greater"
	case OpEquals:
		return "equals"
	case OpLike:
		return "like"
	default:
		return "invalid"
	}
}

// Symbol returns the SQL spelling of the operator.
func (o Op) Symbol() string {
	switch o {
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpEquals:
		return "="
	case OpLike:
		return "LIKE"
	default:
		return "?"
	}
}

// BoolOp is a boolean connective.
type BoolOp int

const (
	And BoolOp = iota + 1
	Or
	Not
)

// String returns the wire name of the connective.
func (o BoolOp) String() string {
	switch o {
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	default:
		return "invalid"
	}
}

// Method is a parsed wire-level filter name: exactly one of Op or BoolOp is set.
type Method struct {
	Op     Op
	BoolOp BoolOp
}

// ParseMethod resolves a wire-level filter name.
// The second result is false for unrecognized names.
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "less":
		return Method{Op: OpLess}, true
	case "greater":
		return Method{Op: OpGreater}, true
	case "equals":
		return Method{Op: OpEquals}, true
	case "like":
		return Method{Op: OpLike}, true
	case "and":
		return Method{BoolOp: And}, true
	case "or":
		return Method{BoolOp: Or}, true
	case "not":
		return Method{BoolOp: Not}, true
	default:
		return Method{}, false
	}
}

// IsComparison reports whether the method is a comparison.
func (m Method) IsComparison() bool { return m.Op != 0 }

// Node is a filter expression tree node.
// The only implementations are *Comparison and *Boolean.
type Node interface {
	// String renders the node for logs. It is never used as SQL.
	String() string

	scopeID() uuid.UUID
}

// Comparison tests one entity field against a literal operand.
type Comparison struct {
	Field   string
	Op      Op
	Operand Scalar

	scope uuid.UUID
}

func (c *Comparison) scopeID() uuid.UUID { return c.scope }

// String implements Node interface.
func (c *Comparison) String() string {
	return c.Field + " " + c.Op.Symbol() + " " + c.Operand.String()
}

// Boolean combines child nodes.
// Zero-child And is always true; zero-child Or is always false.
type Boolean struct {
	Op       BoolOp
	Children []Node

	scope uuid.UUID
}

func (b *Boolean) scopeID() uuid.UUID { return b.scope }

// String implements Node interface.
func (b *Boolean) String() string {
	switch b.Op {
	case Not:
		if len(b.Children) != 1 {
			return "NOT (?)"
		}
		return "NOT (" + b.Children[0].String() + ")"
	case And, Or:
		if len(b.Children) == 0 {
			if b.Op == And {
				return "TRUE"
			}
			return "FALSE"
		}
		sep := ") AND ("
		if b.Op == Or {
			sep = ") OR ("
		}
		parts := make([]string, len(b.Children))
		for i, c := range b.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, sep) + ")"
	default:
		return "?"
	}
}

// Equal reports whether two trees are structurally identical.
// Scope identity is ignored.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Comparison:
		y, ok := b.(*Comparison)
		return ok && x.Field == y.Field && x.Op == y.Op && x.Operand.Equal(y.Operand)
	case *Boolean:
		y, ok := b.(*Boolean)
		if !ok || x.Op != y.Op || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Children {
			if !Equal(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}

// ScalarKind classifies a literal operand.
type ScalarKind int

const (
	ScalarInvalid ScalarKind = iota
	ScalarBool
	ScalarNumber
	ScalarString
)

// String returns the lower-case kind name.
func (k ScalarKind) String() string {
	switch k {
	case ScalarBool:
		return "bool"
	case ScalarNumber:
		return "number"
	case ScalarString:
		return "string"
	default:
		return "invalid"
	}
}

// Scalar is a literal comparison operand.
// Numbers keep their integer or floating representation.
type Scalar struct {
	kind    ScalarKind
	b       bool
	i       int64
	f       float64
	isFloat bool
	s       string
}

func BoolValue(v bool) Scalar     { return Scalar{kind: ScalarBool, b: v} }
func IntValue(v int64) Scalar     { return Scalar{kind: ScalarNumber, i: v} }
func FloatValue(v float64) Scalar { return Scalar{kind: ScalarNumber, f: v, isFloat: true} }
func StringValue(v string) Scalar { return Scalar{kind: ScalarString, s: v} }
func (s Scalar) Kind() ScalarKind { return s.kind }
func (s Scalar) IsFloat() bool    { return s.kind == ScalarNumber && s.isFloat }

// Value returns the operand as bool, int64, float64 or string.
func (s Scalar) Value() any {
	switch s.kind {
	case ScalarBool:
		return s.b
	case ScalarNumber:
		if s.isFloat {
			return s.f
		}
		return s.i
	case ScalarString:
		return s.s
	default:
		return nil
	}
}

// Int returns the number as int64, truncating floats.
func (s Scalar) Int() int64 {
	if s.isFloat {
		return int64(s.f)
	}
	return s.i
}

// Equal compares kind and value.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case ScalarBool:
		return s.b == o.b
	case ScalarNumber:
		if s.isFloat || o.isFloat {
			return s.float() == o.float()
		}
		return s.i == o.i
	case ScalarString:
		return s.s == o.s
	default:
		return true
	}
}

func (s Scalar) float() float64 {
	if s.isFloat {
		return s.f
	}
	return float64(s.i)
}

// String renders the operand as a literal.
func (s Scalar) String() string {
	switch s.kind {
	case ScalarBool:
		return strconv.FormatBool(s.b)
	case ScalarNumber:
		if s.isFloat {
			return strconv.FormatFloat(s.f, 'g', -1, 64)
		}
		return strconv.FormatInt(s.i, 10)
	case ScalarString:
		return strconv.Quote(s.s)
	default:
		return "<invalid>"
	}
}
