package filter

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hugr-lab/filterql/catalog"
)

// SQLEncoder lowers filter trees for one entity to squirrel predicates.
// The output uses ? placeholders; the statement builder picks the final
// placeholder format.
type SQLEncoder struct {
	entity *catalog.Entity
	opts   EncoderOptions
}

// NewSQLEncoder creates an encoder for entity.
// If opts is nil, default options are used.
func NewSQLEncoder(entity *catalog.Entity, opts *EncoderOptions) *SQLEncoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	return &SQLEncoder{entity: entity, opts: *opts}
}

// Entity returns the entity the encoder targets.
func (e *SQLEncoder) Entity() *catalog.Entity { return e.entity }

// Encode implements Encoder interface.
func (e *SQLEncoder) Encode(node Node) (sq.Sqlizer, error) {
	switch n := node.(type) {
	case *Comparison:
		return e.encodeComparison(n)
	case *Boolean:
		return e.encodeBoolean(n)
	case nil:
		return nil, &MalformedFilterError{Reason: "nil filter node"}
	default:
		return nil, &MalformedFilterError{Reason: fmt.Sprintf("unsupported node type %T", node)}
	}
}

func (e *SQLEncoder) encodeComparison(c *Comparison) (sq.Sqlizer, error) {
	if err := CheckComparison(e.entity, c.Field, c.Op, c.Operand); err != nil {
		return nil, err
	}
	f, _ := e.entity.Field(c.Field)
	col := e.column(f)
	arg := e.argument(f, c.Operand)

	switch c.Op {
	case OpLess:
		return sq.Lt{col: arg}, nil
	case OpGreater:
		return sq.Gt{col: arg}, nil
	case OpEquals:
		return sq.Eq{col: arg}, nil
	case OpLike:
		pattern := arg.(string)
		if e.opts.EscapeLikeWildcards {
			pattern = escapeLikePattern(pattern)
		} else if danglingEscape(pattern) {
			return nil, &MalformedFilterError{Reason: fmt.Sprintf("like pattern for %s ends with an unpaired escape character", c.Field)}
		}
		return sq.Expr(col+" LIKE ? ESCAPE '"+likeEscape+"'", pattern), nil
	default:
		return nil, &MalformedFilterError{Reason: fmt.Sprintf("invalid comparison operator %d", c.Op)}
	}
}

func (e *SQLEncoder) encodeBoolean(b *Boolean) (sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(b.Children))
	for _, child := range b.Children {
		p, err := e.Encode(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}

	// squirrel renders an empty And as (1=1) and an empty Or as (1=0).
	switch b.Op {
	case And:
		return sq.And(parts), nil
	case Or:
		return sq.Or(parts), nil
	case Not:
		if len(parts) != 1 {
			return nil, &MalformedFilterError{Reason: fmt.Sprintf("not requires exactly one argument, got %d", len(parts))}
		}
		return notExpr{pred: parts[0]}, nil
	default:
		return nil, &MalformedFilterError{Reason: fmt.Sprintf("invalid boolean operator %d", b.Op)}
	}
}

// Column returns the SQL expression for a field, for use in ORDER BY.
func (e *SQLEncoder) Column(field string) (string, error) {
	f, ok := e.entity.Field(field)
	if !ok {
		return "", &UnknownFieldError{Entity: e.entity.Name(), Field: field}
	}
	return e.column(f), nil
}

// Columns returns the SELECT list in field declaration order.
func (e *SQLEncoder) Columns() []string {
	fields := e.entity.Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = e.column(f)
	}
	return cols
}

// Table returns the quoted table name.
func (e *SQLEncoder) Table() string {
	return QuoteIdentifier(e.entity.Table())
}

func (e *SQLEncoder) column(f catalog.Field) string {
	if expr, ok := e.opts.ColumnExpressions[f.Name]; ok {
		return expr
	}
	if mapped, ok := e.opts.ColumnMapping[f.Name]; ok {
		return QuoteIdentifier(mapped)
	}
	return QuoteIdentifier(f.Column)
}

// argument converts an operand to the driver value for the field.
// Numbers compared with timestamp fields are Unix epoch milliseconds.
func (e *SQLEncoder) argument(f catalog.Field, v Scalar) any {
	if f.Kind == catalog.KindTimestamp && v.Kind() == ScalarNumber {
		if v.IsFloat() {
			return time.UnixMicro(int64(v.Value().(float64) * 1000)).UTC()
		}
		return time.UnixMilli(v.Int()).UTC()
	}
	return v.Value()
}
