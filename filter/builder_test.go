package filter

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filterql/catalog"
)

// commentEntity mirrors the comment collection used throughout the tests.
func commentEntity() *catalog.Entity {
	return catalog.MustEntity(catalog.EntityDef{
		Name:  "comment",
		Table: "comments",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "commentId", Type: arrow.PrimitiveTypes.Int32},
			{Name: "charity", Type: arrow.BinaryTypes.String},
			{Name: "comment", Type: arrow.BinaryTypes.String},
			{Name: "commentUser", Type: arrow.BinaryTypes.String},
			{Name: "flagged", Type: arrow.FixedWidthTypes.Boolean},
			{Name: "insertTime", Type: arrow.FixedWidthTypes.Timestamp_us},
		}, nil),
		Columns: map[string]string{
			"commentId":   "comment_id",
			"commentUser": "comment_user",
			"insertTime":  "insert_time",
		},
		OwnerField: "commentUser",
	})
}

func newTestBuilder() *Builder {
	return NewBuilder(NewScope(), commentEntity())
}

func TestBuilderComparisons(t *testing.T) {
	b := newTestBuilder()

	tests := []struct {
		name  string
		build func() (Node, error)
		want  string
	}{
		{"less", func() (Node, error) { return b.LessThan("commentId", IntValue(5)) }, "commentId < 5"},
		{"greater float", func() (Node, error) { return b.GreaterThan("commentId", FloatValue(2.5)) }, "commentId > 2.5"},
		{"greater timestamp", func() (Node, error) { return b.GreaterThan("insertTime", IntValue(1700000000000)) }, "insertTime > 1700000000000"},
		{"equals string", func() (Node, error) { return b.EqualTo("charity", StringValue("Red Cross")) }, `charity = "Red Cross"`},
		{"equals bool", func() (Node, error) { return b.EqualTo("flagged", BoolValue(true)) }, "flagged = true"},
		{"like", func() (Node, error) { return b.Like("comment", "%great%") }, `comment LIKE "%great%"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := tt.build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if node.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, node.String())
			}
		})
	}
}

func TestBuilderUnknownField(t *testing.T) {
	b := newTestBuilder()

	_, err := b.EqualTo("nonexistent", StringValue("x"))
	var uf *UnknownFieldError
	if !errors.As(err, &uf) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
	if uf.Field != "nonexistent" || uf.Entity != "comment" {
		t.Errorf("unexpected error fields: %+v", uf)
	}
	if !errors.Is(err, ErrInvalidFilter) {
		t.Error("UnknownFieldError should match ErrInvalidFilter")
	}
}

func TestBuilderTypeMismatch(t *testing.T) {
	b := newTestBuilder()

	tests := []struct {
		name  string
		build func() (Node, error)
	}{
		{"less with string", func() (Node, error) { return b.LessThan("commentId", StringValue("5")) }},
		{"greater on string field", func() (Node, error) { return b.GreaterThan("charity", IntValue(1)) }},
		{"greater on bool field", func() (Node, error) { return b.GreaterThan("flagged", IntValue(1)) }},
		{"like on number field", func() (Node, error) { return b.Like("commentId", "1%") }},
		{"like on timestamp field", func() (Node, error) { return b.Like("insertTime", "2024%") }},
		{"equals string on number", func() (Node, error) { return b.EqualTo("commentId", StringValue("1")) }},
		{"equals number on bool", func() (Node, error) { return b.EqualTo("flagged", IntValue(1)) }},
		{"equals bool on string", func() (Node, error) { return b.EqualTo("charity", BoolValue(false)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			var tm *TypeMismatchError
			if !errors.As(err, &tm) {
				t.Fatalf("expected TypeMismatchError, got %v", err)
			}
			if !errors.Is(err, ErrInvalidFilter) {
				t.Error("TypeMismatchError should match ErrInvalidFilter")
			}
		})
	}
}

func TestBuilderBoolean(t *testing.T) {
	b := newTestBuilder()

	a, _ := b.EqualTo("charity", StringValue("A"))
	c, _ := b.LessThan("commentId", IntValue(3))

	and, err := b.And(a, c)
	if err != nil {
		t.Fatalf("And failed: %v", err)
	}
	if got := and.String(); got != `(charity = "A") AND (commentId < 3)` {
		t.Errorf("unexpected rendering: %s", got)
	}

	or, _ := b.Or(a, c)
	if got := or.String(); got != `(charity = "A") OR (commentId < 3)` {
		t.Errorf("unexpected rendering: %s", got)
	}

	not, _ := b.Not(a)
	if got := not.String(); got != `NOT (charity = "A")` {
		t.Errorf("unexpected rendering: %s", got)
	}

	emptyAnd, _ := b.And()
	emptyOr, _ := b.Or()
	if emptyAnd.String() != "TRUE" || emptyOr.String() != "FALSE" {
		t.Errorf("unexpected empty rendering: %s / %s", emptyAnd, emptyOr)
	}

	if _, err := b.Not(nil); err == nil {
		t.Error("Not(nil) should fail")
	}
}

func TestBuilderScope(t *testing.T) {
	scope := NewScope()
	b := NewBuilder(scope, commentEntity())

	node, err := b.EqualTo("charity", StringValue("A"))
	if err != nil {
		t.Fatal(err)
	}

	other := newTestBuilder()
	foreign, _ := other.EqualTo("charity", StringValue("B"))
	if _, err := b.And(node, foreign); !errors.Is(err, ErrForeignNode) {
		t.Errorf("expected ErrForeignNode, got %v", err)
	}

	and, _ := b.And(node)
	if !scope.Owns(node) || !scope.Owns(and) {
		t.Error("scope should own nodes built by its builder")
	}
	if scope.Owns(foreign) || scope.Owns(nil) {
		t.Error("scope should not own foreign or nil nodes")
	}
	tampered := &Boolean{Op: And, Children: []Node{node, foreign}, scope: scope.ID()}
	if scope.Owns(tampered) {
		t.Error("scope should not own a tree with a foreign descendant")
	}

	scope.Close()
	if _, err := b.EqualTo("charity", StringValue("A")); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("expected ErrScopeClosed, got %v", err)
	}
	if _, err := b.And(node); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("expected ErrScopeClosed, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	b := newTestBuilder()
	other := newTestBuilder()

	x, _ := b.EqualTo("charity", StringValue("A"))
	y, _ := other.EqualTo("charity", StringValue("A"))
	z, _ := b.EqualTo("charity", StringValue("B"))

	if !Equal(x, y) {
		t.Error("trees from different scopes with equal structure should be equal")
	}
	if Equal(x, z) {
		t.Error("different operands should not be equal")
	}

	i, _ := b.LessThan("commentId", IntValue(3))
	f, _ := b.LessThan("commentId", FloatValue(3))
	if !Equal(i, f) {
		t.Error("3 and 3.0 should compare equal")
	}

	n1, _ := b.Not(x)
	n2, _ := b.Not(z)
	if Equal(n1, n2) {
		t.Error("negations of different trees should differ")
	}
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"less", "greater", "equals", "like"} {
		m, ok := ParseMethod(name)
		if !ok || !m.IsComparison() || m.Op.String() != name {
			t.Errorf("ParseMethod(%q) = %+v, %v", name, m, ok)
		}
	}
	for _, name := range []string{"and", "or", "not"} {
		m, ok := ParseMethod(name)
		if !ok || m.IsComparison() || m.BoolOp.String() != name {
			t.Errorf("ParseMethod(%q) = %+v, %v", name, m, ok)
		}
	}
	if _, ok := ParseMethod("AND"); ok {
		t.Error("method names are case-sensitive")
	}
}
