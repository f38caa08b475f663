package filter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filterql/catalog"
)

func encode(t *testing.T, enc *SQLEncoder, node Node) (string, []any) {
	t.Helper()
	pred, err := enc.Encode(node)
	if err != nil {
		t.Fatalf("Encode(%s) failed: %v", node, err)
	}
	sql, args, err := pred.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	return sql, args
}

func TestSQLEncoderComparisons(t *testing.T) {
	b := newTestBuilder()
	enc := NewSQLEncoder(b.Entity(), nil)

	tests := []struct {
		name     string
		doc      string
		wantSQL  string
		wantArgs []any
	}{
		{"equals", `{"filter":"equals","field":"charity","value":"Red Cross"}`, "charity = ?", []any{"Red Cross"}},
		{"less mapped column", `{"filter":"less","field":"commentId","value":5}`, "comment_id < ?", []any{int64(5)}},
		{"greater", `{"filter":"greater","field":"commentId","value":2.5}`, "comment_id > ?", []any{2.5}},
		{"bool", `{"filter":"equals","field":"flagged","value":true}`, "flagged = ?", []any{true}},
		{"like quoted column", `{"filter":"like","field":"comment","value":"%spam%"}`, `"comment" LIKE ? ESCAPE '\'`, []any{"%spam%"}},
		{"not", `{"filter":"not","arguments":[{"filter":"equals","field":"charity","value":"A"}]}`, "NOT (charity = ?)", []any{"A"}},
		{"and", `[{"filter":"equals","field":"charity","value":"A"},{"filter":"greater","field":"commentId","value":1}]`,
			"(charity = ? AND comment_id > ?)", []any{"A", int64(1)}},
		{"or", `{"filter":"or","arguments":[{"filter":"equals","field":"charity","value":"A"},{"filter":"equals","field":"charity","value":"B"}]}`,
			"(charity = ? OR charity = ?)", []any{"A", "B"}},
		{"empty and", `{"filter":"and","arguments":[]}`, "(1=1)", []any{}},
		{"empty or", `{"filter":"or","arguments":[]}`, "(1=0)", []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := mustCompile(t, b, tt.doc)
			sql, args := encode(t, enc, node)
			if sql != tt.wantSQL {
				t.Errorf("expected SQL %q, got %q", tt.wantSQL, sql)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("expected args %v, got %v", tt.wantArgs, args)
			}
		})
	}
}

func TestSQLEncoderTimestampOperand(t *testing.T) {
	b := newTestBuilder()
	enc := NewSQLEncoder(b.Entity(), nil)

	node, err := b.GreaterThan("insertTime", IntValue(1700000000000))
	if err != nil {
		t.Fatal(err)
	}
	sql, args := encode(t, enc, node)
	if sql != "insert_time > ?" {
		t.Errorf("unexpected SQL: %s", sql)
	}
	want := time.UnixMilli(1700000000000).UTC()
	if len(args) != 1 || !args[0].(time.Time).Equal(want) {
		t.Errorf("expected %v, got %v", want, args)
	}
}

func TestSQLEncoderLikeEscaping(t *testing.T) {
	b := newTestBuilder()
	node, _ := b.Like("comment", `50%_off\\`)

	_, args := encode(t, NewSQLEncoder(b.Entity(), nil), node)
	if args[0] != `50%_off\\` {
		t.Errorf("default encoding should pass the pattern through, got %v", args[0])
	}

	node, _ = b.Like("comment", `50%_off\`)
	_, args = encode(t, NewSQLEncoder(b.Entity(), &EncoderOptions{EscapeLikeWildcards: true}), node)
	if args[0] != `50\%\_off\\` {
		t.Errorf("expected escaped pattern, got %v", args[0])
	}
}

func TestSQLEncoderLikeUnpairedEscape(t *testing.T) {
	b := newTestBuilder()

	for _, pattern := range []string{`abc\`, `\`, `a\\\`} {
		node, err := b.Like("comment", pattern)
		if err != nil {
			t.Fatalf("Like(%q) failed: %v", pattern, err)
		}
		_, err = NewSQLEncoder(b.Entity(), nil).Encode(node)
		var mf *MalformedFilterError
		if !errors.As(err, &mf) || !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("pattern %q: expected malformed filter, got %v", pattern, err)
		}
	}

	// literal matching doubles the escape, so the same pattern is fine
	node, _ := b.Like("comment", `abc\`)
	if _, err := NewSQLEncoder(b.Entity(), &EncoderOptions{EscapeLikeWildcards: true}).Encode(node); err != nil {
		t.Errorf("escaped pattern should encode, got %v", err)
	}
}

func TestSQLEncoderColumnOptions(t *testing.T) {
	b := newTestBuilder()
	enc := NewSQLEncoder(b.Entity(), &EncoderOptions{
		ColumnMapping:     map[string]string{"charity": "org_name"},
		ColumnExpressions: map[string]string{"comment": "lower(body)"},
	})

	node := mustCompile(t, b, `[{"filter":"equals","field":"charity","value":"A"},{"filter":"like","field":"comment","value":"a%"}]`)
	sql, _ := encode(t, enc, node)
	if sql != `(org_name = ? AND lower(body) LIKE ? ESCAPE '\')` {
		t.Errorf("unexpected SQL: %s", sql)
	}

	col, err := enc.Column("commentUser")
	if err != nil || col != "comment_user" {
		t.Errorf("unexpected column: %s, %v", col, err)
	}
	if _, err := enc.Column("missing"); err == nil {
		t.Error("expected error for unknown column")
	}
	if enc.Table() != "comments" {
		t.Errorf("unexpected table: %s", enc.Table())
	}
	want := []string{"comment_id", "org_name", "lower(body)", "comment_user", "flagged", "insert_time"}
	if !reflect.DeepEqual(enc.Columns(), want) {
		t.Errorf("expected columns %v, got %v", want, enc.Columns())
	}
}

func TestSQLEncoderRevalidates(t *testing.T) {
	other := catalog.MustEntity(catalog.EntityDef{
		Name: "charity",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "orgId", Type: arrow.BinaryTypes.String},
		}, nil),
	})

	b := newTestBuilder()
	node, _ := b.EqualTo("charity", StringValue("A"))

	_, err := NewSQLEncoder(other, nil).Encode(node)
	var uf *UnknownFieldError
	if !errors.As(err, &uf) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}

	forged := &Boolean{Op: Not, Children: []Node{node, node}}
	if _, err := NewSQLEncoder(b.Entity(), nil).Encode(forged); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected invalid filter for forged not, got %v", err)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"charity":     "charity",
		"comment_id":  "comment_id",
		"commentUser": `"commentUser"`,
		"order":       `"order"`,
		"1abc":        `"1abc"`,
		`we"ird`:      `"we""ird"`,
	}
	for in, want := range tests {
		if got := QuoteIdentifier(in); got != want {
			t.Errorf("QuoteIdentifier(%q) = %s, want %s", in, got, want)
		}
	}
}
