package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/filter"
	"github.com/hugr-lab/filterql/internal/metrics"
	"github.com/hugr-lab/filterql/internal/recovery"
)

func testEntity() *catalog.Entity {
	return catalog.MustEntity(catalog.EntityDef{
		Name:  "comment",
		Table: "comments",
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: "commentId", Type: arrow.PrimitiveTypes.Int32},
			{Name: "charity", Type: arrow.BinaryTypes.String},
			{Name: "comment", Type: arrow.BinaryTypes.String},
			{Name: "commentUser", Type: arrow.BinaryTypes.String},
		}, nil),
		Columns: map[string]string{
			"commentId":   "comment_id",
			"commentUser": "comment_user",
		},
		OwnerField: "commentUser",
		Key:        []string{"charity", "commentId"},
	})
}

// fakeStore records statements and replays canned rows.
type fakeStore struct {
	mu    sync.Mutex
	rows  [][]any
	err   error
	panic any
	stmts []Statement
}

func (s *fakeStore) Query(ctx context.Context, stmt Statement) ([][]any, error) {
	s.mu.Lock()
	s.stmts = append(s.stmts, stmt)
	s.mu.Unlock()
	if s.panic != nil {
		panic(s.panic)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.rows, s.err
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stmts)
}

type dollarStore struct{ fakeStore }

func (*dollarStore) PlaceholderFormat() sq.PlaceholderFormat { return sq.Dollar }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor(store Store, opts ...Option) *Executor[Record] {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewExecutor(store, testEntity(), RecordDecoder, opts...)
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		build    func(b *filter.Builder) (filter.Node, error)
		order    Order
		page     Page
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			wantSQL: `SELECT comment_id, charity, "comment", comment_user FROM comments`,
		},
		{
			name: "equals",
			build: func(b *filter.Builder) (filter.Node, error) {
				return b.EqualTo("charity", filter.StringValue("oxfam"))
			},
			wantSQL:  `SELECT comment_id, charity, "comment", comment_user FROM comments WHERE charity = ?`,
			wantArgs: []any{"oxfam"},
		},
		{
			name: "ordered",
			build: func(b *filter.Builder) (filter.Node, error) {
				return b.GreaterThan("commentId", filter.IntValue(3))
			},
			order:    Desc("commentId"),
			wantSQL:  `SELECT comment_id, charity, "comment", comment_user FROM comments WHERE comment_id > ? ORDER BY comment_id DESC`,
			wantArgs: []any{int64(3)},
		},
		{
			name:    "windowed adds key tiebreaker",
			order:   Asc("charity"),
			page:    Window(4, 2),
			wantSQL: `SELECT comment_id, charity, "comment", comment_user FROM comments ORDER BY charity ASC, comment_id ASC LIMIT 2 OFFSET 4`,
		},
		{
			name:    "windowed without order",
			page:    Window(0, 10),
			wantSQL: `SELECT comment_id, charity, "comment", comment_user FROM comments ORDER BY charity ASC, comment_id ASC LIMIT 10`,
		},
		{
			name: "empty or",
			build: func(b *filter.Builder) (filter.Node, error) {
				return b.Or()
			},
			wantSQL: `SELECT comment_id, charity, "comment", comment_user FROM comments WHERE (1=0)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor(&fakeStore{})
			var node filter.Node
			if tt.build != nil {
				var err error
				node, err = tt.build(exec.Builder())
				require.NoError(t, err)
			}
			stmt, err := exec.Plan(node, tt.order, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Args)
		})
	}
}

func TestPlanPlaceholderFromStore(t *testing.T) {
	exec := newTestExecutor(&dollarStore{})
	node, err := exec.Builder().EqualTo("commentUser", filter.StringValue("alice"))
	require.NoError(t, err)

	stmt, err := exec.Plan(node, NoOrder(), Unbounded())
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "comment_user = $1")
}

func TestPlanMaxLimit(t *testing.T) {
	exec := newTestExecutor(&fakeStore{}, WithMaxLimit(50))

	stmt, err := exec.Plan(nil, NoOrder(), Unbounded())
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LIMIT 50")

	stmt, err = exec.Plan(nil, NoOrder(), Window(0, 500))
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LIMIT 50")
}

func TestPlanUnknownSortField(t *testing.T) {
	exec := newTestExecutor(&fakeStore{})
	_, err := exec.Plan(nil, Asc("nope"), Unbounded())

	var ufe *filter.UnknownFieldError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "nope", ufe.Field)
	assert.True(t, IsCallerFault(err))
}

func TestRunDecodesRows(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		{int32(1), "oxfam", "hello", "alice"},
		{int32(2), "unicef", "world", "bob"},
	}}
	exec := newTestExecutor(store)

	res, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, Record{"commentId": int32(2), "charity": "unicef", "comment": "world", "commentUser": "bob"}, res.Items[1])
	assert.Equal(t, 1, store.calls())
}

func TestExecutorSingleUse(t *testing.T) {
	store := &fakeStore{}
	exec := newTestExecutor(store)

	_, err := exec.RunAll(context.Background(), NoOrder(), Unbounded())
	require.NoError(t, err)

	_, err = exec.RunAll(context.Background(), NoOrder(), Unbounded())
	assert.ErrorIs(t, err, ErrExecutorUsed)
	assert.Equal(t, 1, store.calls())

	// the scope closes with the run
	_, err = exec.Builder().EqualTo("charity", filter.StringValue("oxfam"))
	assert.ErrorIs(t, err, filter.ErrScopeClosed)
}

func TestExecuteConsumesExecutorOnRejection(t *testing.T) {
	tests := []struct {
		name  string
		req   *Request
		scope Predicate
	}{
		{"missing owner", &Request{}, nil},
		{"bad filter", &Request{Filters: []byte(`{"filter":"between"}`)}, OwnedBy("alice")},
		{"bad sorting", &Request{Sorting: []byte(`{"ordering":"ascending"}`)}, OwnedBy("alice")},
		{"bad page", &Request{MaxCount: []byte(`-1`)}, OwnedBy("alice")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			exec := newTestExecutor(store)

			_, err := Execute(context.Background(), exec, tt.req, tt.scope)
			require.Error(t, err)

			_, err = exec.Run(context.Background(), nil)
			assert.ErrorIs(t, err, ErrExecutorUsed)
			_, err = Execute(context.Background(), exec, &Request{}, OwnedBy("alice"))
			assert.ErrorIs(t, err, ErrExecutorUsed)
			_, err = exec.Builder().EqualTo("charity", filter.StringValue("oxfam"))
			assert.ErrorIs(t, err, filter.ErrScopeClosed)
			assert.Equal(t, 0, store.calls())
		})
	}
}

func TestRunRejectsNodeFromAnotherExecutor(t *testing.T) {
	store := &fakeStore{rows: [][]any{{int32(1), "oxfam", "hello", "alice"}}}
	a := newTestExecutor(store)
	b := newTestExecutor(store)

	node, err := a.Builder().EqualTo("charity", filter.StringValue("oxfam"))
	require.NoError(t, err)

	_, err = b.Plan(node, NoOrder(), Unbounded())
	assert.ErrorIs(t, err, filter.ErrForeignNode)

	_, err = b.Run(context.Background(), node)
	assert.ErrorIs(t, err, filter.ErrForeignNode)
	assert.Equal(t, 0, store.calls())

	// the owning executor still accepts it
	res, err := a.Run(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
}

func TestRunRejectsUnpairedLikeEscape(t *testing.T) {
	store := &fakeStore{}
	exec := newTestExecutor(store)

	node, err := exec.Builder().Like("comment", `thanks\`)
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), node)
	require.Error(t, err)
	assert.True(t, IsCallerFault(err))
	assert.Equal(t, 0, store.calls())
}

func TestStoreFailure(t *testing.T) {
	cause := errors.New("connection reset")
	exec := newTestExecutor(&fakeStore{err: cause})

	res, err := exec.Run(context.Background(), nil)
	assert.Nil(t, res)

	var se *StoreExecutionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "comment", se.Entity)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStore)
	assert.False(t, IsCallerFault(err))
}

func TestStorePanic(t *testing.T) {
	exec := newTestExecutor(&fakeStore{panic: "driver bug"})

	_, err := exec.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, recovery.ErrPanic)
}

func TestStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExecutor(&fakeStore{}).Run(ctx, nil)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRowShapeMismatch(t *testing.T) {
	exec := newTestExecutor(&fakeStore{rows: [][]any{{int32(1), "oxfam"}}})

	res, err := exec.Run(context.Background(), nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrStore)
}

func TestDecodeFailureReturnsNoPartialResult(t *testing.T) {
	store := &fakeStore{rows: [][]any{
		{int32(1), "oxfam", "a", "alice"},
		{int32(2), "oxfam", "b", "bob"},
	}}
	decode := func(r Record) (string, error) {
		if r["commentUser"] == "bob" {
			return "", errors.New("bad row")
		}
		return r["comment"].(string), nil
	}
	exec := NewExecutor(store, testEntity(), decode, WithLogger(quietLogger()))

	res, err := exec.Run(context.Background(), nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrStore)
}

func TestExecutorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	store := &fakeStore{rows: [][]any{{int32(1), "oxfam", "a", "alice"}}}
	_, err = newTestExecutor(store, WithMetrics(m)).Run(context.Background(), nil)
	require.NoError(t, err)

	_, err = newTestExecutor(store, WithMetrics(m)).RunAll(context.Background(), Asc("missing"), Unbounded())
	require.Error(t, err)

	_, err = newTestExecutor(&fakeStore{err: errors.New("down")}, WithMetrics(m)).Run(context.Background(), nil)
	require.Error(t, err)

	expected := `
# HELP filterql_queries_total Total number of entity queries by outcome
# TYPE filterql_queries_total counter
filterql_queries_total{entity="comment",outcome="invalid"} 1
filterql_queries_total{entity="comment",outcome="ok"} 1
filterql_queries_total{entity="comment",outcome="store_error"} 1
# HELP filterql_rows_returned_total Total number of rows returned to callers
# TYPE filterql_rows_returned_total counter
filterql_rows_returned_total{entity="comment"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"filterql_queries_total", "filterql_rows_returned_total"))
}
