package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/filter"
	"github.com/hugr-lab/filterql/internal/metrics"
	"github.com/hugr-lab/filterql/internal/recovery"
)

type options struct {
	logger      *slog.Logger
	metrics     *metrics.Collector
	placeholder sq.PlaceholderFormat
	encoder     *filter.EncoderOptions
	compile     filter.CompileOptions
	maxLimit    uint64
}

// Option configures an Executor.
type Option func(*options)

// WithLogger sets the executor logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records executions on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithPlaceholder overrides the placeholder format advertised by the store.
func WithPlaceholder(p sq.PlaceholderFormat) Option {
	return func(o *options) { o.placeholder = p }
}

// WithEncoderOptions configures filter lowering.
func WithEncoderOptions(opts filter.EncoderOptions) Option {
	return func(o *options) { o.encoder = &opts }
}

// WithCompileOptions bounds the size of client filter trees.
func WithCompileOptions(c filter.CompileOptions) Option {
	return func(o *options) { o.compile = c }
}

// WithMaxLimit caps every page at n rows. Zero means no cap.
func WithMaxLimit(n uint64) Option {
	return func(o *options) { o.maxLimit = n }
}

// Executor runs one query for one entity against a Store.
//
// An Executor is request-scoped and single-use: it owns the query scope
// its Builder is bound to, and the scope closes when the run finishes.
type Executor[T any] struct {
	store   Store
	entity  *catalog.Entity
	decode  DecodeFunc[T]
	scope   *filter.Scope
	builder *filter.Builder
	encoder *filter.SQLEncoder
	opts    options
	used    atomic.Bool
}

// NewExecutor creates an executor for entity.
func NewExecutor[T any](store Store, entity *catalog.Entity, decode DecodeFunc[T], opts ...Option) *Executor[T] {
	o := options{placeholder: sq.Question}
	if ps, ok := store.(PlaceholderStore); ok {
		o.placeholder = ps.PlaceholderFormat()
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	scope := filter.NewScope()
	return &Executor[T]{
		store:   store,
		entity:  entity,
		decode:  decode,
		scope:   scope,
		builder: filter.NewBuilder(scope, entity),
		encoder: filter.NewSQLEncoder(entity, o.encoder),
		opts:    o,
	}
}

// Builder returns the filter builder bound to this executor's query.
func (e *Executor[T]) Builder() *filter.Builder { return e.builder }

// Entity returns the queried entity.
func (e *Executor[T]) Entity() *catalog.Entity { return e.entity }

// Run returns every row matching node, in store order.
// A nil node matches every row.
func (e *Executor[T]) Run(ctx context.Context, node filter.Node) (*Result[T], error) {
	return e.execute(ctx, node, NoOrder(), Unbounded())
}

// RunOrdered returns the page of rows matching node, sorted by order.
func (e *Executor[T]) RunOrdered(ctx context.Context, node filter.Node, order Order, page Page) (*Result[T], error) {
	return e.execute(ctx, node, order, page)
}

// RunAll returns a page of all rows, sorted by order.
func (e *Executor[T]) RunAll(ctx context.Context, order Order, page Page) (*Result[T], error) {
	return e.execute(ctx, nil, order, page)
}

// Plan lowers a query without running it.
// The node must come from this executor's Builder; otherwise Plan
// returns filter.ErrForeignNode.
func (e *Executor[T]) Plan(node filter.Node, order Order, page Page) (Statement, error) {
	if node != nil && !e.scope.Owns(node) {
		return Statement{}, filter.ErrForeignNode
	}
	if err := order.Validate(); err != nil {
		return Statement{}, err
	}
	page = page.Clamp(e.opts.maxLimit)

	sb := sq.StatementBuilder.
		PlaceholderFormat(e.opts.placeholder).
		Select(e.encoder.Columns()...).
		From(e.encoder.Table())

	if node != nil {
		where, err := e.encoder.Encode(node)
		if err != nil {
			return Statement{}, err
		}
		sb = sb.Where(where)
	}

	orderBy, err := e.orderBy(order, page)
	if err != nil {
		return Statement{}, err
	}
	if len(orderBy) > 0 {
		sb = sb.OrderBy(orderBy...)
	}

	if page.HasLimit {
		sb = sb.Limit(page.Limit)
	}
	if page.Offset > 0 {
		sb = sb.Offset(page.Offset)
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build statement: %w", err)
	}
	return Statement{SQL: sql, Args: args}, nil
}

// orderBy adds the entity key after the requested sort when the result is
// windowed, so consecutive pages never overlap.
func (e *Executor[T]) orderBy(order Order, page Page) ([]string, error) {
	var clauses []string
	used := make(map[string]bool)

	if !order.IsNone() {
		col, err := e.encoder.Column(order.Field)
		if err != nil {
			return nil, err
		}
		dir := " ASC"
		if order.Direction == Descending {
			dir = " DESC"
		}
		clauses = append(clauses, col+dir)
		used[order.Field] = true
	}

	if page.IsWindowed() {
		for _, k := range e.entity.Key() {
			if used[k] {
				continue
			}
			col, err := e.encoder.Column(k)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, col+" ASC")
		}
	}
	return clauses, nil
}

func (e *Executor[T]) execute(ctx context.Context, node filter.Node, order Order, page Page) (*Result[T], error) {
	if !e.claim() {
		return nil, ErrExecutorUsed
	}
	defer e.scope.Close()
	return e.run(ctx, node, order, page)
}

// claim marks the executor used. It succeeds once.
func (e *Executor[T]) claim() bool { return e.used.CompareAndSwap(false, true) }

// run executes a planned query. The caller must hold the claim.
func (e *Executor[T]) run(ctx context.Context, node filter.Node, order Order, page Page) (*Result[T], error) {
	logger := e.opts.logger.With("entity", e.entity.Name(), "query_id", e.scope.ID().String())

	stmt, err := e.Plan(node, order, page)
	if err != nil {
		e.opts.metrics.Rejected(e.entity.Name())
		logger.Debug("Query rejected", "error", err)
		return nil, err
	}

	logger.Debug("Executing query", "sql", stmt.SQL, "args", len(stmt.Args))

	start := time.Now()
	rows, err := recovery.RecoverToValue(logger, "store query", func() ([][]any, error) {
		return e.store.Query(ctx, stmt)
	})
	elapsed := time.Since(start)
	if err != nil {
		e.opts.metrics.Observe(e.entity.Name(), metrics.OutcomeStoreFailed, 0, elapsed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Debug("Query cancelled", "error", err)
		} else {
			logger.Error("Store query failed", "error", err, "sql", stmt.SQL)
		}
		return nil, &StoreExecutionError{Entity: e.entity.Name(), Err: err}
	}

	items, err := e.decodeRows(logger, rows)
	if err != nil {
		e.opts.metrics.Observe(e.entity.Name(), metrics.OutcomeStoreFailed, 0, elapsed)
		logger.Error("Row decoding failed", "error", err)
		return nil, &StoreExecutionError{Entity: e.entity.Name(), Err: err}
	}

	e.opts.metrics.Observe(e.entity.Name(), metrics.OutcomeOK, len(items), elapsed)
	logger.Debug("Query completed", "rows", len(items), "duration", elapsed)

	return &Result[T]{Items: items}, nil
}

func (e *Executor[T]) decodeRows(logger *slog.Logger, rows [][]any) ([]T, error) {
	fields := e.entity.Fields()
	items := make([]T, 0, len(rows))

	for i, row := range rows {
		if len(row) != len(fields) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), len(fields))
		}
		rec := make(Record, len(fields))
		for j, f := range fields {
			rec[f.Name] = row[j]
		}
		item, err := recovery.RecoverToValue(logger, "decode row", func() (T, error) {
			return e.decode(rec)
		})
		if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
