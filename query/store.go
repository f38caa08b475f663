package query

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

// Statement is one lowered SELECT.
type Statement struct {
	SQL  string
	Args []any
}

// Store executes lowered statements against the backing database.
// Implementations MUST be goroutine-safe.
type Store interface {
	// Query runs stmt and returns every row, values in SELECT-list order.
	// Rows are fully read before returning; no cursor stays open.
	// MUST respect context cancellation.
	Query(ctx context.Context, stmt Statement) ([][]any, error)
}

// PlaceholderStore is implemented by stores whose driver does not accept
// ? placeholders.
type PlaceholderStore interface {
	PlaceholderFormat() sq.PlaceholderFormat
}

// Record is one row keyed by entity field name.
type Record map[string]any

// DecodeFunc converts a record into the caller's entity type.
type DecodeFunc[T any] func(Record) (T, error)

// RecordDecoder returns records unchanged.
func RecordDecoder(r Record) (Record, error) { return r, nil }

// Result is an eagerly materialized, ordered result set.
type Result[T any] struct {
	Items []T
}

// Len returns the number of items.
func (r *Result[T]) Len() int { return len(r.Items) }
