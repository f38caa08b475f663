// Package duckdb is a query.Store backed by DuckDB through database/sql.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/query"
	"github.com/hugr-lab/filterql/store"
)

// Store runs lowered statements on a DuckDB database.
type Store struct {
	db     *sql.DB
	owned  bool
	logger *slog.Logger
}

// Open opens the database at path. An empty path opens an in-memory
// database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb %q: %w", path, err)
	}

	s := New(db, logger)
	s.owned = true
	return s, nil
}

// New wraps an existing connection pool. Close does not close db.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// PlaceholderFormat implements query.PlaceholderStore.
func (s *Store) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }

// Query implements query.Store.
func (s *Store) Query(ctx context.Context, stmt query.Statement) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTable creates the backing table of entity if it does not exist.
func (s *Store) CreateTable(ctx context.Context, entity *catalog.Entity) error {
	ddl, err := store.DuckDB.CreateTable(entity)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", entity.Table(), err)
	}
	s.logger.Debug("Table created", "entity", entity.Name(), "table", entity.Table())
	return nil
}

// Insert writes records into the backing table of entity in one transaction.
func (s *Store) Insert(ctx context.Context, entity *catalog.Entity, records ...map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, rec := range records {
		sqlStr, args, err := store.DuckDB.Insert(entity, rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", entity.Name(), i, err)
		}
	}
	return tx.Commit()
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
