// Package postgres is a query.Store backed by a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/query"
	"github.com/hugr-lab/filterql/store"
)

// Store runs lowered statements on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// PlaceholderFormat implements query.PlaceholderStore.
func (s *Store) PlaceholderFormat() sq.PlaceholderFormat { return sq.Dollar }

// Query implements query.Store.
func (s *Store) Query(ctx context.Context, stmt query.Statement) ([][]any, error) {
	rows, err := s.pool.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
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
	ddl, err := store.Postgres.CreateTable(entity)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", entity.Table(), err)
	}
	s.logger.Debug("Table created", "entity", entity.Name(), "table", entity.Table())
	return nil
}

// Insert writes records into the backing table of entity in one transaction.
func (s *Store) Insert(ctx context.Context, entity *catalog.Entity, records ...map[string]any) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i, rec := range records {
			sqlStr, args, err := store.Postgres.Insert(entity, rec)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
				return fmt.Errorf("insert %s row %d: %w", entity.Name(), i, err)
			}
		}
		return nil
	})
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
