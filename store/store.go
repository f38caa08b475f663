// Package store holds the SQL helpers shared by the database backends:
// DDL derived from entity schemas and row inserts for seeding tables.
//
// Backends live in subpackages (store/duckdb, store/postgres) and satisfy
// query.Store.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/filter"
)

// ErrUnknownColumn is returned when a seeded record names a field the
// entity does not declare.
var ErrUnknownColumn = errors.New("store: record field not in entity")

// Dialect spells column types for one database.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	Timestamp   string
	Double      string
	Float       string
}

var (
	// DuckDB dialect.
	DuckDB = Dialect{Name: "duckdb", Placeholder: sq.Question, Timestamp: "TIMESTAMP", Double: "DOUBLE", Float: "REAL"}

	// Postgres dialect.
	Postgres = Dialect{Name: "postgres", Placeholder: sq.Dollar, Timestamp: "TIMESTAMPTZ", Double: "DOUBLE PRECISION", Float: "REAL"}
)

// ColumnType returns the column type for an Arrow type.
func (d Dialect) ColumnType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return "BOOLEAN", nil
	case arrow.INT8, arrow.INT16, arrow.UINT8:
		return "SMALLINT", nil
	case arrow.INT32, arrow.UINT16:
		return "INTEGER", nil
	case arrow.INT64, arrow.UINT32, arrow.UINT64:
		return "BIGINT", nil
	case arrow.FLOAT16, arrow.FLOAT32:
		return d.Float, nil
	case arrow.FLOAT64:
		return d.Double, nil
	case arrow.DECIMAL128, arrow.DECIMAL256:
		dec := dt.(arrow.DecimalType)
		return fmt.Sprintf("DECIMAL(%d,%d)", dec.GetPrecision(), dec.GetScale()), nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return "VARCHAR", nil
	case arrow.TIMESTAMP:
		return d.Timestamp, nil
	case arrow.DATE32, arrow.DATE64:
		return "DATE", nil
	default:
		return "", fmt.Errorf("%w: %s", catalog.ErrUnsupportedType, dt)
	}
}

// CreateTable returns the CREATE TABLE statement for entity.
func (d Dialect) CreateTable(entity *catalog.Entity) (string, error) {
	fields := entity.Fields()
	cols := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		typ, err := d.ColumnType(f.Type)
		if err != nil {
			return "", fmt.Errorf("entity %s field %s: %w", entity.Name(), f.Name, err)
		}
		col := filter.QuoteIdentifier(f.Column) + " " + typ
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	if key := entity.Key(); len(key) > 0 {
		keyCols := make([]string, len(key))
		for i, k := range key {
			f, _ := entity.Field(k)
			keyCols[i] = filter.QuoteIdentifier(f.Column)
		}
		cols = append(cols, "PRIMARY KEY ("+strings.Join(keyCols, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		filter.QuoteIdentifier(entity.Table()), strings.Join(cols, ", ")), nil
}

// Insert builds an INSERT for one record keyed by field name.
// Fields missing from rec are inserted as NULL.
func (d Dialect) Insert(entity *catalog.Entity, rec map[string]any) (string, []any, error) {
	for name := range rec {
		if _, ok := entity.Field(name); !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, entity.Name(), name)
		}
	}

	fields := entity.Fields()
	cols := make([]string, len(fields))
	vals := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = filter.QuoteIdentifier(f.Column)
		vals[i] = normalize(rec[f.Name])
	}

	return sq.StatementBuilder.
		PlaceholderFormat(d.Placeholder).
		Insert(filter.QuoteIdentifier(entity.Table())).
		Columns(cols...).
		Values(vals...).
		ToSql()
}

func normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}
