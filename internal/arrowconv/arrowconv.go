// Package arrowconv converts materialized query records into Arrow record
// batches laid out by the entity schema.
package arrowconv

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/query"
)

// DefaultBatchSize is the number of rows per batch when none is given.
const DefaultBatchSize = 1024

// ErrValueType is returned when a record value does not fit its column.
var ErrValueType = errors.New("arrowconv: value does not match column type")

// Batches splits records into record batches of at most size rows.
// An empty input yields no batches. Callers release every batch.
func Batches(mem memory.Allocator, entity *catalog.Entity, records []query.Record, size int) ([]arrow.RecordBatch, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var out []arrow.RecordBatch
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batch, err := RecordBatch(mem, entity, records[start:end])
		if err != nil {
			for _, b := range out {
				b.Release()
			}
			return nil, err
		}
		out = append(out, batch)
	}
	return out, nil
}

// RecordBatch builds one batch holding every record.
func RecordBatch(mem memory.Allocator, entity *catalog.Entity, records []query.Record) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	builder := array.NewRecordBuilder(mem, entity.ArrowSchema())
	defer builder.Release()
	builder.Reserve(len(records))

	for i, f := range entity.Fields() {
		fb := builder.Field(i)
		for row, rec := range records {
			v := rec[f.Name]
			if v == nil {
				fb.AppendNull()
				continue
			}
			if err := appendValue(fb, v); err != nil {
				return nil, fmt.Errorf("row %d field %s: %w", row, f.Name, err)
			}
		}
	}

	return builder.NewRecordBatch(), nil
}

func appendValue(b array.Builder, v any) error {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return mismatch(v, "bool")
		}
		b.Append(x)

	case *array.Int8Builder:
		n, err := toInt(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		b.Append(int8(n))
	case *array.Int16Builder:
		n, err := toInt(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		b.Append(int16(n))
	case *array.Int32Builder:
		n, err := toInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		b.Append(int32(n))
	case *array.Int64Builder:
		n, err := toInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Uint8Builder:
		n, err := toInt(v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		b.Append(uint8(n))
	case *array.Uint16Builder:
		n, err := toInt(v, 0, math.MaxUint16)
		if err != nil {
			return err
		}
		b.Append(uint16(n))
	case *array.Uint32Builder:
		n, err := toInt(v, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		b.Append(uint32(n))
	case *array.Uint64Builder:
		n, err := toInt(v, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(uint64(n))

	case *array.Float32Builder:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		b.Append(float32(f))
	case *array.Float64Builder:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		b.Append(f)

	case *array.StringBuilder:
		s, err := toString(v)
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.LargeStringBuilder:
		s, err := toString(v)
		if err != nil {
			return err
		}
		b.Append(s)

	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(v, "timestamp")
		}
		unit := b.Type().(*arrow.TimestampType).Unit
		ts, err := arrow.TimestampFromTime(t, unit)
		if err != nil {
			return err
		}
		b.Append(ts)
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(v, "date")
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.Date64Builder:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(v, "date")
		}
		b.Append(arrow.Date64FromTime(t))

	default:
		return fmt.Errorf("%w: unsupported column type %s", ErrValueType, b.Type())
	}
	return nil
}

func toInt(v any, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case int:
		n = int64(x)
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows", ErrValueType, x)
		}
		n = int64(x)
	default:
		return 0, mismatch(v, "integer")
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %d out of range", ErrValueType, n)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	n, err := toInt(v, math.MinInt64, math.MaxInt64)
	if err != nil {
		return 0, mismatch(v, "number")
	}
	return float64(n), nil
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	default:
		return "", mismatch(v, "string")
	}
}

func mismatch(v any, want string) error {
	return fmt.Errorf("%w: want %s, got %T", ErrValueType, want, v)
}
