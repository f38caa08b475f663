package catalog

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the filter-level classification of an entity field.
// Operand compatibility is decided on Kind, not on the concrete Arrow type.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindNumber
	KindString
	KindTimestamp
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	default:
		return "invalid"
	}
}

// KindOf classifies an Arrow data type.
// Returns ErrUnsupportedType for types that cannot appear in a filter.
func KindOf(dt arrow.DataType) (Kind, error) {
	if dt == nil {
		return KindInvalid, fmt.Errorf("%w: nil type", ErrUnsupportedType)
	}

	switch dt.ID() {
	case arrow.BOOL:
		return KindBool, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return KindNumber, nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return KindString, nil
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return KindTimestamp, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
}

// ParseType maps a declared column type name to an Arrow type.
// Names follow DuckDB spelling; common aliases are accepted.
func ParseType(name string) (arrow.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "smallint", "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int", "integer", "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "bigint", "int64", "long":
		return arrow.PrimitiveTypes.Int64, nil
	case "real", "float", "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "double", "float64", "number":
		return arrow.PrimitiveTypes.Float64, nil
	case "varchar", "text", "string":
		return arrow.BinaryTypes.String, nil
	case "timestamp", "datetime":
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case "date":
		return arrow.FixedWidthTypes.Date32, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
}
