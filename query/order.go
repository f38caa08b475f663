package query

import (
	"bytes"
	"encoding/json"
)

// Direction is a sort direction.
type Direction int

const (
	DirectionNone Direction = iota
	Ascending
	Descending
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "none"
	}
}

// Order is a single-field sort. A direction other than DirectionNone
// always has a field.
type Order struct {
	Field     string
	Direction Direction
}

// NoOrder leaves result order to the store.
func NoOrder() Order { return Order{} }

// Asc sorts by field ascending.
func Asc(field string) Order { return Order{Field: field, Direction: Ascending} }

// Desc sorts by field descending.
func Desc(field string) Order { return Order{Field: field, Direction: Descending} }

// IsNone reports whether no sort is requested.
func (o Order) IsNone() bool { return o.Direction == DirectionNone }

// Validate reports a direction without a field.
func (o Order) Validate() error {
	if o.Direction != DirectionNone && o.Field == "" {
		return &InvalidOrderingError{Ordering: o.Direction.String(), Reason: "a direction requires a field"}
	}
	return nil
}

type rawOrder struct {
	Field    json.RawMessage `json:"field"`
	Ordering json.RawMessage `json:"ordering"`
}

// ParseOrder reads a {"field": ..., "ordering": "ascending"|"descending"} object.
//
// Absent input or an absent/unrecognized ordering yields NoOrder. A
// recognized ordering without a field is an *InvalidOrderingError.
func ParseOrder(data []byte) (Order, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return NoOrder(), nil
	}
	if data[0] != '{' {
		return Order{}, &InvalidOrderingError{Reason: "sorting must be an object"}
	}

	var raw rawOrder
	if err := json.Unmarshal(data, &raw); err != nil {
		return Order{}, &InvalidOrderingError{Reason: err.Error()}
	}

	var ordering string
	if len(raw.Ordering) > 0 {
		// non-string orderings are unrecognized, not errors
		_ = json.Unmarshal(raw.Ordering, &ordering)
	}

	var dir Direction
	switch ordering {
	case "ascending":
		dir = Ascending
	case "descending":
		dir = Descending
	default:
		return NoOrder(), nil
	}

	var field string
	if len(raw.Field) > 0 && !bytes.Equal(raw.Field, []byte("null")) {
		if err := json.Unmarshal(raw.Field, &field); err != nil {
			return Order{}, &InvalidOrderingError{Ordering: ordering, Reason: "field must be a string"}
		}
	}

	o := Order{Field: field, Direction: dir}
	if err := o.Validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}
