// Package catalog describes the entity collections a filter may address.
//
// An Entity is a named, typed collection backed by one store table. Each
// field has an API name, a storage column and a Kind used to check filter
// operands. Entities optionally declare an owner field: the column that
// identifies the user a row belongs to. Servers use it to scope every query
// to the caller.
//
// Schemas are immutable after construction and safe for concurrent reads.
// Build them with NewStaticSchema, the root package builder or LoadYAML.
package catalog

import "errors"

var (
	// ErrInvalidEntity indicates an entity definition failed validation.
	ErrInvalidEntity = errors.New("invalid entity definition")

	// ErrUnsupportedType indicates a column type with no filter Kind.
	ErrUnsupportedType = errors.New("unsupported column type")
)

// Schema is a read-only registry of entities.
// Implementations MUST be goroutine-safe.
type Schema interface {
	// Entity returns the entity with the given name.
	Entity(name string) (*Entity, bool)

	// Entities returns all entities ordered by name.
	Entities() []*Entity
}
