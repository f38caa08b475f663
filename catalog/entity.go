package catalog

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// EntityDef declares an entity.
type EntityDef struct {
	// Name is the API name clients use to address the entity.
	// REQUIRED.
	Name string

	// Table is the backing store table.
	// OPTIONAL: defaults to Name.
	Table string

	// Comment is optional documentation.
	Comment string

	// Schema lists the entity fields as Arrow fields.
	// REQUIRED: every field type must map to a Kind.
	Schema *arrow.Schema

	// Columns maps field names to storage column names.
	// Fields not in the map are stored under their own name.
	Columns map[string]string

	// OwnerField names the field that identifies the owning user.
	// OPTIONAL: empty means rows are not owner-scoped.
	OwnerField string

	// Key lists fields that uniquely identify a row.
	// OPTIONAL: used as a tiebreaker so paged results are stable.
	Key []string
}

// Field is one typed attribute of an entity.
type Field struct {
	Name     string
	Column   string
	Kind     Kind
	Type     arrow.DataType
	Nullable bool
}

// Entity is a validated, immutable entity description.
type Entity struct {
	name       string
	table      string
	comment    string
	fields     []Field
	index      map[string]int
	ownerField string
	key        []string
	schema     *arrow.Schema
}

// NewEntity validates def and returns the entity.
func NewEntity(def EntityDef) (*Entity, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidEntity)
	}
	if def.Schema == nil || def.Schema.NumFields() == 0 {
		return nil, fmt.Errorf("%w: entity %s has no fields", ErrInvalidEntity, def.Name)
	}

	e := &Entity{
		name:       def.Name,
		table:      def.Table,
		comment:    def.Comment,
		fields:     make([]Field, 0, def.Schema.NumFields()),
		index:      make(map[string]int, def.Schema.NumFields()),
		ownerField: def.OwnerField,
		schema:     def.Schema,
	}
	if e.table == "" {
		e.table = def.Name
	}

	for _, af := range def.Schema.Fields() {
		if af.Name == "" {
			return nil, fmt.Errorf("%w: entity %s has an unnamed field", ErrInvalidEntity, def.Name)
		}
		if _, dup := e.index[af.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %s in entity %s", ErrInvalidEntity, af.Name, def.Name)
		}
		kind, err := KindOf(af.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s.%s: %v", ErrInvalidEntity, def.Name, af.Name, err)
		}
		column := af.Name
		if c, ok := def.Columns[af.Name]; ok && c != "" {
			column = c
		}
		e.index[af.Name] = len(e.fields)
		e.fields = append(e.fields, Field{
			Name:     af.Name,
			Column:   column,
			Kind:     kind,
			Type:     af.Type,
			Nullable: af.Nullable,
		})
	}

	for name := range def.Columns {
		if _, ok := e.index[name]; !ok {
			return nil, fmt.Errorf("%w: column mapping for unknown field %s.%s", ErrInvalidEntity, def.Name, name)
		}
	}

	if def.OwnerField != "" {
		f, ok := e.Field(def.OwnerField)
		if !ok {
			return nil, fmt.Errorf("%w: owner field %s not found in entity %s", ErrInvalidEntity, def.OwnerField, def.Name)
		}
		if f.Kind != KindString {
			return nil, fmt.Errorf("%w: owner field %s.%s must be a string, got %s", ErrInvalidEntity, def.Name, f.Name, f.Kind)
		}
	}

	for _, k := range def.Key {
		if _, ok := e.index[k]; !ok {
			return nil, fmt.Errorf("%w: key field %s not found in entity %s", ErrInvalidEntity, k, def.Name)
		}
	}
	e.key = append([]string(nil), def.Key...)

	return e, nil
}

// MustEntity is like NewEntity but panics on error.
// Intended for package-level declarations.
func MustEntity(def EntityDef) *Entity {
	e, err := NewEntity(def)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Entity) Name() string    { return e.name }
func (e *Entity) Table() string   { return e.table }
func (e *Entity) Comment() string { return e.comment }

// OwnerField returns the owner field name, or "" when the entity is not owner-scoped.
func (e *Entity) OwnerField() string { return e.ownerField }

// Key returns the fields used as a paging tiebreaker.
func (e *Entity) Key() []string { return append([]string(nil), e.key...) }

// ArrowSchema returns the entity fields as an Arrow schema.
func (e *Entity) ArrowSchema() *arrow.Schema { return e.schema }

// Field looks up a field by its exact API name.
func (e *Entity) Field(name string) (Field, bool) {
	i, ok := e.index[name]
	if !ok {
		return Field{}, false
	}
	return e.fields[i], true
}

// Fields returns the fields in declaration order.
func (e *Entity) Fields() []Field {
	return append([]Field(nil), e.fields...)
}

// NumFields returns the number of fields.
func (e *Entity) NumFields() int { return len(e.fields) }
