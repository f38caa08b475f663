package filterql

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/filterql/catalog"
)

// SchemaBuilder builds static entity schemas using a fluent API.
// Not thread-safe - use only during initialization.
type SchemaBuilder struct {
	entities []*entityBuilder
	built    bool
}

type entityBuilder struct {
	def    catalog.EntityDef
	fields []arrow.Field
	parent *SchemaBuilder
}

// EntityBuilder adds fields and options to one entity.
type EntityBuilder struct {
	builder *entityBuilder
}

// NewSchemaBuilder creates an empty schema builder.
//
// Example:
//
//	schema, err := filterql.NewSchemaBuilder().
//	    Entity("comment").
//	        Table("comments").
//	        Field("commentId", arrow.PrimitiveTypes.Int32).Column("commentId", "comment_id").
//	        Field("commentUser", arrow.BinaryTypes.String).
//	        Owner("commentUser").
//	        Key("commentId").
//	    Entity("charity").
//	        Field("orgId", arrow.BinaryTypes.String).
//	    Build()
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{}
}

// Entity starts defining a new entity.
func (sb *SchemaBuilder) Entity(name string) *EntityBuilder {
	eb := &entityBuilder{
		def:    catalog.EntityDef{Name: name, Columns: make(map[string]string)},
		parent: sb,
	}
	sb.entities = append(sb.entities, eb)
	return &EntityBuilder{builder: eb}
}

// Build validates every entity and returns the immutable schema.
// Can only be called once.
func (sb *SchemaBuilder) Build() (catalog.Schema, error) {
	if sb.built {
		return nil, errors.New("schema already built")
	}

	entities := make([]*catalog.Entity, 0, len(sb.entities))
	for _, eb := range sb.entities {
		def := eb.def
		def.Schema = arrow.NewSchema(eb.fields, nil)
		e, err := catalog.NewEntity(def)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	schema, err := catalog.NewStaticSchema(entities...)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	sb.built = true
	return schema, nil
}

// Table sets the backing store table. Defaults to the entity name.
func (eb *EntityBuilder) Table(table string) *EntityBuilder {
	eb.builder.def.Table = table
	return eb
}

// Comment sets the entity documentation.
func (eb *EntityBuilder) Comment(comment string) *EntityBuilder {
	eb.builder.def.Comment = comment
	return eb
}

// Field adds a non-nullable field.
func (eb *EntityBuilder) Field(name string, typ arrow.DataType) *EntityBuilder {
	eb.builder.fields = append(eb.builder.fields, arrow.Field{Name: name, Type: typ})
	return eb
}

// NullableField adds a nullable field.
func (eb *EntityBuilder) NullableField(name string, typ arrow.DataType) *EntityBuilder {
	eb.builder.fields = append(eb.builder.fields, arrow.Field{Name: name, Type: typ, Nullable: true})
	return eb
}

// Column stores field under a different column name.
func (eb *EntityBuilder) Column(field, column string) *EntityBuilder {
	eb.builder.def.Columns[field] = column
	return eb
}

// Owner marks field as the owner of each row.
func (eb *EntityBuilder) Owner(field string) *EntityBuilder {
	eb.builder.def.OwnerField = field
	return eb
}

// Key sets the fields that uniquely identify a row.
func (eb *EntityBuilder) Key(fields ...string) *EntityBuilder {
	eb.builder.def.Key = fields
	return eb
}

// Entity finishes this entity and starts the next one.
func (eb *EntityBuilder) Entity(name string) *EntityBuilder {
	return eb.builder.parent.Entity(name)
}

// Build finishes this entity and builds the schema.
func (eb *EntityBuilder) Build() (catalog.Schema, error) {
	return eb.builder.parent.Build()
}
