// Package serialize encodes entity descriptions for the describe_entities
// Flight action: MessagePack, then ZStandard.
package serialize

import (
	"fmt"

	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/internal/msgpack"
)

// FieldDescriptor describes one filterable field.
type FieldDescriptor struct {
	Name     string `msgpack:"name"`
	Kind     string `msgpack:"kind"`
	Type     string `msgpack:"type"`
	Nullable bool   `msgpack:"nullable"`
}

// EntityDescriptor describes one entity as clients see it.
// Storage details such as table and column names are not exposed.
type EntityDescriptor struct {
	Name       string            `msgpack:"name"`
	Comment    string            `msgpack:"comment,omitempty"`
	OwnerField string            `msgpack:"owner_field,omitempty"`
	Key        []string          `msgpack:"key,omitempty"`
	Fields     []FieldDescriptor `msgpack:"fields"`
}

// Describe builds descriptors for entities, in order.
func Describe(entities []*catalog.Entity) []EntityDescriptor {
	out := make([]EntityDescriptor, 0, len(entities))
	for _, e := range entities {
		d := EntityDescriptor{
			Name:       e.Name(),
			Comment:    e.Comment(),
			OwnerField: e.OwnerField(),
			Key:        e.Key(),
		}
		for _, f := range e.Fields() {
			d.Fields = append(d.Fields, FieldDescriptor{
				Name:     f.Name,
				Kind:     f.Kind.String(),
				Type:     f.Type.String(),
				Nullable: f.Nullable,
			})
		}
		out = append(out, d)
	}
	return out
}

// EncodeDescriptors serializes and compresses descriptors.
func EncodeDescriptors(descs []EntityDescriptor) ([]byte, error) {
	data, err := msgpack.Encode(descs)
	if err != nil {
		return nil, err
	}
	return Compress(data)
}

// DecodeDescriptors reverses EncodeDescriptors.
func DecodeDescriptors(data []byte) ([]EntityDescriptor, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	var descs []EntityDescriptor
	if err := msgpack.Decode(raw, &descs); err != nil {
		return nil, fmt.Errorf("entity descriptors: %w", err)
	}
	return descs, nil
}
