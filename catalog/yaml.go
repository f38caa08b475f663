package catalog

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"gopkg.in/yaml.v3"
)

// entitiesFile is the on-disk declaration format:
//
//	entities:
//	  - name: comment
//	    table: comments
//	    owner: commentUser
//	    key: [commentId]
//	    fields:
//	      - name: commentId
//	        column: comment_id
//	        type: integer
//	      - name: commentUser
//	        column: comment_user
//	        type: varchar
type entitiesFile struct {
	Entities []entityDecl `yaml:"entities"`
}

type entityDecl struct {
	Name    string      `yaml:"name"`
	Table   string      `yaml:"table,omitempty"`
	Comment string      `yaml:"comment,omitempty"`
	Owner   string      `yaml:"owner,omitempty"`
	Key     []string    `yaml:"key,omitempty"`
	Fields  []fieldDecl `yaml:"fields"`
}

type fieldDecl struct {
	Name     string `yaml:"name"`
	Column   string `yaml:"column,omitempty"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

// LoadYAML reads entity declarations from a YAML file.
func LoadYAML(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity declarations: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a schema from YAML entity declarations.
func ParseYAML(data []byte) (Schema, error) {
	var file entitiesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse entity declarations: %w", err)
	}

	entities := make([]*Entity, 0, len(file.Entities))
	for _, decl := range file.Entities {
		e, err := decl.entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return NewStaticSchema(entities...)
}

func (d entityDecl) entity() (*Entity, error) {
	fields := make([]arrow.Field, 0, len(d.Fields))
	columns := make(map[string]string)
	for _, f := range d.Fields {
		dt, err := ParseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s.%s: %v", ErrInvalidEntity, d.Name, f.Name, err)
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable})
		if f.Column != "" {
			columns[f.Name] = f.Column
		}
	}

	return NewEntity(EntityDef{
		Name:       d.Name,
		Table:      d.Table,
		Comment:    d.Comment,
		Schema:     arrow.NewSchema(fields, nil),
		Columns:    columns,
		OwnerField: d.Owner,
		Key:        d.Key,
	})
}
