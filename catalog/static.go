package catalog

import (
	"fmt"
	"sort"
)

// staticSchema is an immutable Schema built once at startup.
type staticSchema struct {
	entities map[string]*Entity
	ordered  []*Entity
}

// NewStaticSchema creates an immutable schema from the given entities.
// Returns an error if entity names are not unique.
func NewStaticSchema(entities ...*Entity) (Schema, error) {
	s := &staticSchema{
		entities: make(map[string]*Entity, len(entities)),
		ordered:  make([]*Entity, 0, len(entities)),
	}
	for _, e := range entities {
		if e == nil {
			return nil, fmt.Errorf("%w: nil entity", ErrInvalidEntity)
		}
		if _, dup := s.entities[e.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate entity name %s", ErrInvalidEntity, e.Name())
		}
		s.entities[e.Name()] = e
		s.ordered = append(s.ordered, e)
	}
	sort.Slice(s.ordered, func(i, j int) bool {
		return s.ordered[i].Name() < s.ordered[j].Name()
	})
	return s, nil
}

// Entity implements Schema interface.
func (s *staticSchema) Entity(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Entities implements Schema interface.
func (s *staticSchema) Entities() []*Entity {
	return append([]*Entity(nil), s.ordered...)
}
