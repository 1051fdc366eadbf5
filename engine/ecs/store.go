package ecs

import "slices"

// removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type removable interface {
	remove(e Entity)
	has(e Entity) bool
	len() int
}

// store is a typed map store for one component kind.
type store[T any] struct {
	data map[Entity]*T
}

func newStore[T any]() *store[T] {
	return &store[T]{
		data: make(map[Entity]*T, 64),
	}
}

func (s *store[T]) set(e Entity, c *T) {
	s.data[e] = c
}

func (s *store[T]) get(e Entity) (*T, bool) {
	c, ok := s.data[e]
	return c, ok
}

func (s *store[T]) remove(e Entity) {
	delete(s.data, e)
}

func (s *store[T]) has(e Entity) bool {
	_, ok := s.data[e]
	return ok
}

func (s *store[T]) len() int {
	return len(s.data)
}

// entities returns the holders of this component ordered by index so
// iteration is deterministic.
func (s *store[T]) entities() []Entity {
	out := make([]Entity, 0, len(s.data))
	for e := range s.data {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entity) int {
		return int(a.Index()) - int(b.Index())
	})
	return out
}
