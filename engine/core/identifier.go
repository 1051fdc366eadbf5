package core

import "github.com/cockroachdb/errors"

// Identifiers hands out small numeric ids for owned values, reusing freed
// slots first. Id 0 is never issued so it can act as the null handle.
type Identifiers[T any] struct {
	owners []*T
	free   []uint64
}

func NewIdentifiers[T any]() *Identifiers[T] {
	return &Identifiers[T]{
		owners: make([]*T, 1, 100),
	}
}

func (ids *Identifiers[T]) Acquire(owner T) uint64 {
	// Existing free spot. Take it.
	if n := len(ids.free); n > 0 {
		id := ids.free[n-1]
		ids.free = ids.free[:n-1]
		ids.owners[id] = &owner
		return id
	}
	ids.owners = append(ids.owners, &owner)
	return uint64(len(ids.owners) - 1)
}

func (ids *Identifiers[T]) Lookup(id uint64) (T, bool) {
	var zero T
	if id == 0 || id >= uint64(len(ids.owners)) || ids.owners[id] == nil {
		return zero, false
	}
	return *ids.owners[id], true
}

// Release empties the slot and returns the value it held.
func (ids *Identifiers[T]) Release(id uint64) (T, error) {
	v, ok := ids.Lookup(id)
	if !ok {
		return v, errors.Wrapf(ErrInvalidHandle, "identifier %d is not held (max=%d)", id, len(ids.owners)-1)
	}
	ids.owners[id] = nil
	ids.free = append(ids.free, id)
	return v, nil
}

// Len is the number of ids currently held.
func (ids *Identifiers[T]) Len() int {
	return len(ids.owners) - 1 - len(ids.free)
}

// Each visits every held id in ascending order.
func (ids *Identifiers[T]) Each(fn func(id uint64, v T)) {
	for i := 1; i < len(ids.owners); i++ {
		if ids.owners[i] != nil {
			fn(uint64(i), *ids.owners[i])
		}
	}
}
