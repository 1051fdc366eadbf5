package ecs

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
)

var ErrEntityNotAlive = errors.New("entity is not alive")

type hookKind uint8

const (
	hookAttach hookKind = iota
	hookUpdate
	hookDetach
)

// Registry owns entities, their components and the hook table that reacts
// to component lifecycle changes. It is not safe for concurrent use; the
// engine drives it from the main loop only.
type Registry struct {
	entities   *entityPool
	stores     map[reflect.Type]removable
	hooks      map[reflect.Type]Hooks
	hookOrder  []reflect.Type
	destroying map[Entity]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		entities:   newEntityPool(),
		stores:     make(map[reflect.Type]removable),
		hooks:      make(map[reflect.Type]Hooks),
		destroying: make(map[Entity]struct{}),
	}
}

func kindOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

func storeOf[T any](r *Registry) *store[T] {
	k := kindOf[T]()
	if s, ok := r.stores[k]; ok {
		return s.(*store[T])
	}
	s := newStore[T]()
	r.stores[k] = s
	return s
}

// Register installs the hooks for component kind T. Registering the same
// kind twice replaces the hooks but keeps the original ordering slot.
func Register[T any](r *Registry, h Hooks) {
	k := kindOf[T]()
	if _, ok := r.hooks[k]; !ok {
		r.hookOrder = append(r.hookOrder, k)
	}
	r.hooks[k] = h
}

func (r *Registry) fire(k reflect.Type, e Entity, kind hookKind) error {
	h, ok := r.hooks[k]
	if !ok {
		return nil
	}
	switch kind {
	case hookAttach:
		return h.OnAttach(r, e)
	case hookUpdate:
		return h.OnUpdate(r, e)
	default:
		return h.OnDetach(r, e)
	}
}

func (r *Registry) Create() Entity {
	return r.entities.create()
}

func (r *Registry) Alive(e Entity) bool {
	return r.entities.alive(e)
}

// Emplace stores c on e and fires OnAttach. If e already holds a T, the old
// value is detached first, then replaced in place and attached. A failing
// detach leaves the old value stored.
func Emplace[T any](r *Registry, e Entity, c T) (*T, error) {
	k := kindOf[T]()
	if !r.Alive(e) {
		return nil, errors.Wrapf(ErrEntityNotAlive, "emplace %s on %s", k, e)
	}
	s := storeOf[T](r)
	if existing, ok := s.get(e); ok {
		if err := r.fire(k, e, hookDetach); err != nil {
			return existing, err
		}
		*existing = c
		return existing, r.fire(k, e, hookAttach)
	}
	p := &c
	s.set(e, p)
	return p, r.fire(k, e, hookAttach)
}

// Get returns a pointer to the T stored on e. The pointer stays valid until
// the component is removed.
func Get[T any](r *Registry, e Entity) (*T, bool) {
	if !r.Alive(e) {
		return nil, false
	}
	return storeOf[T](r).get(e)
}

func Has[T any](r *Registry, e Entity) bool {
	_, ok := Get[T](r, e)
	return ok
}

// Patch applies fns to the T stored on e, then fires OnUpdate.
func Patch[T any](r *Registry, e Entity, fns ...func(*T)) error {
	c, ok := Get[T](r, e)
	if !ok {
		return errors.Wrapf(core.ErrMissingComponent, "patch %s on %s", kindOf[T](), e)
	}
	for _, fn := range fns {
		fn(c)
	}
	return r.fire(kindOf[T](), e, hookUpdate)
}

// Remove fires OnDetach for the T stored on e and then drops it. Removing an
// absent component is a no-op.
func Remove[T any](r *Registry, e Entity) error {
	if !Has[T](r, e) {
		return nil
	}
	err := r.fire(kindOf[T](), e, hookDetach)
	storeOf[T](r).remove(e)
	return err
}

// Destroy fires OnDetach for every hooked component on e, most recently
// registered kind first, while all components are still attached. Then every
// component is dropped and the id is reclaimed. Hook errors are combined and
// returned; the entity is destroyed regardless.
func (r *Registry) Destroy(e Entity) error {
	if !r.Alive(e) {
		return nil
	}
	if _, busy := r.destroying[e]; busy {
		return nil
	}
	r.destroying[e] = struct{}{}
	defer delete(r.destroying, e)

	var err error
	for i := len(r.hookOrder) - 1; i >= 0; i-- {
		k := r.hookOrder[i]
		if s, ok := r.stores[k]; ok && s.has(e) {
			err = errors.CombineErrors(err, r.hooks[k].OnDetach(r, e))
		}
	}
	for _, s := range r.stores {
		s.remove(e)
	}
	r.entities.release(e)
	return err
}

// Clear destroys every live entity in index order.
func (r *Registry) Clear() error {
	var live []Entity
	r.entities.each(func(e Entity) {
		live = append(live, e)
	})
	var err error
	for _, e := range live {
		err = errors.CombineErrors(err, r.Destroy(e))
	}
	return err
}

// Each visits every entity holding a T, in index order. Components removed
// by fn during the walk are skipped.
func Each[T any](r *Registry, fn func(e Entity, c *T)) {
	s := storeOf[T](r)
	for _, e := range s.entities() {
		if c, ok := s.get(e); ok {
			fn(e, c)
		}
	}
}

func Count[T any](r *Registry) int {
	return storeOf[T](r).len()
}
