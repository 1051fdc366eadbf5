package ecs

// Hooks reacts to the lifecycle of one component kind. OnAttach runs after
// the component is stored, OnUpdate after it is patched or replaced, and
// OnDetach while the component (and every other component on the entity)
// is still attached. Returned errors propagate to the caller of the
// registry operation that fired the hook.
type Hooks interface {
	OnAttach(r *Registry, e Entity) error
	OnUpdate(r *Registry, e Entity) error
	OnDetach(r *Registry, e Entity) error
}

// HookFuncs adapts plain functions to Hooks. Nil functions are no-ops.
type HookFuncs struct {
	Attach func(r *Registry, e Entity) error
	Update func(r *Registry, e Entity) error
	Detach func(r *Registry, e Entity) error
}

func (h HookFuncs) OnAttach(r *Registry, e Entity) error {
	if h.Attach == nil {
		return nil
	}
	return h.Attach(r, e)
}

func (h HookFuncs) OnUpdate(r *Registry, e Entity) error {
	if h.Update == nil {
		return nil
	}
	return h.Update(r, e)
}

func (h HookFuncs) OnDetach(r *Registry, e Entity) error {
	if h.Detach == nil {
		return nil
	}
	return h.Detach(r, e)
}
