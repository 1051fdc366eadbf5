package draw

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

func collectionHooks() ecs.Hooks {
	return ecs.HookFuncs{
		Detach: func(r *ecs.Registry, e ecs.Entity) error {
			mc, _ := ecs.Get[MeshCollection](r, e)
			var err error
			for _, mesh := range mc.Meshes {
				err = errors.CombineErrors(err, r.Destroy(mesh))
			}
			mc.Meshes = nil
			return err
		},
	}
}

func modelManagerHooks() ecs.Hooks {
	return ecs.HookFuncs{
		Detach: func(r *ecs.Registry, e ecs.Entity) error {
			mm, _ := ecs.Get[ModelManager](r, e)
			var err error
			for _, collection := range mm.Collections {
				err = errors.CombineErrors(err, r.Destroy(collection))
			}
			clear(mm.Collections)
			return err
		},
	}
}

// NewMeshCollection creates an empty collection entity.
func NewMeshCollection(r *ecs.Registry) (ecs.Entity, error) {
	e := r.Create()
	if _, err := ecs.Emplace(r, e, MeshCollection{}); err != nil {
		return ecs.Null, err
	}
	return e, nil
}

// AddToCollection hands ownership of mesh to collection. A mesh owned by a
// different collection is rejected.
func AddToCollection(r *ecs.Registry, collection, mesh ecs.Entity) error {
	mc, ok := ecs.Get[MeshCollection](r, collection)
	if !ok {
		return errors.Wrapf(core.ErrMissingComponent, "%s is not a mesh collection", collection)
	}
	if m, ok := ecs.Get[CollectionMember](r, mesh); ok {
		if m.Owner == collection {
			return nil
		}
		if r.Alive(m.Owner) {
			return errors.Wrapf(core.ErrAlreadyOwned, "%s belongs to %s", mesh, m.Owner)
		}
	}
	if _, err := ecs.Emplace(r, mesh, CollectionMember{Owner: collection}); err != nil {
		return err
	}
	mc.Meshes = append(mc.Meshes, mesh)
	return nil
}

// Collection looks up the template collection registered for a model.
func (m *ModelManager) Collection(name string) (ecs.Entity, bool) {
	e, ok := m.Collections[name]
	return e, ok
}

// SpawnCollection copies the template collection registered under name into
// fresh, visible mesh entities owned by a new collection.
func SpawnCollection(r *ecs.Registry, models ecs.Entity, name string) (ecs.Entity, error) {
	mm, ok := ecs.Get[ModelManager](r, models)
	if !ok {
		return ecs.Null, errors.Wrapf(core.ErrMissingComponent, "%s has no model manager", models)
	}
	template, ok := mm.Collection(name)
	if !ok {
		return ecs.Null, errors.Newf("no model named %q", name)
	}
	tmpl, ok := ecs.Get[MeshCollection](r, template)
	if !ok {
		return ecs.Null, errors.Wrapf(core.ErrMissingComponent, "model %q has no mesh collection", name)
	}

	spawned, err := NewMeshCollection(r)
	if err != nil {
		return ecs.Null, err
	}
	for _, src := range tmpl.Meshes {
		mesh := r.Create()
		if inst, ok := ecs.Get[metadata.GPUInstance](r, src); ok {
			if _, err := ecs.Emplace(r, mesh, *inst); err != nil {
				return spawned, err
			}
		}
		if geo, ok := ecs.Get[metadata.GeometryData](r, src); ok {
			if _, err := ecs.Emplace(r, mesh, *geo); err != nil {
				return spawned, err
			}
		}
		if err := AddToCollection(r, spawned, mesh); err != nil {
			return spawned, err
		}
	}
	return spawned, nil
}

// SyncCollectionTransforms copies the Transform of every collection entity
// onto the instances of the meshes it owns.
func SyncCollectionTransforms(r *ecs.Registry) {
	ecs.Each(r, func(e ecs.Entity, t *Transform) {
		mc, ok := ecs.Get[MeshCollection](r, e)
		if !ok {
			return
		}
		for _, mesh := range mc.Meshes {
			if inst, ok := ecs.Get[metadata.GPUInstance](r, mesh); ok {
				inst.Transform = t.Matrix
			}
		}
	})
}
