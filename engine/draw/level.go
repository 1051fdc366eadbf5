package draw

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/assets/loaders"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

func cpuLevelHooks() ecs.Hooks {
	return ecs.HookFuncs{
		Attach: func(r *ecs.Registry, e ecs.Entity) error {
			lvl, _ := ecs.Get[CPULevel](r, e)
			lvl.Data, _ = loadLevel(lvl)
			return nil
		},
	}
}

// loadLevel reads the level from disk. Failures are logged, not returned:
// a level that does not load simply has no data.
func loadLevel(lvl *CPULevel) (*loaders.LevelData, bool) {
	log := core.LogChannel("LevelLoader")
	data, err := loaders.LoadLevel(lvl.LevelFile, lvl.ModelPath)
	if err != nil {
		log.Error("could not load level", "file", lvl.LevelFile, "models", lvl.ModelPath, "err", err)
		return nil, false
	}
	log.Info("level loaded", "file", lvl.LevelFile,
		"models", len(data.Models), "objects", len(data.Objects),
		"vertices", len(data.Vertices), "indices", len(data.Indices))
	return data, true
}

func gpuLevelHooks() ecs.Hooks {
	return ecs.HookFuncs{
		Attach: buildGPULevel,
		Update: func(r *ecs.Registry, e ecs.Entity) error {
			if err := destroyGPULevel(r, e); err != nil {
				return err
			}
			return buildGPULevel(r, e)
		},
		Detach: destroyGPULevel,
	}
}

func destroyGPULevel(r *ecs.Registry, e ecs.Entity) error {
	gpu, _ := ecs.Get[GPULevel](r, e)
	err := errors.CombineErrors(r.Destroy(gpu.Static), r.Destroy(gpu.Models))
	gpu.Static, gpu.Models = ecs.Null, ecs.Null
	return err
}

// buildGPULevel uploads the level geometry into the vertex and index buffers
// on e and creates one mesh entity per model mesh placed in the level.
// Static meshes go into one collection; every dynamic object gets its own
// hidden collection registered in a ModelManager under the object's name.
func buildGPULevel(r *ecs.Registry, e ecs.Entity) error {
	log := core.LogChannel("GPULevelConstructor")
	cpu, ok := ecs.Get[CPULevel](r, e)
	if !ok || cpu.Data == nil {
		log.Error("no CPU level data to build from", "entity", e)
		return nil
	}
	data := cpu.Data

	if err := stage[VertexBuffer](r, e, VertexStaging(data.Vertices)); err != nil {
		return err
	}
	if err := stage[IndexBuffer](r, e, IndexStaging(data.Indices)); err != nil {
		return err
	}

	gpu, _ := ecs.Get[GPULevel](r, e)
	static, err := NewMeshCollection(r)
	if err != nil {
		return err
	}
	gpu.Static = static
	gpu.Models = r.Create()
	mm, err := ecs.Emplace(r, gpu.Models, ModelManager{Collections: make(map[string]ecs.Entity)})
	if err != nil {
		return err
	}

	for _, obj := range data.Objects {
		if int(obj.Model) >= len(data.Models) || int(obj.Transform) >= len(data.Transforms) {
			log.Warn("skipping object with dangling references", "object", obj.Name)
			continue
		}
		model := data.Models[obj.Model]
		owner := static
		if obj.Dynamic {
			if owner, err = NewMeshCollection(r); err != nil {
				return err
			}
			mm.Collections[obj.Name] = owner
		}
		for i := model.MeshStart; i < model.MeshStart+model.MeshCount; i++ {
			mesh := data.Meshes[i]
			entity := r.Create()
			if _, err := ecs.Emplace(r, entity, metadata.GeometryData{
				IndexStart:  model.IndexStart + mesh.IndexOffset,
				IndexCount:  mesh.IndexCount,
				VertexStart: model.VertexStart,
			}); err != nil {
				return err
			}
			material := metadata.DefaultMaterial()
			if m := model.MaterialStart + mesh.MaterialIndex; int(m) < len(data.Materials) {
				material = data.Materials[m]
			}
			if _, err := ecs.Emplace(r, entity, metadata.GPUInstance{
				Transform: data.Transforms[obj.Transform],
				Material:  material,
			}); err != nil {
				return err
			}
			if obj.Dynamic {
				if _, err := ecs.Emplace(r, entity, DoNotRender{}); err != nil {
					return err
				}
			}
			if err := AddToCollection(r, owner, entity); err != nil {
				return err
			}
		}
	}
	log.Debug("level built", "entity", e, "static meshes", len(mustCollection(r, static).Meshes), "models", len(mm.Collections))
	return nil
}

// stage attaches buffer B to e if missing, then hands it staged data S.
func stage[B any, S any](r *ecs.Registry, e ecs.Entity, staged S) error {
	if !ecs.Has[B](r, e) {
		var zero B
		if _, err := ecs.Emplace(r, e, zero); err != nil {
			return err
		}
	}
	if _, err := ecs.Emplace(r, e, staged); err != nil {
		return err
	}
	return ecs.Patch[B](r, e)
}

func mustCollection(r *ecs.Registry, e ecs.Entity) *MeshCollection {
	if mc, ok := ecs.Get[MeshCollection](r, e); ok {
		return mc
	}
	return &MeshCollection{}
}

// ReloadLevel reads the level of e from disk again and, on success, rebuilds
// its GPU side. A level that fails to reload keeps its previous data.
func ReloadLevel(r *ecs.Registry, e ecs.Entity) error {
	lvl, ok := ecs.Get[CPULevel](r, e)
	if !ok {
		return errors.Wrapf(core.ErrMissingComponent, "reload level on %s", e)
	}
	data, ok := loadLevel(lvl)
	if !ok {
		return nil
	}
	lvl.Data = data
	if !ecs.Has[GPULevel](r, e) {
		return nil
	}
	return ecs.Patch[GPULevel](r, e)
}

// Models returns the ModelManager built for the level on e.
func Models(r *ecs.Registry, e ecs.Entity) (ecs.Entity, bool) {
	gpu, ok := ecs.Get[GPULevel](r, e)
	if !ok || !ecs.Has[ModelManager](r, gpu.Models) {
		return ecs.Null, false
	}
	return gpu.Models, true
}
