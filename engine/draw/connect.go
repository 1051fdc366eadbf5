// Package draw keeps GPU buffers in sync with scene data held in the entity
// registry. Buffer components react to their lifecycle through hooks: attach
// allocates, patch uploads whatever staging data sits on the entity, and
// destroy frees the device memory.
package draw

import (
	"github.com/spaghettifunk/skirmish/engine/ecs"
)

// Connect installs the draw hooks on r. It must run before any draw
// component is attached.
func Connect(r *ecs.Registry) {
	ecs.Register[VertexBuffer](r, vertexBufferHooks())
	ecs.Register[IndexBuffer](r, indexBufferHooks())
	ecs.Register[InstanceBuffer](r, instanceBufferHooks{})
	ecs.Register[UniformBuffer](r, uniformBufferHooks{})
	ecs.Register[MeshCollection](r, collectionHooks())
	ecs.Register[ModelManager](r, modelManagerHooks())
	ecs.Register[CPULevel](r, cpuLevelHooks())
	ecs.Register[GPULevel](r, gpuLevelHooks())
}

// UpdateFrame pushes this frame's instances and scene data to the device.
func UpdateFrame(r *ecs.Registry, display ecs.Entity) error {
	SyncCollectionTransforms(r)
	if ecs.Has[InstanceBuffer](r, display) {
		if err := StageVisibleInstances(r, display); err != nil {
			return err
		}
	}
	if !ecs.Has[UniformBuffer](r, display) {
		return nil
	}
	return ecs.Patch[UniformBuffer](r, display)
}
