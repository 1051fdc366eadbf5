package draw

import (
	"github.com/spaghettifunk/skirmish/engine/assets/loaders"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// RenderContext gives the buffer managers on an entity access to the device.
// Camera is the entity whose Camera component feeds the per-frame SceneData.
type RenderContext struct {
	Device renderer.DeviceContext
	Camera ecs.Entity
}

// Camera holds the camera-to-world matrix. Its fourth row is the position.
type Camera struct {
	World math.Mat4
}

// Transform places a mesh collection in the world.
type Transform struct {
	Matrix math.Mat4
}

// VertexBuffer and IndexBuffer each own one device allocation holding the
// last uploaded staging data. A null allocation means nothing is uploaded.
type VertexBuffer struct {
	metadata.Allocation
}

type IndexBuffer struct {
	metadata.Allocation
}

// InstanceBuffer owns one storage allocation per frame in flight, each able
// to hold Capacity instances. Capacity only grows.
type InstanceBuffer struct {
	Frames   []metadata.Allocation
	Capacity uint32
}

// UniformBuffer owns one SceneData sized allocation per frame in flight.
type UniformBuffer struct {
	Frames []metadata.Allocation
}

// Staging components hold CPU data waiting to be uploaded. The matching
// manager removes them once the upload completed.
type VertexStaging []metadata.Vertex
type IndexStaging []uint32
type InstanceStaging []metadata.GPUInstance

// DoNotRender hides an entity's GPUInstance from the per-frame staging pass.
type DoNotRender struct{}

// MeshCollection exclusively owns the mesh entities it lists. Destroying the
// collection destroys every listed mesh.
type MeshCollection struct {
	Meshes []ecs.Entity
}

// CollectionMember records which collection owns a mesh entity.
type CollectionMember struct {
	Owner ecs.Entity
}

// ModelManager maps a model name to the entity holding its template
// MeshCollection.
type ModelManager struct {
	Collections map[string]ecs.Entity
}

// CPULevel is the level as loaded from disk. Data stays nil if loading failed.
type CPULevel struct {
	LevelFile string
	ModelPath string
	Data      *loaders.LevelData
}

// GPULevel is the level's device side: the static mesh collection and the
// model manager built from the CPULevel on the same entity.
type GPULevel struct {
	Static ecs.Entity
	Models ecs.Entity
}

func deviceOf(r *ecs.Registry, e ecs.Entity) (renderer.DeviceContext, bool) {
	rc, ok := ecs.Get[RenderContext](r, e)
	if !ok || rc.Device == nil {
		return nil, false
	}
	return rc.Device, true
}
