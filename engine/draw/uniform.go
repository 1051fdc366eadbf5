package draw

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// NewSceneData returns the default lighting setup: a white-ish sun shining
// along normalize(-1, -1, 2) with a dim ambient term.
func NewSceneData(projection math.Mat4) metadata.SceneData {
	return metadata.SceneData{
		SunDirection:   math.NewVec3(-1, -1, 2).Normalize().ToVec4(0),
		SunColor:       math.NewVec4(0.9, 0.9, 0.9, 1),
		SunAmbient:     math.NewVec4(0.2, 0.2, 0.2, 1),
		CameraPosition: math.NewVec4(0, 0, 0, 1),
		View:           math.NewMat4Identity(),
		Projection:     projection,
	}
}

// AddSceneData attaches the default SceneData to e, using the projection of
// the entity's device when it has one.
func AddSceneData(r *ecs.Registry, e ecs.Entity) (*metadata.SceneData, error) {
	projection := math.NewMat4Identity()
	if device, ok := deviceOf(r, e); ok {
		projection = device.ProjectionMatrix()
	}
	return ecs.Emplace(r, e, NewSceneData(projection))
}

type uniformBufferHooks struct{}

func (uniformBufferHooks) OnAttach(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		core.LogError("uniform buffer on %s has no render context", e)
		return nil
	}
	scene, ok := ecs.Get[metadata.SceneData](r, e)
	if !ok {
		var err error
		if scene, err = AddSceneData(r, e); err != nil {
			return err
		}
	}
	ub, _ := ecs.Get[UniformBuffer](r, e)
	frames, err := allocateFrames(device, metadata.SceneDataSize, metadata.BufferUsageUniform, metadata.UniformBinding)
	ub.Frames = frames
	if err != nil {
		return err
	}
	// Seed every slot so no frame ever reads uninitialized memory.
	data := metadata.AsBytes([]metadata.SceneData{*scene})
	for i, a := range ub.Frames {
		if err := device.Write(a.Memory, data); err != nil {
			return errors.Wrapf(err, "seeding scene data for frame %d", i)
		}
	}
	return nil
}

// OnUpdate refreshes the camera part of SceneData from the active camera and
// writes the record into the current frame's buffer only.
func (uniformBufferHooks) OnUpdate(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		return nil
	}
	scene, ok := ecs.Get[metadata.SceneData](r, e)
	if !ok {
		return nil
	}
	ub, _ := ecs.Get[UniformBuffer](r, e)
	if len(ub.Frames) == 0 {
		return nil
	}

	rc, _ := ecs.Get[RenderContext](r, e)
	if cam, ok := ecs.Get[Camera](r, rc.Camera); ok {
		scene.CameraPosition = cam.World.Row(3)
		scene.View = cam.World.Inverse()
	}

	frame := device.CurrentFrameIndex()
	if int(frame) >= len(ub.Frames) {
		return errors.Newf("frame %d has no uniform buffer (frames=%d)", frame, len(ub.Frames))
	}
	if err := device.WaitIdle(); err != nil {
		return err
	}
	if err := device.Write(ub.Frames[frame].Memory, metadata.AsBytes([]metadata.SceneData{*scene})); err != nil {
		return errors.Wrapf(err, "uploading scene data for frame %d", frame)
	}
	return nil
}

func (uniformBufferHooks) OnDetach(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		return nil
	}
	ub, _ := ecs.Get[UniformBuffer](r, e)
	return releaseFrames(device, &ub.Frames)
}
