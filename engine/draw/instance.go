package draw

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// DefaultInstanceCapacity is used when an InstanceBuffer is attached with a
// zero capacity.
const DefaultInstanceCapacity uint32 = 16

type instanceBufferHooks struct{}

func (instanceBufferHooks) OnAttach(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		core.LogError("instance buffer on %s has no render context", e)
		return nil
	}
	ib, _ := ecs.Get[InstanceBuffer](r, e)
	if ib.Capacity == 0 {
		ib.Capacity = DefaultInstanceCapacity
	}
	frames, err := allocateFrames(device, metadata.GPUInstanceSize*uint64(ib.Capacity), metadata.BufferUsageStorage, metadata.StorageBinding)
	ib.Frames = frames
	return err
}

// OnUpdate consumes the InstanceStaging on the entity. The buffers of every
// frame grow together when the staged count exceeds the capacity; only the
// current frame's buffer receives the data.
func (instanceBufferHooks) OnUpdate(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		return nil
	}
	staged, ok := ecs.Get[InstanceStaging](r, e)
	if !ok {
		return nil
	}
	ib, _ := ecs.Get[InstanceBuffer](r, e)

	count := uint32(len(*staged))
	if count > ib.Capacity || len(ib.Frames) != int(device.FrameCount()) {
		capacity, err := grownCapacity(ib.Capacity, count)
		if err != nil {
			return errors.Wrapf(err, "growing instance buffers of %s", e)
		}
		if err := releaseFrames(device, &ib.Frames); err != nil {
			return errors.Wrapf(err, "releasing instance buffers of %s", e)
		}
		core.LogDebug("instance buffers of %s grow to %d instances", e, capacity)
		frames, err := allocateFrames(device, metadata.GPUInstanceSize*uint64(capacity), metadata.BufferUsageStorage, metadata.StorageBinding)
		ib.Frames = frames
		if err != nil {
			return err
		}
		ib.Capacity = capacity
	}

	if count > 0 {
		frame := device.CurrentFrameIndex()
		if int(frame) >= len(ib.Frames) {
			return errors.Newf("frame %d has no instance buffer (frames=%d)", frame, len(ib.Frames))
		}
		if err := device.WaitIdle(); err != nil {
			return err
		}
		if err := device.Write(ib.Frames[frame].Memory, metadata.AsBytes([]metadata.GPUInstance(*staged))); err != nil {
			return errors.Wrapf(err, "uploading %d instances for frame %d", count, frame)
		}
	}

	if err := device.WaitIdle(); err != nil {
		return err
	}
	return ecs.Remove[InstanceStaging](r, e)
}

func (instanceBufferHooks) OnDetach(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		return nil
	}
	ib, _ := ecs.Get[InstanceBuffer](r, e)
	return releaseFrames(device, &ib.Frames)
}

// grownCapacity doubles capacity until it holds count instances. Counts past
// the largest power of two a uint32 holds are an allocation failure.
func grownCapacity(capacity, count uint32) (uint32, error) {
	if capacity == 0 {
		capacity = DefaultInstanceCapacity
	}
	for capacity < count {
		if capacity > math.MaxUint32/2 {
			return 0, errors.Mark(errors.Newf("%d instances exceed the largest instance capacity", count), core.ErrDeviceAllocation)
		}
		capacity *= 2
	}
	return capacity, nil
}

// StageVisibleInstances gathers the GPUInstance of every entity not tagged
// DoNotRender and uploads them through the InstanceBuffer on display.
func StageVisibleInstances(r *ecs.Registry, display ecs.Entity) error {
	var staged InstanceStaging
	ecs.Each(r, func(e ecs.Entity, inst *metadata.GPUInstance) {
		if ecs.Has[DoNotRender](r, e) {
			return
		}
		staged = append(staged, *inst)
	})
	if _, err := ecs.Emplace(r, display, staged); err != nil {
		return err
	}
	return ecs.Patch[InstanceBuffer](r, display)
}
