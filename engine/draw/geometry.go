package draw

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// stagedBufferHooks manages a single-allocation buffer B that is refilled
// from a staging component S of records R on every update.
type stagedBufferHooks[B any, S ~[]R, R any] struct {
	usage      metadata.BufferUsage
	allocation func(*B) *metadata.Allocation
}

func (h stagedBufferHooks[B, S, R]) OnAttach(r *ecs.Registry, e ecs.Entity) error {
	return nil
}

// OnUpdate uploads the staged records. Without a device or staged data the
// current buffer is left untouched.
func (h stagedBufferHooks[B, S, R]) OnUpdate(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		return nil
	}
	staged, ok := ecs.Get[S](r, e)
	if !ok {
		return nil
	}
	b, ok := ecs.Get[B](r, e)
	if !ok {
		return nil
	}
	alloc := h.allocation(b)
	if err := release(device, alloc); err != nil {
		return errors.Wrapf(err, "replacing %s buffer of %s", h.usage, e)
	}

	// A zero sized device buffer is invalid; an empty upload only clears.
	if data := metadata.AsBytes([]R(*staged)); len(data) > 0 {
		a, err := device.Allocate(uint64(len(data)), h.usage, metadata.MemoryHostShared)
		if err != nil {
			return errors.Wrapf(err, "allocating %s buffer of %s", h.usage, e)
		}
		*alloc = a
		if err := device.Write(a.Memory, data); err != nil {
			return errors.Wrapf(err, "uploading %s buffer of %s", h.usage, e)
		}
		if err := device.WaitIdle(); err != nil {
			return err
		}
	}
	return ecs.Remove[S](r, e)
}

func (h stagedBufferHooks[B, S, R]) OnDetach(r *ecs.Registry, e ecs.Entity) error {
	device, ok := deviceOf(r, e)
	if !ok {
		return nil
	}
	b, ok := ecs.Get[B](r, e)
	if !ok {
		return nil
	}
	if err := release(device, h.allocation(b)); err != nil {
		return errors.Wrapf(err, "destroying %s buffer of %s", h.usage, e)
	}
	return nil
}

// release waits for the device to stop reading alloc, frees it and nulls the
// handles. Null allocations are skipped.
func release(device renderer.DeviceContext, alloc *metadata.Allocation) error {
	if alloc.IsNull() {
		return nil
	}
	if err := device.WaitIdle(); err != nil {
		return err
	}
	if err := device.Free(*alloc); err != nil {
		return err
	}
	*alloc = metadata.Allocation{}
	return nil
}

// releaseFrames frees every per-frame allocation and empties the slice.
func releaseFrames(device renderer.DeviceContext, frames *[]metadata.Allocation) error {
	live := false
	for _, a := range *frames {
		live = live || !a.IsNull()
	}
	if !live {
		*frames = nil
		return nil
	}
	if err := device.WaitIdle(); err != nil {
		return err
	}
	for i := range *frames {
		if (*frames)[i].IsNull() {
			continue
		}
		if err := device.Free((*frames)[i]); err != nil {
			return err
		}
		(*frames)[i] = metadata.Allocation{}
	}
	*frames = nil
	return nil
}

// allocateFrames creates one allocation of size bytes per frame in flight and
// points binding of each frame's descriptor set at it.
func allocateFrames(device renderer.DeviceContext, size uint64, usage metadata.BufferUsage, binding uint32) ([]metadata.Allocation, error) {
	frames := make([]metadata.Allocation, 0, device.FrameCount())
	for i := uint32(0); i < device.FrameCount(); i++ {
		a, err := device.Allocate(size, usage, metadata.MemoryHostShared)
		if err != nil {
			return frames, errors.Wrapf(err, "allocating %s buffer for frame %d", usage, i)
		}
		frames = append(frames, a)
		if err := device.UpdateDescriptor(i, binding, usage, a.Buffer); err != nil {
			return frames, errors.Wrapf(err, "binding %s buffer for frame %d", usage, i)
		}
	}
	return frames, nil
}

func vertexBufferHooks() ecs.Hooks {
	return stagedBufferHooks[VertexBuffer, VertexStaging, metadata.Vertex]{
		usage:      metadata.BufferUsageVertex,
		allocation: func(b *VertexBuffer) *metadata.Allocation { return &b.Allocation },
	}
}

func indexBufferHooks() ecs.Hooks {
	return stagedBufferHooks[IndexBuffer, IndexStaging, uint32]{
		usage:      metadata.BufferUsageIndex,
		allocation: func(b *IndexBuffer) *metadata.Allocation { return &b.Allocation },
	}
}
