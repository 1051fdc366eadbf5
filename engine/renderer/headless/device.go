// Package headless implements the renderer backend on host memory. It never
// touches a GPU, which makes it the device of choice for CI runs and tests:
// every call is recorded and every allocation can be read back.
package headless

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

const DefaultFramesInFlight uint32 = 3

type Op uint8

const (
	OpAllocate Op = iota
	OpWrite
	OpFree
	OpWaitIdle
	OpDescriptor
)

func (o Op) String() string {
	switch o {
	case OpAllocate:
		return "allocate"
	case OpWrite:
		return "write"
	case OpFree:
		return "free"
	case OpWaitIdle:
		return "wait-idle"
	case OpDescriptor:
		return "descriptor"
	}
	return "unknown"
}

// Call is one recorded device operation.
type Call struct {
	Op      Op
	Usage   metadata.BufferUsage
	Size    uint64
	Buffer  metadata.BufferHandle
	Memory  metadata.MemoryHandle
	Frame   uint32
	Binding uint32
}

type block struct {
	usage metadata.BufferUsage
	data  []byte
}

type Device struct {
	config      metadata.RendererBackendConfig
	frameCount  uint32
	current     uint32
	frameNumber uint64
	projection  math.Mat4
	used        uint64
	buffers     *core.Identifiers[metadata.MemoryHandle]
	memory      *core.Identifiers[*block]
	descriptors []map[uint32]metadata.BufferHandle
	trace       []Call
}

func New() *Device {
	return &Device{
		buffers: core.NewIdentifiers[metadata.MemoryHandle](),
		memory:  core.NewIdentifiers[*block](),
	}
}

// NewWithFrames returns an initialized device with frameCount slots and an
// identity projection.
func NewWithFrames(frameCount uint32) *Device {
	d := New()
	d.setFrames(frameCount)
	d.projection = math.NewMat4Identity()
	return d
}

func (d *Device) setFrames(frameCount uint32) {
	if frameCount == 0 {
		frameCount = DefaultFramesInFlight
	}
	d.frameCount = frameCount
	d.current = 0
	d.descriptors = make([]map[uint32]metadata.BufferHandle, frameCount)
	for i := range d.descriptors {
		d.descriptors[i] = make(map[uint32]metadata.BufferHandle)
	}
}

func (d *Device) Initialize(config *metadata.RendererBackendConfig) error {
	d.config = *config
	d.setFrames(config.FramesInFlight)
	d.projection = config.Projection(config.Width, config.Height)
	core.LogInfo("headless device initialized with %d frames in flight", d.frameCount)
	return nil
}

func (d *Device) Shutdown() error {
	if n := d.memory.Len(); n > 0 {
		core.LogWarn("headless device shut down with %d live allocations", n)
	}
	return nil
}

func (d *Device) Resized(width, height uint32) error {
	d.projection = d.config.Projection(width, height)
	return nil
}

func (d *Device) BeginFrame(deltaTime float64) error {
	return nil
}

// EndFrame presents the current slot and moves on to the next one.
func (d *Device) EndFrame(deltaTime float64) error {
	d.frameNumber++
	d.current = (d.current + 1) % d.frameCount
	return nil
}

func (d *Device) Allocate(size uint64, usage metadata.BufferUsage, memory metadata.MemoryProperty) (metadata.Allocation, error) {
	if size == 0 {
		return metadata.Allocation{}, errors.Wrapf(core.ErrDeviceAllocation, "zero sized %s buffer", usage)
	}
	if memory&metadata.MemoryHostVisible == 0 {
		return metadata.Allocation{}, errors.Wrapf(core.ErrDeviceAllocation, "%s buffer memory is not host visible", usage)
	}
	if d.config.MemoryBudget != 0 && d.used+size > d.config.MemoryBudget {
		return metadata.Allocation{}, errors.Wrapf(core.ErrDeviceAllocation,
			"out of device memory: %d bytes requested, %d of %d in use", size, d.used, d.config.MemoryBudget)
	}
	mem := metadata.MemoryHandle(d.memory.Acquire(&block{usage: usage, data: make([]byte, size)}))
	buf := metadata.BufferHandle(d.buffers.Acquire(mem))
	d.used += size
	d.trace = append(d.trace, Call{Op: OpAllocate, Usage: usage, Size: size, Buffer: buf, Memory: mem})
	return metadata.Allocation{Buffer: buf, Memory: mem, Size: size}, nil
}

func (d *Device) Write(memory metadata.MemoryHandle, data []byte) error {
	b, ok := d.memory.Lookup(uint64(memory))
	if !ok {
		return errors.Wrapf(core.ErrDeviceWrite, "write to unknown memory %d", memory)
	}
	if len(data) > len(b.data) {
		return errors.Wrapf(core.ErrDeviceWrite, "write of %d bytes overflows %d byte allocation", len(data), len(b.data))
	}
	copy(b.data, data)
	d.trace = append(d.trace, Call{Op: OpWrite, Usage: b.usage, Size: uint64(len(data)), Memory: memory, Frame: d.current})
	return nil
}

func (d *Device) Free(alloc metadata.Allocation) error {
	mem, err := d.buffers.Release(uint64(alloc.Buffer))
	if err != nil {
		return errors.Wrapf(err, "free buffer %d", alloc.Buffer)
	}
	if mem != alloc.Memory {
		return errors.Wrapf(core.ErrInvalidHandle, "buffer %d is bound to memory %d, not %d", alloc.Buffer, mem, alloc.Memory)
	}
	b, err := d.memory.Release(uint64(mem))
	if err != nil {
		return errors.Wrapf(err, "free memory %d", mem)
	}
	d.used -= uint64(len(b.data))
	for _, bindings := range d.descriptors {
		for binding, buf := range bindings {
			if buf == alloc.Buffer {
				delete(bindings, binding)
			}
		}
	}
	d.trace = append(d.trace, Call{Op: OpFree, Usage: b.usage, Size: uint64(len(b.data)), Buffer: alloc.Buffer, Memory: mem})
	return nil
}

func (d *Device) FrameCount() uint32 {
	return d.frameCount
}

func (d *Device) CurrentFrameIndex() uint32 {
	return d.current
}

func (d *Device) WaitIdle() error {
	d.trace = append(d.trace, Call{Op: OpWaitIdle})
	return nil
}

func (d *Device) UpdateDescriptor(frame, binding uint32, usage metadata.BufferUsage, buffer metadata.BufferHandle) error {
	if frame >= d.frameCount {
		return errors.Newf("descriptor frame %d out of range (frames=%d)", frame, d.frameCount)
	}
	if _, ok := d.buffers.Lookup(uint64(buffer)); !ok {
		return errors.Wrapf(core.ErrInvalidHandle, "descriptor binding %d points at unknown buffer %d", binding, buffer)
	}
	d.descriptors[frame][binding] = buffer
	d.trace = append(d.trace, Call{Op: OpDescriptor, Usage: usage, Buffer: buffer, Frame: frame, Binding: binding})
	return nil
}

func (d *Device) ProjectionMatrix() math.Mat4 {
	return d.projection
}
