package renderer

import (
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// DeviceContext is the slice of the graphics device the buffer managers need.
// Every buffer owns one dedicated allocation; there is no suballocation.
type DeviceContext interface {
	// Allocate creates a buffer of size bytes and binds fresh memory with the
	// requested properties to it.
	Allocate(size uint64, usage metadata.BufferUsage, memory metadata.MemoryProperty) (metadata.Allocation, error)
	// Write maps memory, copies data to its start and unmaps it.
	Write(memory metadata.MemoryHandle, data []byte) error
	// Free destroys the buffer and releases its memory.
	Free(alloc metadata.Allocation) error
	// FrameCount is the number of frames that can be in flight at once.
	FrameCount() uint32
	// CurrentFrameIndex is the frame slot being recorded, in [0, FrameCount).
	CurrentFrameIndex() uint32
	// WaitIdle blocks until the device finished all submitted work.
	WaitIdle() error
	// UpdateDescriptor points binding of the given frame's descriptor set at buffer.
	UpdateDescriptor(frame, binding uint32, usage metadata.BufferUsage, buffer metadata.BufferHandle) error
	ProjectionMatrix() math.Mat4
}

type RendererBackend interface {
	DeviceContext
	Initialize(config *metadata.RendererBackendConfig) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
}
