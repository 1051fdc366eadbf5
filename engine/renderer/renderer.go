package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// Renderer is the frontend the engine drives once per frame.
type Renderer struct {
	backend RendererBackend
}

func New(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
	}
}

func (r *Renderer) Initialize(config *metadata.RendererBackendConfig) error {
	return r.backend.Initialize(config)
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

// Device exposes the backend to the buffer managers.
func (r *Renderer) Device() DeviceContext {
	return r.backend
}

func (r *Renderer) OnResize(width, height uint32) error {
	return r.backend.Resized(width, height)
}

// DrawFrame runs one begin/end pair. A frame skipped because the swapchain
// is being rebuilt is not an error.
func (r *Renderer) DrawFrame(deltaTime float64) error {
	if err := r.backend.BeginFrame(deltaTime); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		core.LogError(err.Error())
		return err
	}
	if err := r.backend.EndFrame(deltaTime); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		core.LogError("RendererEndFrame failed. Application shutting down...")
		return err
	}
	return nil
}
