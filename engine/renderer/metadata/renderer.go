package metadata

import "github.com/spaghettifunk/skirmish/engine/math"

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Initial framebuffer width. */
	Width uint32
	/** @brief Initial framebuffer height. */
	Height uint32
	/** @brief Vertical field of view in degrees. */
	FOV float32
	/** @brief Near clip plane distance. */
	Near float32
	/** @brief Far clip plane distance. */
	Far float32
	/** @brief Color used to clear the swapchain images. */
	ClearColor [4]float32
	/** @brief Number of frames a headless device keeps in flight. */
	FramesInFlight uint32
	/** @brief Device memory budget in bytes for the headless device. Zero means unlimited. */
	MemoryBudget uint64
}

// Projection builds the perspective matrix for a framebuffer of the given size.
func (c *RendererBackendConfig) Projection(width, height uint32) math.Mat4 {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	return math.NewMat4PerspectiveLH(math.DegToRad(c.FOV), aspect, c.Near, c.Far)
}
