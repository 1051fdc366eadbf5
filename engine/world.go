package engine

import (
	"github.com/spaghettifunk/skirmish/engine/config"
	"github.com/spaghettifunk/skirmish/engine/draw"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// World is the registry plus the well-known entities the engine creates.
type World struct {
	Registry *ecs.Registry
	// Display carries the RenderContext, InstanceBuffer and UniformBuffer.
	Display ecs.Entity
	Camera  ecs.Entity
	// Level carries the CPULevel, GPULevel and the level geometry buffers.
	Level ecs.Entity

	Config *config.Config
}

// DefaultCameraEye is where the camera starts, looking at the origin.
var DefaultCameraEye = math.NewVec3(0, 45, -5)

// CameraLookAt returns the camera-to-world matrix of a camera at eye
// looking at target.
func CameraLookAt(eye, target math.Vec3) math.Mat4 {
	return math.NewMat4LookAtLH(eye, target, math.NewVec3(0, 1, 0)).Inverse()
}

// NewWorld builds the registry, connects the draw hooks and creates the
// camera, display and level entities on top of device.
func NewWorld(cfg *config.Config, device renderer.DeviceContext) (*World, error) {
	r := ecs.NewRegistry()
	draw.Connect(r)

	w := &World{
		Registry: r,
		Camera:   r.Create(),
		Display:  r.Create(),
		Level:    r.Create(),
		Config:   cfg,
	}

	if _, err := ecs.Emplace(r, w.Camera, draw.Camera{World: CameraLookAt(DefaultCameraEye, math.NewVec3(0, 0, 0))}); err != nil {
		return nil, err
	}

	rc := draw.RenderContext{Device: device, Camera: w.Camera}
	if _, err := ecs.Emplace(r, w.Display, rc); err != nil {
		return nil, err
	}
	if _, err := ecs.Emplace(r, w.Display, draw.InstanceBuffer{}); err != nil {
		return nil, err
	}
	if _, err := ecs.Emplace(r, w.Display, draw.UniformBuffer{}); err != nil {
		return nil, err
	}

	if _, err := ecs.Emplace(r, w.Level, rc); err != nil {
		return nil, err
	}
	if _, err := ecs.Emplace(r, w.Level, draw.CPULevel{LevelFile: cfg.Level.File, ModelPath: cfg.Level.ModelPath}); err != nil {
		return nil, err
	}
	if _, err := ecs.Emplace(r, w.Level, draw.GPULevel{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Models returns the level's ModelManager entity.
func (w *World) Models() (ecs.Entity, bool) {
	return draw.Models(w.Registry, w.Level)
}

func (w *World) ReloadLevel() error {
	return draw.ReloadLevel(w.Registry, w.Level)
}

// UpdateFrame pushes instances and scene data for the current frame slot.
func (w *World) UpdateFrame() error {
	return draw.UpdateFrame(w.Registry, w.Display)
}

// RefreshProjection copies the device projection into the display's
// SceneData. The next UpdateFrame uploads it.
func (w *World) RefreshProjection() {
	rc, ok := ecs.Get[draw.RenderContext](w.Registry, w.Display)
	if !ok || rc.Device == nil {
		return
	}
	if scene, ok := ecs.Get[metadata.SceneData](w.Registry, w.Display); ok {
		scene.Projection = rc.Device.ProjectionMatrix()
	}
}

// Destroy runs every destroy hook, releasing all device buffers.
func (w *World) Destroy() error {
	return w.Registry.Clear()
}
