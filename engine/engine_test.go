package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/skirmish/engine/assets/loaders"
	"github.com/spaghettifunk/skirmish/engine/config"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/draw"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/headless"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

type countingGame struct {
	initialized int
	updates     int
	resizes     [][2]uint32
	reloads     int
}

func newHeadlessEngine(t *testing.T, frames uint64) (*Engine, *countingGame) {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer.Backend = config.BackendHeadless
	cfg.Renderer.FramesInFlight = 3
	cfg.Renderer.MaxFrames = frames
	cfg.Level.Watch = false
	cfg.Level.File = filepath.Join(t.TempDir(), "missing.toml")

	counts := &countingGame{}
	g := &Game{
		ApplicationConfig: NewApplicationConfig(cfg),
		FnInitialize: func(w *World) error {
			counts.initialized++
			return nil
		},
		FnUpdate: func(w *World, dt float64) error {
			counts.updates++
			return nil
		},
		FnOnResize: func(width, height uint32) error {
			counts.resizes = append(counts.resizes, [2]uint32{width, height})
			return nil
		},
		FnOnLevelReload: func(w *World) error {
			counts.reloads++
			return nil
		},
	}
	e, err := New(g)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.platform != nil {
		t.Fatal("headless engine must not open a window")
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e, counts
}

func TestHeadlessRunStopsAfterMaxFrames(t *testing.T) {
	e, counts := newHeadlessEngine(t, 5)
	device := e.renderer.Device().(*headless.Device)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.FrameNumber() != 5 || counts.updates != 5 {
		t.Errorf("frames = %d, updates = %d, want 5", e.FrameNumber(), counts.updates)
	}
	if device.FrameNumber() != 5 {
		t.Errorf("device presented %d frames, want 5", device.FrameNumber())
	}
	if counts.initialized != 1 || len(counts.resizes) != 1 {
		t.Errorf("initialize = %d, resizes = %v", counts.initialized, counts.resizes)
	}
	// Instance buffers and uniform buffers, one per frame slot.
	if device.LiveAllocations() != 6 {
		t.Errorf("live allocations = %d, want 6", device.LiveAllocations())
	}

	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if device.LiveAllocations() != 0 {
		t.Errorf("live allocations after shutdown = %d, want 0", device.LiveAllocations())
	}
}

func TestRunHonoursContext(t *testing.T) {
	e, counts := newHeadlessEngine(t, 0)
	defer e.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counts.updates != 0 {
		t.Errorf("updates = %d after cancelled context, want 0", counts.updates)
	}
}

func TestQuitEventStopsLoop(t *testing.T) {
	e, counts := newHeadlessEngine(t, 0)
	defer e.Shutdown()

	e.gameInstance.FnUpdate = func(w *World, dt float64) error {
		counts.updates++
		if counts.updates == 2 {
			e.Quit()
		}
		return nil
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.FrameNumber() != 2 {
		t.Errorf("frames = %d, want 2", e.FrameNumber())
	}
}

func TestResizeEvents(t *testing.T) {
	e, counts := newHeadlessEngine(t, 0)
	defer e.Shutdown()

	resize := func(w, h uint32) {
		ctx := core.EventContext{}
		ctx.Data.U32[0], ctx.Data.U32[1] = w, h
		e.events.Fire(core.EVENT_CODE_RESIZED, nil, ctx)
	}

	resize(0, 0)
	if !e.isSuspended {
		t.Fatal("zero sized window should suspend the engine")
	}
	resize(640, 480)
	if e.isSuspended {
		t.Fatal("engine should resume after a restore")
	}
	if got := counts.resizes[len(counts.resizes)-1]; got != [2]uint32{640, 480} {
		t.Errorf("last resize = %v", got)
	}

	scene, ok := ecs.Get[metadata.SceneData](e.world.Registry, e.world.Display)
	if !ok {
		t.Fatal("display has no scene data")
	}
	want := e.gameInstance.ApplicationConfig.Config.BackendConfig().Projection(640, 480)
	if !scene.Projection.Compare(want, 1e-5) {
		t.Errorf("scene projection was not refreshed after resize")
	}
}

func TestAssetChangeSchedulesReload(t *testing.T) {
	e, counts := newHeadlessEngine(t, 1)
	defer e.Shutdown()

	ctx := core.EventContext{}
	ctx.Data.C = "assets/models/enemy.glb"
	ctx.Data.U16[0] = uint16(loaders.ResourceTypeModel)
	e.events.Fire(core.EVENT_CODE_ASSET_CHANGED, nil, ctx)
	if !e.reloadPending {
		t.Fatal("model change should schedule a level reload")
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.reloadPending || counts.reloads != 1 {
		t.Errorf("pending = %v, reloads = %d", e.reloadPending, counts.reloads)
	}
}

func TestNewWorldEntities(t *testing.T) {
	device := headless.NewWithFrames(2)
	cfg := config.Default()
	cfg.Level.File = filepath.Join(t.TempDir(), "missing.toml")
	w, err := NewWorld(cfg, device)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	r := w.Registry
	if !ecs.Has[draw.InstanceBuffer](r, w.Display) || !ecs.Has[draw.UniformBuffer](r, w.Display) {
		t.Error("display is missing its scene buffers")
	}
	if !ecs.Has[draw.CPULevel](r, w.Level) || !ecs.Has[draw.GPULevel](r, w.Level) {
		t.Error("level entity is missing its level components")
	}
	if _, ok := w.Models(); ok {
		t.Error("a level that failed to load has no model manager")
	}
	cam, _ := ecs.Get[draw.Camera](r, w.Camera)
	if pos := cam.World.Row(3).ToVec3(); !pos.Compare(DefaultCameraEye, 1e-4) {
		t.Errorf("camera position = %v, want %v", pos, DefaultCameraEye)
	}
	if err := w.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if device.LiveAllocations() != 0 {
		t.Errorf("live allocations = %d after destroy", device.LiveAllocations())
	}
}
