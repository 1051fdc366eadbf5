package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/assets"
	"github.com/spaghettifunk/skirmish/engine/assets/loaders"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/platform"
	"github.com/spaghettifunk/skirmish/engine/renderer"
	"github.com/spaghettifunk/skirmish/engine/renderer/headless"
	"github.com/spaghettifunk/skirmish/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	events       *core.EventBus
	// nil for headless runs.
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	world        *World
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
	frameNumber  uint64

	reloadPending bool
}

func New(g *Game) (*Engine, error) {
	app := g.ApplicationConfig
	if app == nil || app.Config == nil {
		return nil, errors.New("game has no application config")
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		events:       core.NewEventBus(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		isRunning:    true,
		width:        app.StartWidth,
		height:       app.StartHeight,
	}

	var backend renderer.RendererBackend
	if app.Headless {
		backend = headless.New()
	} else {
		e.platform = platform.New(e.events)
		backend = vulkan.New(e.platform, app.Config.Renderer.Debug)
	}
	e.renderer = renderer.New(backend)

	if app.Config.Level.Watch {
		am, err := assets.NewAssetManager()
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		e.assetManager = am
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.gameInstance.ApplicationConfig

	if err := core.LogSetLevel(app.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	if e.platform != nil {
		if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
			return err
		}
	}

	if err := e.renderer.Initialize(app.Config.BackendConfig()); err != nil {
		core.LogFatal("Failed to initialize renderer. Aborting application.")
		return err
	}

	if e.assetManager != nil {
		if err := e.assetManager.Initialize(app.Config.Level.AssetsDir); err != nil {
			// Hot reload is a convenience; the game runs without it.
			core.LogWarn("asset watching disabled: %s", err)
			e.assetManager = nil
		}
	}

	world, err := NewWorld(app.Config, e.renderer.Device())
	if err != nil {
		return errors.Wrap(err, "creating world")
	}
	e.world = world

	if err := e.gameInstance.FnInitialize(e.world); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until the game quits, the window closes, ctx is
// cancelled or the configured frame limit is reached.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	maxFrames := e.gameInstance.ApplicationConfig.MaxFrames

	for e.isRunning {
		select {
		case <-ctx.Done():
			core.LogInfo("Context cancelled, shutting down.")
			e.isRunning = false
			continue
		default:
		}

		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.drainAssetChanges()

		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if err := e.gameInstance.FnUpdate(e.world, delta); err != nil {
			core.LogFatal("Game update failed, shutting down.")
			return err
		}

		if e.reloadPending {
			e.reloadPending = false
			if err := e.reloadLevel(); err != nil {
				return err
			}
		}

		if err := e.world.UpdateFrame(); err != nil {
			core.LogError("frame update failed: %s", err)
			return err
		}
		if err := e.renderer.DrawFrame(delta); err != nil {
			return err
		}

		if e.metrics.Update(time.Since(frameStart).Seconds()) {
			fps, avg := e.metrics.Frame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms", fps, avg)
		}

		e.lastTime = currentTime
		e.frameNumber++
		if maxFrames > 0 && e.frameNumber >= maxFrames {
			core.LogInfo("Reached %d frames, shutting down.", maxFrames)
			e.isRunning = false
		}
	}
	return nil
}

func (e *Engine) reloadLevel() error {
	core.LogInfo("Level assets changed, reloading.")
	if err := e.world.ReloadLevel(); err != nil {
		core.LogError("level reload failed: %s", err)
		return err
	}
	if e.gameInstance.FnOnLevelReload != nil {
		return e.gameInstance.FnOnLevelReload(e.world)
	}
	return nil
}

// drainAssetChanges forwards file changes seen by the watcher to the event
// bus without blocking the frame.
func (e *Engine) drainAssetChanges() {
	if e.assetManager == nil {
		return
	}
	for {
		select {
		case info, ok := <-e.assetManager.Changes():
			if !ok {
				return
			}
			ctx := core.EventContext{}
			ctx.Data.C = info.Path
			ctx.Data.U16[0] = uint16(info.Type)
			e.events.Fire(core.EVENT_CODE_ASSET_CHANGED, e.assetManager, ctx)
		default:
			return
		}
	}
}

// Shutdown destroys every entity first so the buffer managers release their
// device memory while the device is still alive.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var err error
	if e.world != nil {
		err = errors.CombineErrors(err, e.world.Destroy())
		e.world = nil
	}
	if e.assetManager != nil {
		err = errors.CombineErrors(err, e.assetManager.Shutdown())
	}
	err = errors.CombineErrors(err, e.renderer.Shutdown())
	if e.platform != nil {
		err = errors.CombineErrors(err, e.platform.Shutdown())
	}
	e.events.Shutdown()
	return err
}

// Quit asks the loop to stop after the current frame.
func (e *Engine) Quit() {
	e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
}

func (e *Engine) World() *World {
	return e.world
}

func (e *Engine) FrameNumber() uint64 {
	return e.frameNumber
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	core.LogDebug("key %d pressed in window.", data.Data.U16[0])
	return false
}

func (e *Engine) onAssetChanged(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch loaders.ResourceType(data.Data.U16[0]) {
	case loaders.ResourceTypeLevel, loaders.ResourceTypeModel:
		core.LogDebug("asset changed: %s", data.Data.C)
		e.reloadPending = true
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.renderer.OnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	if e.world != nil {
		e.world.RefreshProjection()
	}
	if err := e.gameInstance.FnOnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	return true
}
