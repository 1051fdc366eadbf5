package engine

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	// Optional. Called after the level was rebuilt from disk, once the
	// previous model manager is gone.
	FnOnLevelReload OnLevelReload
}

type Initialize func(world *World) error
type Update func(world *World, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type OnLevelReload func(world *World) error
