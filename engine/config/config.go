// Package config loads the game configuration from a TOML file, SKIRMISH_*
// environment variables and defaults, in increasing order of precedence for
// the file and environment.
package config

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
	"github.com/spf13/viper"
)

const (
	BackendVulkan   = "vulkan"
	BackendHeadless = "headless"
)

type Config struct {
	Window   WindowConfig   `mapstructure:"window"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Level    LevelConfig    `mapstructure:"level"`
	Player   ActorConfig    `mapstructure:"player"`
	Enemy    ActorConfig    `mapstructure:"enemy"`
	Log      LogConfig      `mapstructure:"log"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	X      uint32 `mapstructure:"x"`
	Y      uint32 `mapstructure:"y"`
	Width  uint32 `mapstructure:"width"`
	Height uint32 `mapstructure:"height"`
}

type RendererConfig struct {
	Backend string `mapstructure:"backend"`
	Debug   bool   `mapstructure:"debug"`
	// Headless only.
	FramesInFlight uint32 `mapstructure:"frames_in_flight"`
	MemoryBudget   uint64 `mapstructure:"memory_budget"`
	// MaxFrames stops a headless run after that many frames. Zero runs until
	// interrupted.
	MaxFrames  uint64    `mapstructure:"max_frames"`
	FOV        float32   `mapstructure:"fov"`
	Near       float32   `mapstructure:"near"`
	Far        float32   `mapstructure:"far"`
	ClearColor []float32 `mapstructure:"clear_color"`
}

type LevelConfig struct {
	AssetsDir string `mapstructure:"assets_dir"`
	File      string `mapstructure:"file"`
	ModelPath string `mapstructure:"model_path"`
	Watch     bool   `mapstructure:"watch"`
}

// ActorConfig names the model a testbed actor is spawned from.
type ActorConfig struct {
	Model string `mapstructure:"model"`
	Count int    `mapstructure:"count"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Skirmish",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:        BackendVulkan,
			FramesInFlight: 2,
			FOV:            45,
			Near:           0.1,
			Far:            1000,
			ClearColor:     []float32{0, 0, 0.2, 1},
		},
		Level: LevelConfig{
			AssetsDir: "assets",
			File:      "assets/levels/arena.toml",
			ModelPath: "assets/models",
			Watch:     true,
		},
		Player: ActorConfig{Model: "player", Count: 1},
		Enemy:  ActorConfig{Model: "enemy", Count: 4},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path when it is not empty. Without a path, a skirmish.toml in
// the working directory is used if present.
func Load(path string) (*Config, error) {
	v := viper.New()
	cfg := Default()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("skirmish")
	}
	v.SetConfigType("toml")

	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.New("window.width and window.height must be positive")
	}
	if !slices.Contains([]string{BackendVulkan, BackendHeadless}, c.Renderer.Backend) {
		return errors.Newf("renderer.backend must be one of %q or %q", BackendVulkan, BackendHeadless)
	}
	if c.Renderer.Backend == BackendHeadless && c.Renderer.FramesInFlight == 0 {
		return errors.New("renderer.frames_in_flight must be positive")
	}
	if c.Renderer.Near <= 0 || c.Renderer.Near >= c.Renderer.Far {
		return errors.New("renderer.near must be positive and smaller than renderer.far")
	}
	if c.Renderer.FOV <= 0 || c.Renderer.FOV >= 180 {
		return errors.New("renderer.fov must be between 0 and 180 degrees")
	}
	if len(c.Renderer.ClearColor) != 4 {
		return errors.New("renderer.clear_color needs four components")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error", "fatal"}, c.Log.Level) {
		return errors.Newf("log.level %q is not a known level", c.Log.Level)
	}
	return nil
}

func (c *Config) Headless() bool {
	return c.Renderer.Backend == BackendHeadless
}

// BackendConfig converts the renderer section for RendererBackend.Initialize.
func (c *Config) BackendConfig() *metadata.RendererBackendConfig {
	bc := &metadata.RendererBackendConfig{
		ApplicationName: c.Window.Title,
		Width:           c.Window.Width,
		Height:          c.Window.Height,
		FOV:             c.Renderer.FOV,
		Near:            c.Renderer.Near,
		Far:             c.Renderer.Far,
		FramesInFlight:  c.Renderer.FramesInFlight,
		MemoryBudget:    c.Renderer.MemoryBudget,
	}
	copy(bc.ClearColor[:], c.Renderer.ClearColor)
	return bc
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("window.title", cfg.Window.Title)
	v.SetDefault("window.x", cfg.Window.X)
	v.SetDefault("window.y", cfg.Window.Y)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)

	v.SetDefault("renderer.backend", cfg.Renderer.Backend)
	v.SetDefault("renderer.debug", cfg.Renderer.Debug)
	v.SetDefault("renderer.frames_in_flight", cfg.Renderer.FramesInFlight)
	v.SetDefault("renderer.memory_budget", cfg.Renderer.MemoryBudget)
	v.SetDefault("renderer.max_frames", cfg.Renderer.MaxFrames)
	v.SetDefault("renderer.fov", cfg.Renderer.FOV)
	v.SetDefault("renderer.near", cfg.Renderer.Near)
	v.SetDefault("renderer.far", cfg.Renderer.Far)
	v.SetDefault("renderer.clear_color", cfg.Renderer.ClearColor)

	v.SetDefault("level.assets_dir", cfg.Level.AssetsDir)
	v.SetDefault("level.file", cfg.Level.File)
	v.SetDefault("level.model_path", cfg.Level.ModelPath)
	v.SetDefault("level.watch", cfg.Level.Watch)

	v.SetDefault("player.model", cfg.Player.Model)
	v.SetDefault("player.count", cfg.Player.Count)
	v.SetDefault("enemy.model", cfg.Enemy.Model)
	v.SetDefault("enemy.count", cfg.Enemy.Count)

	v.SetDefault("log.level", cfg.Log.Level)
}
