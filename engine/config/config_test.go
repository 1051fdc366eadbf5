package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skirmish.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 800
height = 600

[renderer]
backend = "headless"
frames_in_flight = 3
clear_color = [1.0, 0.5, 0.25, 1.0]

[enemy]
model = "drone"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %dx%d, want 800x600", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Headless() || cfg.Renderer.FramesInFlight != 3 {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.Enemy.Model != "drone" || cfg.Enemy.Count != 4 {
		t.Errorf("enemy = %+v, want drone x4", cfg.Enemy)
	}
	// Untouched sections keep their defaults.
	if cfg.Window.Title != "Skirmish" || cfg.Log.Level != "info" {
		t.Errorf("defaults lost: title %q, log %q", cfg.Window.Title, cfg.Log.Level)
	}

	bc := cfg.BackendConfig()
	if bc.Width != 800 || bc.FramesInFlight != 3 || bc.ClearColor != [4]float32{1, 0.5, 0.25, 1} {
		t.Errorf("BackendConfig = %+v", bc)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "[window]\nwidth = 800\n")
	t.Setenv("SKIRMISH_WINDOW_WIDTH", "1024")
	t.Setenv("SKIRMISH_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Width != 1024 {
		t.Errorf("width = %d, want 1024 from the environment", cfg.Window.Width)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load of a missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }, "window.width"},
		{"unknown backend", func(c *Config) { c.Renderer.Backend = "metal" }, "renderer.backend"},
		{"near after far", func(c *Config) { c.Renderer.Near = 2000 }, "renderer.near"},
		{"zero fov", func(c *Config) { c.Renderer.FOV = 0 }, "renderer.fov"},
		{"short clear color", func(c *Config) { c.Renderer.ClearColor = []float32{1} }, "clear_color"},
		{"headless without frames", func(c *Config) {
			c.Renderer.Backend = BackendHeadless
			c.Renderer.FramesInFlight = 0
		}, "frames_in_flight"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
