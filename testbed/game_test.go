package testbed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/skirmish/engine"
	"github.com/spaghettifunk/skirmish/engine/config"
	"github.com/spaghettifunk/skirmish/engine/draw"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

const arena = `
name = "arena"

[[objects]]
name = "ground"
model = "tri.glb"

[[objects]]
name = "player"
model = "tri.glb"
dynamic = true

[[objects]]
name = "enemy"
model = "tri.glb"
dynamic = true
`

func headlessConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "triangle",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{"POSITION": pos},
		}},
	}}
	if err := gltf.SaveBinary(doc, filepath.Join(dir, "tri.glb")); err != nil {
		t.Fatal(err)
	}
	level := filepath.Join(dir, "arena.toml")
	if err := os.WriteFile(level, []byte(arena), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Renderer.Backend = config.BackendHeadless
	cfg.Renderer.MaxFrames = 3
	cfg.Level.Watch = false
	cfg.Level.File = level
	cfg.Level.ModelPath = dir
	cfg.Enemy.Count = 3
	return cfg
}

func startGame(t *testing.T) (*TestGame, *engine.Engine) {
	t.Helper()
	g := NewTestGame(headlessConfig(t))
	e, err := engine.New(g.Game)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { e.Shutdown() })
	return g, e
}

func visibleInstances(r *ecs.Registry) int {
	n := 0
	ecs.Each(r, func(e ecs.Entity, _ *metadata.GPUInstance) {
		if !ecs.Has[draw.DoNotRender](r, e) {
			n++
		}
	})
	return n
}

func TestSpawnActors(t *testing.T) {
	g, e := startGame(t)
	state := g.State.(*gameState)
	r := e.World().Registry

	if state.player.IsNull() || len(state.enemies) != 3 {
		t.Fatalf("player = %v, enemies = %d", state.player, len(state.enemies))
	}
	// Ground, the player and three enemies; the model templates stay hidden.
	if got := visibleInstances(r); got != 5 {
		t.Errorf("visible instances = %d, want 5", got)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, enemy := range state.enemies {
		tr, ok := ecs.Get[draw.Transform](r, enemy)
		if !ok {
			t.Fatalf("enemy %d has no transform", i)
		}
		mc, _ := ecs.Get[draw.MeshCollection](r, enemy)
		inst, _ := ecs.Get[metadata.GPUInstance](r, mc.Meshes[0])
		if inst.Transform != tr.Matrix {
			t.Errorf("enemy %d instance does not follow its collection transform", i)
		}
		if tr.Matrix.Data[12] == 0 && tr.Matrix.Data[14] == 0 {
			t.Errorf("enemy %d sits at the origin", i)
		}
	}
}

func TestMissingModelsAreSkipped(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.Enemy.Model = "dragon"
	g := NewTestGame(cfg)
	e, err := engine.New(g.Game)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Shutdown()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	state := g.State.(*gameState)
	if len(state.enemies) != 0 || state.player.IsNull() {
		t.Errorf("enemies = %d, player = %v", len(state.enemies), state.player)
	}
}

func TestLevelReloadRespawns(t *testing.T) {
	g, e := startGame(t)
	state := g.State.(*gameState)
	w := e.World()
	oldPlayer := state.player
	oldEnemies := append([]ecs.Entity(nil), state.enemies...)

	if err := w.ReloadLevel(); err != nil {
		t.Fatalf("ReloadLevel: %v", err)
	}
	if err := g.OnLevelReload(w); err != nil {
		t.Fatalf("OnLevelReload: %v", err)
	}

	if w.Registry.Alive(oldPlayer) {
		t.Error("old player collection survived the reload")
	}
	for _, enemy := range oldEnemies {
		if w.Registry.Alive(enemy) {
			t.Errorf("old enemy %v survived the reload", enemy)
		}
	}
	if state.player.IsNull() || len(state.enemies) != 3 {
		t.Errorf("after reload: player = %v, enemies = %d", state.player, len(state.enemies))
	}
	if got := visibleInstances(w.Registry); got != 5 {
		t.Errorf("visible instances = %d, want 5", got)
	}
}
