package testbed

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine"
	"github.com/spaghettifunk/skirmish/engine/config"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/draw"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/math"
)

const (
	enemyRingRadius float32 = 12
	enemySpeed      float32 = 0.5
	cameraOrbitRate float32 = 0.1
	cameraDistance  float32 = 5
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	player  ecs.Entity
	enemies []ecs.Entity
	elapsed float32

	width  uint32
	height uint32
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: engine.NewApplicationConfig(cfg),
			State: &gameState{
				player: ecs.Null,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnOnLevelReload = tg.OnLevelReload
	return tg
}

func (g *TestGame) Initialize(w *engine.World) error {
	core.LogDebug("TestGame Initialize fn....")
	return g.spawnActors(w)
}

// spawnActors copies the player model once and the enemy model Count times
// out of the level's model manager. Missing models are skipped.
func (g *TestGame) spawnActors(w *engine.World) error {
	state := g.State.(*gameState)
	models, ok := w.Models()
	if !ok {
		core.LogWarn("level has no models, nothing to spawn")
		return nil
	}

	cfg := w.Config
	if cfg.Player.Count > 0 {
		player, err := g.spawn(w, models, cfg.Player.Model, math.NewVec3(0, 0, 0))
		if err != nil {
			return err
		}
		state.player = player
	}

	for i := 0; i < cfg.Enemy.Count; i++ {
		enemy, err := g.spawn(w, models, cfg.Enemy.Model, enemyPosition(i, cfg.Enemy.Count, 0))
		if err != nil {
			return err
		}
		if enemy.IsNull() {
			break
		}
		state.enemies = append(state.enemies, enemy)
	}
	core.LogInfo("spawned %d enemies", len(state.enemies))
	return nil
}

func (g *TestGame) spawn(w *engine.World, models ecs.Entity, name string, at math.Vec3) (ecs.Entity, error) {
	r := w.Registry
	if mm, ok := ecs.Get[draw.ModelManager](r, models); ok {
		if _, ok := mm.Collection(name); !ok {
			core.LogWarn("level has no model named %q", name)
			return ecs.Null, nil
		}
	}
	collection, err := draw.SpawnCollection(r, models, name)
	if err != nil {
		return ecs.Null, errors.Wrapf(err, "spawning %s", name)
	}
	if _, err := ecs.Emplace(r, collection, draw.Transform{Matrix: math.NewMat4Translation(at)}); err != nil {
		return ecs.Null, err
	}
	return collection, nil
}

func enemyPosition(i, count int, elapsed float32) math.Vec3 {
	angle := 2*math.K_PI*float32(i)/float32(count) + elapsed*enemySpeed
	return math.NewVec3OnCircle(enemyRingRadius, angle, 0)
}

func (g *TestGame) Update(w *engine.World, deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += float32(deltaTime)
	r := w.Registry

	for i, enemy := range state.enemies {
		if t, ok := ecs.Get[draw.Transform](r, enemy); ok {
			t.Matrix = math.NewMat4Translation(enemyPosition(i, len(state.enemies), state.elapsed))
		}
	}

	if cam, ok := ecs.Get[draw.Camera](r, w.Camera); ok {
		eye := math.NewVec3OnCircle(cameraDistance, state.elapsed*cameraOrbitRate-math.K_PI/2, engine.DefaultCameraEye.Y)
		cam.World = engine.CameraLookAt(eye, math.NewVec3(0, 0, 0))
	}
	return nil
}

// OnLevelReload respawns the actors, whose geometry points into the old
// level buffers.
func (g *TestGame) OnLevelReload(w *engine.World) error {
	state := g.State.(*gameState)
	var err error
	if !state.player.IsNull() {
		err = errors.CombineErrors(err, w.Registry.Destroy(state.player))
		state.player = ecs.Null
	}
	for _, enemy := range state.enemies {
		err = errors.CombineErrors(err, w.Registry.Destroy(enemy))
	}
	state.enemies = nil
	if err != nil {
		return err
	}
	return g.spawnActors(w)
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}
