package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/skirmish/engine/core"
)

// writeModel saves a glb with one triangle primitive per entry of meshes.
func writeModel(t *testing.T, path string, meshes int) {
	t.Helper()
	doc := gltf.NewDocument()
	doc.Materials = []*gltf.Material{{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
		},
	}}
	mesh := &gltf.Mesh{Name: "body"}
	for i := 0; i < meshes; i++ {
		pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
		idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
		prim := &gltf.Primitive{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{"POSITION": pos},
		}
		if i == 0 {
			prim.Material = gltf.Index(0)
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	doc.Meshes = []*gltf.Mesh{mesh}
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("save model: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestModelLoaderOffsetsPrimitives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ship.glb")
	writeModel(t, path, 2)

	model, err := (&ModelLoader{}).Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(model.Vertices) != 6 || len(model.Indices) != 6 || len(model.Meshes) != 2 {
		t.Fatalf("vertices=%d indices=%d meshes=%d", len(model.Vertices), len(model.Indices), len(model.Meshes))
	}
	// Second primitive indexes its own vertices.
	if model.Indices[3] != 3 || model.Indices[5] != 5 {
		t.Errorf("indices = %v", model.Indices)
	}
	if model.Meshes[1].IndexOffset != 3 || model.Meshes[1].IndexCount != 3 {
		t.Errorf("mesh 1 = %+v", model.Meshes[1])
	}
	if model.Meshes[0].MaterialIndex != 0 {
		t.Errorf("mesh 0 material = %d", model.Meshes[0].MaterialIndex)
	}
	if model.Meshes[1].MaterialIndex != 1 {
		t.Errorf("mesh 1 should use the fallback material, got %d", model.Meshes[1].MaterialIndex)
	}
	if kd := model.Materials[0].Kd; kd != [3]float32{1, 0, 0} {
		t.Errorf("red Kd = %v", kd)
	}
}

func TestLoadLevel(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "ground.glb"), 1)
	writeModel(t, filepath.Join(dir, "ship.glb"), 2)
	level := filepath.Join(dir, "arena.toml")
	writeFile(t, level, `
name = "arena"

[[objects]]
name = "ground"
model = "ground.glb"
scale = [10, 1, 10]

[[objects]]
name = "player"
model = "ship.glb"
dynamic = true
position = [0, 0, 5]

[[objects]]
model = "ship.glb"
dynamic = true
position = [3, 0, 5]
`)

	data, err := LoadLevel(level, "")
	if err != nil {
		t.Fatal(err)
	}
	if data.Name != "arena" {
		t.Errorf("name = %q", data.Name)
	}
	if len(data.Models) != 2 {
		t.Fatalf("models = %d, want 2 (ship loaded once)", len(data.Models))
	}
	if len(data.Objects) != 3 || len(data.Transforms) != 3 {
		t.Fatalf("objects = %d transforms = %d", len(data.Objects), len(data.Transforms))
	}
	ship := data.Models[1]
	if ship.VertexStart != 3 || ship.IndexStart != 3 || ship.MeshStart != 1 || ship.MeshCount != 2 {
		t.Errorf("ship model = %+v", ship)
	}
	if data.Objects[2].Name == "" {
		t.Error("unnamed object did not get a generated name")
	}
	if got := data.Transforms[1].Row(3); got.Z != 5 {
		t.Errorf("player position row = %+v", got)
	}
	if got := data.Transforms[0].Data[0]; got != 10 {
		t.Errorf("ground x scale = %f", got)
	}
}

func TestLoadLevelErrors(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "ship.glb"), 1)

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "[[objects]]\nmodel = \"ship.glb\"\ncolour = 1\n"},
		{"missing model file", "[[objects]]\nmodel = \"nope.glb\"\n"},
		{"no model", "[[objects]]\nname = \"a\"\n"},
		{"duplicate names", "[[objects]]\nname = \"a\"\nmodel = \"ship.glb\"\n[[objects]]\nname = \"a\"\nmodel = \"ship.glb\"\n"},
		{"bad position", "[[objects]]\nmodel = \"ship.glb\"\nposition = [1, 2]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "level.toml")
			writeFile(t, path, tt.content)
			if _, err := LoadLevel(path, dir); !errors.Is(err, core.ErrLevelLoad) {
				t.Errorf("err = %v, want ErrLevelLoad", err)
			}
		})
	}

	if _, err := LoadLevel(filepath.Join(dir, "missing.toml"), dir); err == nil {
		t.Error("missing level file accepted")
	}
}

func TestDetermineResourceType(t *testing.T) {
	tests := map[string]ResourceType{
		"levels/arena.toml": ResourceTypeLevel,
		"models/ship.glb":   ResourceTypeModel,
		"models/ship.gltf":  ResourceTypeModel,
		"shaders/vert.spv":  ResourceTypeShader,
		"readme.md":         ResourceTypeNone,
	}
	for path, want := range tests {
		if got := DetermineResourceType(path); got != want {
			t.Errorf("DetermineResourceType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestLoadLevelModelOrderIgnoresWorkers(t *testing.T) {
	dir := t.TempDir()
	var content string
	for i, meshes := range []int{3, 1, 2, 1} {
		name := string(rune('a'+i)) + ".glb"
		writeModel(t, filepath.Join(dir, name), meshes)
		content += "[[objects]]\nmodel = \"" + name + "\"\n"
	}
	level := filepath.Join(dir, "level.toml")
	writeFile(t, level, content)

	serial, err := (&LevelLoader{Workers: 1}).Load(level, dir)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := (&LevelLoader{Workers: 4}).Load(level, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(serial.Models) != 4 || len(parallel.Models) != 4 {
		t.Fatalf("models: serial %d, parallel %d", len(serial.Models), len(parallel.Models))
	}
	for i := range serial.Models {
		if serial.Models[i] != parallel.Models[i] {
			t.Errorf("model %d: serial %+v, parallel %+v", i, serial.Models[i], parallel.Models[i])
		}
	}
	if serial.Models[2].MeshStart != 4 || serial.Models[2].MeshCount != 2 {
		t.Errorf("model c meshes = %d+%d, want 4+2", serial.Models[2].MeshStart, serial.Models[2].MeshCount)
	}
}
