package loaders

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// ModelInfo locates a model inside the level-wide arrays.
type ModelInfo struct {
	Name          string
	VertexStart   uint32
	VertexCount   uint32
	IndexStart    uint32
	IndexCount    uint32
	MaterialStart uint32
	MaterialCount uint32
	MeshStart     uint32
	MeshCount     uint32
}

// ObjectInfo places one model in the level.
type ObjectInfo struct {
	Name      string
	Model     uint32
	Transform uint32
	Dynamic   bool
}

// LevelData is everything the renderer needs to draw a level, with every
// model's geometry concatenated into shared arrays.
type LevelData struct {
	Name       string
	Vertices   []metadata.Vertex
	Indices    []uint32
	Materials  []metadata.MaterialAttributes
	Transforms []math.Mat4
	Meshes     []MeshInfo
	Models     []ModelInfo
	Objects    []ObjectInfo
}

type levelObject struct {
	Name      string    `toml:"name"`
	Model     string    `toml:"model"`
	Dynamic   bool      `toml:"dynamic"`
	Position  []float32 `toml:"position"`
	RotationY float32   `toml:"rotation_y"`
	Scale     []float32 `toml:"scale"`
	Matrix    []float32 `toml:"matrix"`
}

type levelDescriptor struct {
	Name    string        `toml:"name"`
	Objects []levelObject `toml:"objects"`
}

type LevelLoader struct {
	// Workers bounds how many models decode at once. Zero uses GOMAXPROCS.
	Workers int

	models ModelLoader
}

// LoadLevel reads the TOML level description at levelFile and every glTF
// model it references from modelPath. An empty modelPath resolves models
// next to the level file. Every failure is marked core.ErrLevelLoad.
func LoadLevel(levelFile, modelPath string) (*LevelData, error) {
	data, err := (&LevelLoader{}).Load(levelFile, modelPath)
	if err != nil {
		return nil, errors.Mark(err, core.ErrLevelLoad)
	}
	return data, nil
}

func (ll *LevelLoader) Load(levelFile, modelPath string) (*LevelData, error) {
	f, err := os.Open(levelFile)
	if err != nil {
		return nil, errors.Wrap(err, "open level")
	}
	defer f.Close()

	var desc levelDescriptor
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&desc); err != nil {
		return nil, errors.Wrapf(err, "parse level %q", levelFile)
	}
	if modelPath == "" {
		modelPath = filepath.Dir(levelFile)
	}

	// Model indices follow first use so the result does not depend on the
	// order in which the workers finish.
	modelIdx := make(map[string]uint32)
	var files []string
	names := make(map[string]struct{})
	for i := range desc.Objects {
		obj := &desc.Objects[i]
		if obj.Model == "" {
			return nil, errors.Newf("level %q object %d has no model", levelFile, i)
		}
		if obj.Name == "" {
			obj.Name = uuid.NewString()
		}
		if _, dup := names[obj.Name]; dup {
			return nil, errors.Newf("level %q has two objects named %q", levelFile, obj.Name)
		}
		names[obj.Name] = struct{}{}
		if _, ok := modelIdx[obj.Model]; !ok {
			modelIdx[obj.Model] = uint32(len(files))
			files = append(files, obj.Model)
		}
	}

	models, err := ll.loadModels(modelPath, files)
	if err != nil {
		return nil, err
	}
	data := &LevelData{Name: desc.Name}
	for i, m := range models {
		data.appendModel(files[i], m)
	}

	for _, obj := range desc.Objects {
		transform, err := obj.transform()
		if err != nil {
			return nil, errors.Wrapf(err, "level %q object %q", levelFile, obj.Name)
		}
		data.Transforms = append(data.Transforms, transform)
		data.Objects = append(data.Objects, ObjectInfo{
			Name:      obj.Name,
			Model:     modelIdx[obj.Model],
			Transform: uint32(len(data.Transforms) - 1),
			Dynamic:   obj.Dynamic,
		})
	}
	return data, nil
}

func (ll *LevelLoader) loadModels(modelPath string, files []string) ([]*ModelData, error) {
	models := make([]*ModelData, len(files))
	workers := ll.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = max(len(files), 1)
	}
	js, err := NewJobSystem(workers, len(files))
	if err != nil {
		return nil, err
	}
	for i, file := range files {
		js.Submit(Job{Name: file, Run: func() error {
			m, err := ll.models.Load(filepath.Join(modelPath, file))
			models[i] = m
			return err
		}})
	}
	if err := js.Wait(); err != nil {
		return nil, err
	}
	return models, nil
}

func (d *LevelData) appendModel(name string, m *ModelData) uint32 {
	d.Models = append(d.Models, ModelInfo{
		Name:          name,
		VertexStart:   uint32(len(d.Vertices)),
		VertexCount:   uint32(len(m.Vertices)),
		IndexStart:    uint32(len(d.Indices)),
		IndexCount:    uint32(len(m.Indices)),
		MaterialStart: uint32(len(d.Materials)),
		MaterialCount: uint32(len(m.Materials)),
		MeshStart:     uint32(len(d.Meshes)),
		MeshCount:     uint32(len(m.Meshes)),
	})
	d.Vertices = append(d.Vertices, m.Vertices...)
	d.Indices = append(d.Indices, m.Indices...)
	d.Materials = append(d.Materials, m.Materials...)
	d.Meshes = append(d.Meshes, m.Meshes...)
	return uint32(len(d.Models) - 1)
}

// transform builds the object's world matrix: an explicit matrix wins,
// otherwise scale, then rotation around Y, then translation.
func (o levelObject) transform() (math.Mat4, error) {
	if len(o.Matrix) > 0 {
		if len(o.Matrix) != 16 {
			return math.Mat4{}, errors.Newf("matrix has %d elements, want 16", len(o.Matrix))
		}
		m := math.Mat4{}
		copy(m.Data[:], o.Matrix)
		return m, nil
	}
	position, err := vec3(o.Position, 0)
	if err != nil {
		return math.Mat4{}, errors.Wrap(err, "position")
	}
	scale, err := vec3(o.Scale, 1)
	if err != nil {
		return math.Mat4{}, errors.Wrap(err, "scale")
	}
	return math.NewMat4Scale(scale).
		Mul(math.NewMat4EulerY(math.DegToRad(o.RotationY))).
		Mul(math.NewMat4Translation(position)), nil
}

func vec3(v []float32, fill float32) (math.Vec3, error) {
	switch len(v) {
	case 0:
		return math.NewVec3(fill, fill, fill), nil
	case 3:
		return math.NewVec3(v[0], v[1], v[2]), nil
	}
	return math.Vec3{}, errors.Newf("%d components, want 3", len(v))
}
