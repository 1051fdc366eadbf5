package loaders

import (
	"github.com/cockroachdb/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// MeshInfo is one drawable range of a model's index data.
type MeshInfo struct {
	Name string
	// IndexOffset is relative to the start of the model's indices.
	IndexOffset uint32
	IndexCount  uint32
	// MaterialIndex is relative to the start of the model's materials.
	MaterialIndex uint32
}

// ModelData is a model flattened into one vertex and one index array. Index
// values are relative to the model's first vertex.
type ModelData struct {
	Name      string
	Vertices  []metadata.Vertex
	Indices   []uint32
	Materials []metadata.MaterialAttributes
	Meshes    []MeshInfo
}

type ModelLoader struct{}

// Load reads a glTF 2.0 model (.gltf or .glb). Every primitive becomes one
// mesh; primitives without a material use a default one appended after the
// file's materials.
func (ml *ModelLoader) Load(path string) (*ModelData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open model %q", path)
	}
	model := &ModelData{Name: path}

	for _, gm := range doc.Materials {
		model.Materials = append(model.Materials, materialAttributes(gm))
	}
	fallback := uint32(len(model.Materials))
	model.Materials = append(model.Materials, metadata.DefaultMaterial())

	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			base := uint32(len(model.Vertices))
			verts, indices, err := readPrimitive(doc, prim)
			if err != nil {
				return nil, errors.Wrapf(err, "model %q mesh %d primitive %d", path, mi, pi)
			}
			mesh := MeshInfo{
				Name:          gm.Name,
				IndexOffset:   uint32(len(model.Indices)),
				IndexCount:    uint32(len(indices)),
				MaterialIndex: fallback,
			}
			if prim.Material != nil && *prim.Material < len(doc.Materials) {
				mesh.MaterialIndex = uint32(*prim.Material)
			}
			for _, idx := range indices {
				model.Indices = append(model.Indices, base+idx)
			}
			model.Vertices = append(model.Vertices, verts...)
			model.Meshes = append(model.Meshes, mesh)
		}
	}
	if len(model.Meshes) == 0 {
		return nil, errors.Newf("model %q has no meshes", path)
	}
	return model, nil
}

func readPrimitive(doc *gltf.Document, prim *gltf.Primitive) ([]metadata.Vertex, []uint32, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, errors.New("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "positions")
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, nil, errors.Wrap(err, "normals")
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, nil, errors.Wrap(err, "texture coordinates")
		}
	}

	verts := make([]metadata.Vertex, len(positions))
	for i, p := range positions {
		verts[i].Position = p
		verts[i].Normal = [3]float32{0, 1, 0}
		if i < len(normals) {
			verts[i].Normal = normals[i]
		}
		if i < len(uvs) {
			verts[i].UVW = [3]float32{uvs[i][0], uvs[i][1], 0}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return nil, nil, errors.Wrap(err, "indices")
		}
	} else {
		// Non-indexed primitives draw their vertices in order.
		indices = make([]uint32, len(verts))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	return verts, indices, nil
}

// materialAttributes maps PBR metallic-roughness onto the Phong style
// attributes the shaders consume.
func materialAttributes(gm *gltf.Material) metadata.MaterialAttributes {
	mat := metadata.DefaultMaterial()
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		cf := pbr.BaseColorFactorOrDefault()
		mat.Kd = [3]float32{float32(cf[0]), float32(cf[1]), float32(cf[2])}
		mat.D = float32(cf[3])
		roughness := float32(pbr.RoughnessFactorOrDefault())
		metallic := float32(pbr.MetallicFactorOrDefault())
		mat.Ns = (1.0-roughness)*(1.0-roughness)*128.0 + 1.0
		s := metallic * 0.7
		mat.Ks = [3]float32{s, s, s}
	}
	mat.Ka = [3]float32{mat.Kd[0] * 0.1, mat.Kd[1] * 0.1, mat.Kd[2] * 0.1}
	return mat
}
