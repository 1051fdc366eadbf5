package metadata

import (
	"unsafe"

	"github.com/spaghettifunk/skirmish/engine/math"
)

/**
 * @brief A single vertex as uploaded to the vertex buffer.
 */
type Vertex struct {
	Position [3]float32
	UVW      [3]float32
	Normal   [3]float32
}

/**
 * @brief Surface attributes of a material, laid out for a storage buffer.
 */
type MaterialAttributes struct {
	/** @brief Diffuse reflectivity. */
	Kd [3]float32
	/** @brief Dissolve (transparency). */
	D float32
	/** @brief Specular reflectivity. */
	Ks [3]float32
	/** @brief Specular exponent. */
	Ns float32
	/** @brief Ambient reflectivity. */
	Ka [3]float32
	/** @brief Reflection sharpness. */
	Sharpness float32
	/** @brief Transmission filter. */
	Tf [3]float32
	/** @brief Optical density. */
	Ni float32
	/** @brief Emissive color. */
	Ke [3]float32
	/** @brief Illumination model. */
	Illum uint32
}

// DefaultMaterial is a matte light grey surface.
func DefaultMaterial() MaterialAttributes {
	return MaterialAttributes{
		Kd:    [3]float32{0.8, 0.8, 0.8},
		D:     1,
		Ks:    [3]float32{0.5, 0.5, 0.5},
		Ns:    32,
		Ni:    1,
		Illum: 2,
	}
}

// GPUInstance is one entry of the per-frame instance storage buffer.
type GPUInstance struct {
	Transform math.Mat4
	Material  MaterialAttributes
}

// GeometryData locates a mesh inside the shared level vertex and index buffers.
type GeometryData struct {
	IndexStart  uint32
	IndexCount  uint32
	VertexStart uint32
}

// SceneData is the per-frame uniform record. Directions and colors use four
// components to satisfy std140 alignment.
type SceneData struct {
	SunDirection   math.Vec4
	SunColor       math.Vec4
	SunAmbient     math.Vec4
	CameraPosition math.Vec4
	View           math.Mat4
	Projection     math.Mat4
}

const (
	VertexSize      = uint64(unsafe.Sizeof(Vertex{}))
	IndexSize       = uint64(unsafe.Sizeof(uint32(0)))
	GPUInstanceSize = uint64(unsafe.Sizeof(GPUInstance{}))
	SceneDataSize   = uint64(unsafe.Sizeof(SceneData{}))
)

// AsBytes reinterprets a slice of plain records as raw bytes without copying.
func AsBytes[T any](records []T) []byte {
	if len(records) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(records[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&records[0])), size*len(records))
}
