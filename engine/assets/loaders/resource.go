package loaders

import "path/filepath"

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeLevel
	ResourceTypeModel
	ResourceTypeShader
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeLevel:
		return "level"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeShader:
		return "shader"
	}
	return "none"
}

// DetermineResourceType classifies a file by its extension.
func DetermineResourceType(path string) ResourceType {
	switch filepath.Ext(path) {
	case ".toml":
		return ResourceTypeLevel
	case ".gltf", ".glb":
		return ResourceTypeModel
	case ".spv":
		return ResourceTypeShader
	default:
		return ResourceTypeNone
	}
}
