package metadata

// BufferUsage tells the device what a buffer is bound as.
type BufferUsage uint8

const (
	/** @brief Buffer is used for vertex data. */
	BufferUsageVertex BufferUsage = iota + 1
	/** @brief Buffer is used for index data. */
	BufferUsageIndex
	/** @brief Buffer is used for per-instance data storage. */
	BufferUsageStorage
	/** @brief Buffer is used for uniform data. */
	BufferUsageUniform
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	case BufferUsageStorage:
		return "storage"
	case BufferUsageUniform:
		return "uniform"
	}
	return "unknown"
}

// MemoryProperty is a bit set of memory placement requirements.
type MemoryProperty uint8

const (
	MemoryHostVisible MemoryProperty = 1 << iota
	MemoryHostCoherent
)

// MemoryHostShared is the only placement buffers in this engine use: the host
// maps and writes directly, and writes become visible without a flush.
const MemoryHostShared = MemoryHostVisible | MemoryHostCoherent

// BufferHandle and MemoryHandle are opaque device handles. Zero is null.
type BufferHandle uint64
type MemoryHandle uint64

// Allocation pairs a buffer with the dedicated memory backing it.
type Allocation struct {
	Buffer BufferHandle
	Memory MemoryHandle
	Size   uint64
}

func (a Allocation) IsNull() bool {
	return a.Buffer == 0 && a.Memory == 0
}

const (
	// UniformBinding is the descriptor binding of the per-frame SceneData buffer.
	UniformBinding uint32 = 0
	// StorageBinding is the descriptor binding of the per-frame instance buffer.
	StorageBinding uint32 = 1
)
