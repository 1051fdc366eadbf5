package draw

import (
	"bytes"
	"os"
	"testing"
	"unsafe"

	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/headless"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// newDisplay returns a registry with the draw hooks connected and an entity
// holding a RenderContext over a headless device.
func newDisplay(t *testing.T, frames uint32) (*ecs.Registry, ecs.Entity, *headless.Device) {
	t.Helper()
	r := ecs.NewRegistry()
	Connect(r)
	device := headless.NewWithFrames(frames)
	display := r.Create()
	if _, err := ecs.Emplace(r, display, RenderContext{Device: device}); err != nil {
		t.Fatal(err)
	}
	return r, display, device
}

func decode[T any](raw []byte) []T {
	var zero T
	out := make([]T, len(raw)/int(unsafe.Sizeof(zero)))
	copy(metadata.AsBytes(out), raw)
	return out
}

func readBack(t *testing.T, d *headless.Device, memory metadata.MemoryHandle) []byte {
	t.Helper()
	raw, ok := d.ReadBack(memory)
	if !ok {
		t.Fatalf("memory %d is not allocated", memory)
	}
	return raw
}

func isZero(raw []byte) bool {
	return bytes.Count(raw, []byte{0}) == len(raw)
}

// captureLog redirects the engine logger until the test ends.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	core.LogSetOutput(&buf)
	t.Cleanup(func() { core.LogSetOutput(os.Stderr) })
	return &buf
}

func triangle() (VertexStaging, IndexStaging) {
	return VertexStaging{
			{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, -1}},
			{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, -1}},
			{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, -1}},
		},
		IndexStaging{0, 1, 2}
}

func instances(n int) InstanceStaging {
	out := make(InstanceStaging, n)
	for i := range out {
		out[i].Transform.Data[12] = float32(i + 1)
		out[i].Material = metadata.DefaultMaterial()
	}
	return out
}
