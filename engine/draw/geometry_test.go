package draw

import (
	"bytes"
	"testing"

	"github.com/spaghettifunk/skirmish/engine/ecs"
	"github.com/spaghettifunk/skirmish/engine/renderer/headless"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

func TestVertexUploadRoundTrip(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	verts, _ := triangle()

	ecs.Emplace(r, display, VertexBuffer{})
	ecs.Emplace(r, display, verts)
	if err := ecs.Patch[VertexBuffer](r, display); err != nil {
		t.Fatal(err)
	}

	vb, _ := ecs.Get[VertexBuffer](r, display)
	if vb.IsNull() {
		t.Fatal("vertex buffer not allocated")
	}
	if vb.Size != 3*metadata.VertexSize {
		t.Errorf("size = %d, want %d", vb.Size, 3*metadata.VertexSize)
	}
	if got := readBack(t, device, vb.Memory); !bytes.Equal(got, metadata.AsBytes([]metadata.Vertex(verts))) {
		t.Error("uploaded bytes differ from staged vertices")
	}
	if ecs.Has[VertexStaging](r, display) {
		t.Error("staging survived the upload")
	}

	// The idle wait comes after the write and before staging is dropped.
	trace := device.Trace()
	ops := make([]headless.Op, 0, len(trace))
	for _, c := range trace {
		ops = append(ops, c.Op)
	}
	want := []headless.Op{headless.OpAllocate, headless.OpWrite, headless.OpWaitIdle}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
	if trace[0].Usage != metadata.BufferUsageVertex {
		t.Errorf("usage = %s", trace[0].Usage)
	}
}

func TestIndexReuploadReplacesBuffer(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	ecs.Emplace(r, display, IndexBuffer{})

	for _, staged := range []IndexStaging{{0, 1, 2}, {0, 1, 2, 2, 1, 3}} {
		ecs.Emplace(r, display, staged)
		if err := ecs.Patch[IndexBuffer](r, display); err != nil {
			t.Fatal(err)
		}
	}

	ib, _ := ecs.Get[IndexBuffer](r, display)
	if got := decode[uint32](readBack(t, device, ib.Memory)); len(got) != 6 || got[5] != 3 {
		t.Errorf("indices = %v", got)
	}
	if device.LiveAllocations() != 1 {
		t.Errorf("live allocations = %d, want 1", device.LiveAllocations())
	}
	frees := device.Calls(headless.OpFree)
	if len(frees) != 1 || frees[0].Size != 12 {
		t.Errorf("frees = %+v", frees)
	}
}

func TestReplacingBuffersFreesOldAllocations(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	verts, _ := triangle()

	ecs.Emplace(r, display, VertexBuffer{})
	ecs.Emplace(r, display, verts)
	if err := ecs.Patch[VertexBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	old, _ := ecs.Get[VertexBuffer](r, display)
	oldMemory := old.Memory

	if _, err := ecs.Emplace(r, display, VertexBuffer{}); err != nil {
		t.Fatal(err)
	}
	ecs.Emplace(r, display, verts)
	if err := ecs.Patch[VertexBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	if device.LiveAllocations() != 1 {
		t.Errorf("live after vertex replace = %d, want 1", device.LiveAllocations())
	}
	if frees := device.Calls(headless.OpFree); len(frees) != 1 || frees[0].Memory != oldMemory {
		t.Errorf("frees = %+v, want the replaced vertex memory %d", frees, oldMemory)
	}

	for i := 0; i < 2; i++ {
		if _, err := ecs.Emplace(r, display, InstanceBuffer{Capacity: 4}); err != nil {
			t.Fatal(err)
		}
	}
	if want := 1 + int(device.FrameCount()); device.LiveAllocations() != want {
		t.Errorf("live after instance replace = %d, want %d", device.LiveAllocations(), want)
	}

	if err := r.Destroy(display); err != nil {
		t.Fatal(err)
	}
	if device.LiveAllocations() != 0 {
		t.Errorf("live after destroy = %d, want 0", device.LiveAllocations())
	}
}

func TestGeometryPreconditionsAreNoops(t *testing.T) {
	r := ecs.NewRegistry()
	Connect(r)
	verts, _ := triangle()

	// No render context: nothing happens and staging stays put.
	e := r.Create()
	ecs.Emplace(r, e, VertexBuffer{})
	ecs.Emplace(r, e, verts)
	if err := ecs.Patch[VertexBuffer](r, e); err != nil {
		t.Fatal(err)
	}
	if vb, _ := ecs.Get[VertexBuffer](r, e); !vb.IsNull() {
		t.Error("buffer allocated without a device")
	}
	if !ecs.Has[VertexStaging](r, e) {
		t.Error("staging consumed without a device")
	}

	// No staging: the current buffer is untouched.
	r2, display, device := newDisplay(t, 2)
	ecs.Emplace(r2, display, VertexBuffer{})
	ecs.Emplace(r2, display, verts)
	ecs.Patch[VertexBuffer](r2, display)
	before, _ := ecs.Get[VertexBuffer](r2, display)
	kept := before.Allocation
	device.ResetTrace()

	if err := ecs.Patch[VertexBuffer](r2, display); err != nil {
		t.Fatal(err)
	}
	after, _ := ecs.Get[VertexBuffer](r2, display)
	if after.Allocation != kept || len(device.Trace()) != 0 {
		t.Errorf("update without staging touched the device: %+v", device.Trace())
	}
}

func TestEmptyStagingOnlyClears(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	ecs.Emplace(r, display, VertexBuffer{})
	ecs.Emplace(r, display, VertexStaging{})
	if err := ecs.Patch[VertexBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	if len(device.Calls(headless.OpAllocate)) != 0 {
		t.Error("zero sized buffer allocated")
	}
	if ecs.Has[VertexStaging](r, display) {
		t.Error("empty staging not removed")
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	verts, indices := triangle()

	// Null buffers free nothing.
	ecs.Emplace(r, display, VertexBuffer{})
	if err := ecs.Remove[VertexBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	if len(device.Calls(headless.OpFree)) != 0 {
		t.Error("null buffer freed")
	}

	ecs.Emplace(r, display, VertexBuffer{})
	ecs.Emplace(r, display, verts)
	ecs.Patch[VertexBuffer](r, display)
	ecs.Emplace(r, display, IndexBuffer{})
	ecs.Emplace(r, display, indices)
	ecs.Patch[IndexBuffer](r, display)

	// Running the destroy path twice frees once.
	hooks := vertexBufferHooks()
	for i := 0; i < 2; i++ {
		if err := hooks.OnDetach(r, display); err != nil {
			t.Fatalf("destroy %d: %v", i, err)
		}
	}
	if got := len(device.Calls(headless.OpFree)); got != 1 {
		t.Errorf("frees after double destroy = %d, want 1", got)
	}

	if err := r.Destroy(display); err != nil {
		t.Fatal(err)
	}
	if device.LiveAllocations() != 0 {
		t.Errorf("live allocations after destroy = %d", device.LiveAllocations())
	}
}

func TestDestroyWithoutDeviceIsNoop(t *testing.T) {
	r, display, device := newDisplay(t, 2)
	verts, _ := triangle()
	ecs.Emplace(r, display, VertexBuffer{})
	ecs.Emplace(r, display, verts)
	ecs.Patch[VertexBuffer](r, display)

	rc, _ := ecs.Get[RenderContext](r, display)
	rc.Device = nil
	if err := ecs.Remove[VertexBuffer](r, display); err != nil {
		t.Fatal(err)
	}
	if len(device.Calls(headless.OpFree)) != 0 {
		t.Error("freed without a render context")
	}
}
