package headless

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

func TestAllocateWriteReadBack(t *testing.T) {
	d := NewWithFrames(2)
	alloc, err := d.Allocate(8, metadata.BufferUsageVertex, metadata.MemoryHostShared)
	if err != nil {
		t.Fatal(err)
	}
	if alloc.Buffer == 0 || alloc.Memory == 0 || alloc.Size != 8 {
		t.Fatalf("allocation = %+v", alloc)
	}
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := d.Write(alloc.Memory, payload); err != nil {
		t.Fatal(err)
	}
	got, ok := d.ReadBack(alloc.Memory)
	if !ok || !bytes.Equal(got, payload) {
		t.Errorf("ReadBack = %v, %v", got, ok)
	}
	if err := d.Write(alloc.Memory, make([]byte, 9)); !errors.Is(err, core.ErrDeviceWrite) {
		t.Errorf("overflowing write error = %v", err)
	}
}

func TestFreeTwiceFails(t *testing.T) {
	d := NewWithFrames(2)
	alloc, _ := d.Allocate(4, metadata.BufferUsageIndex, metadata.MemoryHostShared)
	if err := d.Free(alloc); err != nil {
		t.Fatal(err)
	}
	if err := d.Free(alloc); !errors.Is(err, core.ErrInvalidHandle) {
		t.Errorf("double free error = %v", err)
	}
	if d.LiveAllocations() != 0 || d.BytesInUse() != 0 {
		t.Errorf("live=%d bytes=%d after free", d.LiveAllocations(), d.BytesInUse())
	}
}

func TestAllocationFailures(t *testing.T) {
	d := New()
	if err := d.Initialize(&metadata.RendererBackendConfig{
		Width: 4, Height: 3, FOV: 65, Near: 0.1, Far: 100,
		MemoryBudget: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if d.FrameCount() != DefaultFramesInFlight {
		t.Errorf("FrameCount = %d", d.FrameCount())
	}

	tests := []struct {
		name   string
		size   uint64
		memory metadata.MemoryProperty
	}{
		{"zero size", 0, metadata.MemoryHostShared},
		{"device local", 4, 0},
		{"over budget", 17, metadata.MemoryHostShared},
	}
	for _, tt := range tests {
		if _, err := d.Allocate(tt.size, metadata.BufferUsageStorage, tt.memory); !errors.Is(err, core.ErrDeviceAllocation) {
			t.Errorf("%s: error = %v, want ErrDeviceAllocation", tt.name, err)
		}
	}
	if len(d.Calls(OpAllocate)) != 0 {
		t.Error("failed allocations were recorded")
	}
}

func TestFramesAdvanceAndDescriptors(t *testing.T) {
	d := NewWithFrames(3)
	alloc, _ := d.Allocate(4, metadata.BufferUsageStorage, metadata.MemoryHostShared)
	if err := d.UpdateDescriptor(2, metadata.StorageBinding, metadata.BufferUsageStorage, alloc.Buffer); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateDescriptor(3, metadata.StorageBinding, metadata.BufferUsageStorage, alloc.Buffer); err == nil {
		t.Error("out of range frame accepted")
	}
	if got := d.Descriptor(2, metadata.StorageBinding); got != alloc.Buffer {
		t.Errorf("Descriptor = %d, want %d", got, alloc.Buffer)
	}

	for i, want := range []uint32{1, 2, 0, 1} {
		d.BeginFrame(0)
		d.EndFrame(0)
		if d.CurrentFrameIndex() != want {
			t.Errorf("after frame %d current = %d, want %d", i, d.CurrentFrameIndex(), want)
		}
	}

	d.Free(alloc)
	if got := d.Descriptor(2, metadata.StorageBinding); got != 0 {
		t.Errorf("descriptor still points at freed buffer %d", got)
	}
}
