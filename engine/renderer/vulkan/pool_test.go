package vulkan

import (
	"sync"
	"testing"

	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

func TestLockPoolSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			pool.SafeCall(BufferManagement, func() error {
				counter++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			pool.SafeQueueCall(0, func() error { return nil })
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestSafeQueueCallUnregisteredFamily(t *testing.T) {
	pool := NewVulkanLockPool()
	ran := false
	if err := pool.SafeQueueCall(7, func() error { ran = true; return nil }); err != nil || !ran {
		t.Errorf("ran = %v, err = %v", ran, err)
	}
	if m := pool.mutex(lockKey{group: QueueManagement, queue: 7}, false); m != nil {
		t.Error("SafeQueueCall registered a queue family")
	}
}

func TestSwapchainStaleness(t *testing.T) {
	vc := &VulkanContext{}
	if vc.SwapchainStale() {
		t.Fatal("fresh context reports a stale swapchain")
	}
	vc.MarkSwapchainStale()
	vc.MarkSwapchainStale()
	if !vc.SwapchainStale() {
		t.Fatal("resize not noticed")
	}
	vc.markSwapchainBuilt()
	if vc.SwapchainStale() {
		t.Error("rebuilt swapchain still stale")
	}
}

func TestAdvanceFrameWraps(t *testing.T) {
	vc := &VulkanContext{}
	for i := uint32(1); i <= 2*MaxFramesInFlight; i++ {
		vc.AdvanceFrame()
		if want := i % MaxFramesInFlight; vc.CurrentFrame != want {
			t.Fatalf("after %d advances frame = %d, want %d", i, vc.CurrentFrame, want)
		}
	}
}

func TestBufferUsageFlags(t *testing.T) {
	tests := []struct {
		usage metadata.BufferUsage
		ok    bool
	}{
		{metadata.BufferUsageVertex, true},
		{metadata.BufferUsageIndex, true},
		{metadata.BufferUsageStorage, true},
		{metadata.BufferUsageUniform, true},
		{metadata.BufferUsage(9), false},
	}
	for _, tt := range tests {
		if _, err := bufferUsageFlags(tt.usage); (err == nil) != tt.ok {
			t.Errorf("%s: err = %v", tt.usage, err)
		}
	}
}
