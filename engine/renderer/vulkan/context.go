package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/math"
)

// VulkanContext is the state shared by every part of the backend.
type VulkanContext struct {
	FramebufferWidth  uint32
	FramebufferHeight uint32

	// sizeGeneration moves on every resize or out-of-date report;
	// builtGeneration is the generation the swapchain was last built for.
	sizeGeneration  uint64
	builtGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	GraphicsCommandBuffers []*VulkanCommandBuffer // per swapchain image

	ImageAvailableSemaphores []vk.Semaphore // per frame in flight
	QueueCompleteSemaphores  []vk.Semaphore // per frame in flight
	InFlightFences           []*VulkanFence // per frame in flight

	// ImagesInFlight borrows from InFlightFences: the fence of the frame
	// that last rendered into each swapchain image.
	ImagesInFlight []*VulkanFence

	// Binding 0 uniform, binding 1 storage, one set per frame in flight.
	Descriptors *VulkanDescriptors

	// Buffers allocated through the device context, keyed by memory handle.
	Buffers *core.Identifiers[*VulkanBuffer]

	Locks *VulkanLockPool

	Projection math.Mat4

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

// MarkSwapchainStale schedules a swapchain rebuild before the next frame.
func (vc *VulkanContext) MarkSwapchainStale() {
	vc.sizeGeneration++
}

func (vc *VulkanContext) SwapchainStale() bool {
	return vc.sizeGeneration != vc.builtGeneration
}

func (vc *VulkanContext) markSwapchainBuilt() {
	vc.builtGeneration = vc.sizeGeneration
}

// AdvanceFrame moves to the next frame-in-flight slot.
func (vc *VulkanContext) AdvanceFrame() {
	vc.CurrentFrame = (vc.CurrentFrame + 1) % MaxFramesInFlight
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every flag in propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryType := memoryProperties.MemoryTypes[i]
		memoryType.Deref()
		if (typeFilter&(1<<i)) != 0 && memoryType.PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, errors.Wrapf(core.ErrDeviceAllocation, "no memory type matches filter %b with flags %b", typeFilter, propertyFlags)
}
