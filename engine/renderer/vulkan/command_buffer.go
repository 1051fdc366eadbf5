package vulkan

import (
	vk "github.com/goki/vulkan"
)

type CommandBufferState int

const (
	CommandBufferNotAllocated CommandBufferState = iota
	CommandBufferReady
	CommandBufferRecording
	CommandBufferInRenderPass
	CommandBufferRecordingEnded
	CommandBufferSubmitted
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState
}

// NewVulkanCommandBuffer allocates one primary command buffer from pool.
func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	handles := make([]vk.CommandBuffer, 1)
	if err := vkCheck(vk.AllocateCommandBuffers(context.Device.LogicalDevice, &info, handles), "allocate command buffer"); err != nil {
		return nil, err
	}
	return &VulkanCommandBuffer{Handle: handles[0], State: CommandBufferReady}, nil
}

func (cb *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if cb.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{cb.Handle})
	cb.Handle = nil
	cb.State = CommandBufferNotAllocated
}

// Begin starts recording. usage is a combination of
// vk.CommandBufferUsageFlagBits, zero for a buffer re-recorded every frame.
func (cb *VulkanCommandBuffer) Begin(usage vk.CommandBufferUsageFlags) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: usage,
	}
	if err := vkCheck(vk.BeginCommandBuffer(cb.Handle, &info), "begin command buffer"); err != nil {
		return err
	}
	cb.State = CommandBufferRecording
	return nil
}

func (cb *VulkanCommandBuffer) End() error {
	if err := vkCheck(vk.EndCommandBuffer(cb.Handle), "end command buffer"); err != nil {
		return err
	}
	cb.State = CommandBufferRecordingEnded
	return nil
}
