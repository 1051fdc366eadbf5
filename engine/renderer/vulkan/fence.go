package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// VulkanFence tracks whether its fence is known to be signaled so waits and
// resets on an already settled fence skip the driver call.
type VulkanFence struct {
	Handle   vk.Fence
	Signaled bool
}

var errFenceTimeout = errors.New("fence wait timed out")

// NewFence creates a fence, already signaled when signaled is true.
func NewFence(context *VulkanContext, signaled bool) (*VulkanFence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if err := vkCheck(vk.CreateFence(context.Device.LogicalDevice, &info, context.Allocator, &handle), "create fence"); err != nil {
		return nil, err
	}
	return &VulkanFence{Handle: handle, Signaled: signaled}, nil
}

func (f *VulkanFence) Destroy(context *VulkanContext) {
	if f.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, f.Handle, context.Allocator)
		f.Handle = vk.NullFence
	}
	f.Signaled = false
}

// Wait blocks until the fence signals or timeoutNs elapses.
func (f *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) error {
	if f.Signaled {
		return nil
	}
	res := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	if res == vk.Timeout {
		return errFenceTimeout
	}
	if err := vkCheck(res, "wait for fence"); err != nil {
		return err
	}
	f.Signaled = true
	return nil
}

func (f *VulkanFence) Reset(context *VulkanContext) error {
	if !f.Signaled {
		return nil
	}
	if err := vkCheck(vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{f.Handle}), "reset fence"); err != nil {
		return err
	}
	f.Signaled = false
	return nil
}
