package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

// VulkanBuffer is a buffer with its own dedicated memory block.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  metadata.BufferUsage
}

func bufferUsageFlags(usage metadata.BufferUsage) (vk.BufferUsageFlags, error) {
	switch usage {
	case metadata.BufferUsageVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), nil
	case metadata.BufferUsageIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), nil
	case metadata.BufferUsageStorage:
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), nil
	case metadata.BufferUsageUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), nil
	}
	return 0, errors.Newf("unsupported buffer usage %d", usage)
}

func memoryPropertyFlags(memory metadata.MemoryProperty) vk.MemoryPropertyFlags {
	var flags vk.MemoryPropertyFlagBits
	if memory&metadata.MemoryHostVisible != 0 {
		flags |= vk.MemoryPropertyHostVisibleBit
	}
	if memory&metadata.MemoryHostCoherent != 0 {
		flags |= vk.MemoryPropertyHostCoherentBit
	}
	return vk.MemoryPropertyFlags(flags)
}

// Allocate creates a buffer and binds a fresh memory block to it. Buffer and
// memory share one handle.
func (vr *VulkanRenderer) Allocate(size uint64, usage metadata.BufferUsage, memory metadata.MemoryProperty) (metadata.Allocation, error) {
	if size == 0 {
		return metadata.Allocation{}, errors.Wrapf(core.ErrDeviceAllocation, "zero sized %s buffer", usage)
	}
	usageFlags, err := bufferUsageFlags(usage)
	if err != nil {
		return metadata.Allocation{}, err
	}

	var handle uint64
	err = vr.context.Locks.SafeCall(BufferManagement, func() error {
		device := vr.context.Device.LogicalDevice
		buffer := &VulkanBuffer{Size: vk.DeviceSize(size), Usage: usage}

		bufferCreateInfo := vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        buffer.Size,
			Usage:       usageFlags,
			SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
		}
		if res := vk.CreateBuffer(device, &bufferCreateInfo, vr.context.Allocator, &buffer.Handle); res != vk.Success {
			return errors.Wrapf(core.ErrDeviceAllocation, "vkCreateBuffer: %s", VulkanResultString(res, false))
		}

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device, buffer.Handle, &requirements)
		requirements.Deref()

		memoryType, err := vr.context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags(memory))
		if err != nil {
			vk.DestroyBuffer(device, buffer.Handle, vr.context.Allocator)
			return err
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: memoryType,
		}
		if res := vk.AllocateMemory(device, &allocateInfo, vr.context.Allocator, &buffer.Memory); res != vk.Success {
			vk.DestroyBuffer(device, buffer.Handle, vr.context.Allocator)
			return errors.Wrapf(core.ErrDeviceAllocation, "vkAllocateMemory(%d bytes): %s", requirements.Size, VulkanResultString(res, false))
		}
		if res := vk.BindBufferMemory(device, buffer.Handle, buffer.Memory, 0); res != vk.Success {
			vk.FreeMemory(device, buffer.Memory, vr.context.Allocator)
			vk.DestroyBuffer(device, buffer.Handle, vr.context.Allocator)
			return errors.Wrapf(core.ErrDeviceAllocation, "vkBindBufferMemory: %s", VulkanResultString(res, false))
		}
		handle = vr.context.Buffers.Acquire(buffer)
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return metadata.Allocation{}, err
	}
	return metadata.Allocation{
		Buffer: metadata.BufferHandle(handle),
		Memory: metadata.MemoryHandle(handle),
		Size:   size,
	}, nil
}

// Write maps the whole memory block, copies data to its start and unmaps.
func (vr *VulkanRenderer) Write(memory metadata.MemoryHandle, data []byte) error {
	return vr.context.Locks.SafeCall(BufferManagement, func() error {
		buffer, ok := vr.context.Buffers.Lookup(uint64(memory))
		if !ok {
			return errors.Wrapf(core.ErrDeviceWrite, "write to unknown memory %d", memory)
		}
		if vk.DeviceSize(len(data)) > buffer.Size {
			return errors.Wrapf(core.ErrDeviceWrite, "write of %d bytes overflows %d byte buffer", len(data), buffer.Size)
		}
		if len(data) == 0 {
			return nil
		}
		var mapped unsafe.Pointer
		if res := vk.MapMemory(vr.context.Device.LogicalDevice, buffer.Memory, 0, buffer.Size, 0, &mapped); res != vk.Success {
			return errors.Wrapf(core.ErrDeviceWrite, "vkMapMemory: %s", VulkanResultString(res, false))
		}
		vk.Memcopy(mapped, data)
		vk.UnmapMemory(vr.context.Device.LogicalDevice, buffer.Memory)
		return nil
	})
}

func (vr *VulkanRenderer) Free(alloc metadata.Allocation) error {
	return vr.context.Locks.SafeCall(BufferManagement, func() error {
		if alloc.Buffer != metadata.BufferHandle(alloc.Memory) {
			return errors.Wrapf(core.ErrInvalidHandle, "buffer %d is not bound to memory %d", alloc.Buffer, alloc.Memory)
		}
		buffer, err := vr.context.Buffers.Release(uint64(alloc.Buffer))
		if err != nil {
			return err
		}
		vk.DestroyBuffer(vr.context.Device.LogicalDevice, buffer.Handle, vr.context.Allocator)
		vk.FreeMemory(vr.context.Device.LogicalDevice, buffer.Memory, vr.context.Allocator)
		return nil
	})
}

func (vr *VulkanRenderer) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		err := errors.Newf("vkDeviceWaitIdle failed: '%s'", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	return nil
}

// destroyBuffers frees whatever the buffer managers left behind.
func (vr *VulkanRenderer) destroyBuffers() {
	if n := vr.context.Buffers.Len(); n > 0 {
		core.LogWarn("%d device buffers still alive at shutdown, releasing", n)
	}
	vr.context.Buffers.Each(func(handle uint64, buffer *VulkanBuffer) {
		vk.DestroyBuffer(vr.context.Device.LogicalDevice, buffer.Handle, vr.context.Allocator)
		vk.FreeMemory(vr.context.Device.LogicalDevice, buffer.Memory, vr.context.Allocator)
	})
	vr.context.Buffers = core.NewIdentifiers[*VulkanBuffer]()
}
