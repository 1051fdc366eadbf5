package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/skirmish/engine/core"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

/**
 * @brief The scene descriptor layout shared by every frame: SceneData at
 * the uniform binding, the instance array at the storage binding.
 */
type VulkanDescriptors struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	/** @brief One set per frame in flight. */
	Sets []vk.DescriptorSet
}

func descriptorType(usage metadata.BufferUsage) (vk.DescriptorType, error) {
	switch usage {
	case metadata.BufferUsageUniform:
		return vk.DescriptorTypeUniformBuffer, nil
	case metadata.BufferUsageStorage:
		return vk.DescriptorTypeStorageBuffer, nil
	}
	return 0, errors.Newf("%s buffers cannot be bound to a descriptor", usage)
}

func DescriptorsCreate(context *VulkanContext, setCount uint32) (*VulkanDescriptors, error) {
	descriptors := &VulkanDescriptors{}
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)

	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         metadata.UniformBinding,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      stages,
		},
		{
			Binding:         metadata.StorageBinding,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      stages,
		},
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &descriptors.Layout); res != vk.Success {
		err := errors.Newf("failed to create descriptor set layout: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: setCount},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: setCount},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       setCount,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &descriptors.Pool); res != vk.Success {
		err := errors.Newf("failed to create descriptor pool: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}

	layouts := make([]vk.DescriptorSetLayout, setCount)
	for i := range layouts {
		layouts[i] = descriptors.Layout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     descriptors.Pool,
		DescriptorSetCount: setCount,
		PSetLayouts:        layouts,
	}
	descriptors.Sets = make([]vk.DescriptorSet, setCount)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &descriptors.Sets[0]); res != vk.Success {
		err := errors.Newf("failed to allocate descriptor sets: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	return descriptors, nil
}

// Sets are freed together with the pool.
func (vd *VulkanDescriptors) DescriptorsDestroy(context *VulkanContext) {
	if vd.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, vd.Pool, context.Allocator)
		vd.Pool = vk.NullDescriptorPool
	}
	if vd.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, vd.Layout, context.Allocator)
		vd.Layout = vk.NullDescriptorSetLayout
	}
	vd.Sets = nil
}

// UpdateDescriptor points binding of frame's descriptor set at the whole of buffer.
func (vr *VulkanRenderer) UpdateDescriptor(frame, binding uint32, usage metadata.BufferUsage, buffer metadata.BufferHandle) error {
	kind, err := descriptorType(usage)
	if err != nil {
		return err
	}
	return vr.context.Locks.SafeCall(DescriptorManagement, func() error {
		sets := vr.context.Descriptors.Sets
		if int(frame) >= len(sets) {
			return errors.Newf("descriptor frame %d out of range (frames=%d)", frame, len(sets))
		}
		b, ok := vr.context.Buffers.Lookup(uint64(buffer))
		if !ok {
			return errors.Wrapf(core.ErrInvalidHandle, "descriptor binding %d points at unknown buffer %d", binding, buffer)
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[frame],
			DstBinding:      binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  kind,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: b.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		}
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}
