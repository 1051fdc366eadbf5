package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanRenderpass is the single pass every frame records into: a cleared
// swapchain color target and a cleared depth target.
type VulkanRenderpass struct {
	Handle     vk.RenderPass
	Area       vk.Rect2D
	ClearColor [4]float32
	ClearDepth float32
	Stencil    uint32
}

const (
	colorAttachment uint32 = iota
	depthAttachment
)

func mainPassAttachments(colorFormat, depthFormat vk.Format) []vk.AttachmentDescription {
	return []vk.AttachmentDescription{
		colorAttachment: {
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		depthAttachment: {
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
}

// RenderpassCreate builds the main pass covering a width x height area.
func RenderpassCreate(context *VulkanContext, width, height uint32, clearColor [4]float32) (*VulkanRenderpass, error) {
	rp := &VulkanRenderpass{
		ClearColor: clearColor,
		ClearDepth: 1.0,
	}
	rp.Resize(width, height)

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: colorAttachment,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
		PDepthStencilAttachment: &vk.AttachmentReference{
			Attachment: depthAttachment,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	// The color target must be released by presentation before it is cleared.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	attachments := mainPassAttachments(context.Swapchain.ImageFormat.Format, context.Device.DepthFormat)
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if err := vkCheck(vk.CreateRenderPass(context.Device.LogicalDevice, &info, context.Allocator, &handle), "create render pass"); err != nil {
		return nil, err
	}
	rp.Handle = handle
	return rp, nil
}

// Resize moves the render area to the new framebuffer size.
func (rp *VulkanRenderpass) Resize(width, height uint32) {
	rp.Area = vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
}

func (rp *VulkanRenderpass) Destroy(context *VulkanContext) {
	if rp.Handle == vk.NullRenderPass {
		return
	}
	vk.DestroyRenderPass(context.Device.LogicalDevice, rp.Handle, context.Allocator)
	rp.Handle = vk.NullRenderPass
}

func (rp *VulkanRenderpass) Begin(cb *VulkanCommandBuffer, framebuffer vk.Framebuffer) {
	clear := make([]vk.ClearValue, 2)
	clear[colorAttachment].SetColor(rp.ClearColor[:])
	clear[depthAttachment].SetDepthStencil(rp.ClearDepth, rp.Stencil)

	vk.CmdBeginRenderPass(cb.Handle, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp.Handle,
		Framebuffer:     framebuffer,
		RenderArea:      rp.Area,
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vk.SubpassContentsInline)
	cb.State = CommandBufferInRenderPass
}

func (rp *VulkanRenderpass) End(cb *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(cb.Handle)
	cb.State = CommandBufferRecording
}
