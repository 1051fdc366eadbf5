package vulkan

import (
	"math"
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/skirmish/engine/core"
	kmath "github.com/spaghettifunk/skirmish/engine/math"
	"github.com/spaghettifunk/skirmish/engine/platform"
	"github.com/spaghettifunk/skirmish/engine/renderer/metadata"
)

type VulkanRenderer struct {
	platform                *platform.Platform
	config                  *metadata.RendererBackendConfig
	FrameNumber             uint64
	context                 *VulkanContext
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	debug bool
}

func New(p *platform.Platform, debug bool) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		context: &VulkanContext{
			Buffers: core.NewIdentifiers[*VulkanBuffer](),
			Locks:   NewVulkanLockPool(),
		},
		debug: debug,
	}
}

func (vr *VulkanRenderer) Initialize(config *metadata.RendererBackendConfig) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return errors.Wrap(err, "vk init")
	}

	vr.config = config
	vr.context.FramebufferWidth = config.Width
	vr.context.FramebufferHeight = config.Height
	vr.context.Projection = config.Projection(config.Width, config.Height)

	if err := vr.createInstance(config.ApplicationName); err != nil {
		return err
	}

	// Debugger
	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return errors.Wrap(err, "debug report callback")
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.CreateSurface(vr.context.Instance)
	if err != nil {
		core.LogError("Failed to create platform surface!")
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return errors.Wrap(err, "device create")
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight, config.ClearColor)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	descriptors, err := DescriptorsCreate(vr.context, MaxFramesInFlight)
	if err != nil {
		return err
	}
	vr.context.Descriptors = descriptors

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Skirmish Engine"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	extensions := append([]string{"VK_KHR_surface"}, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var layers []string
	if vr.debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		layers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := checkValidationLayers(layers); err != nil {
			return err
		}
	}
	for _, name := range extensions {
		core.LogDebug("Required extension: %s", name)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := errors.Newf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		return errors.Wrap(err, "init instance")
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayers(required []string) error {
	core.LogInfo("Validation layers enabled. Enumerating...")
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return errors.Newf("enumerate layers: %s", VulkanResultString(res, false))
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return errors.Newf("enumerate layers: %s", VulkanResultString(res, false))
	}
	for _, name := range required {
		found := false
		for i := range available {
			available[i].Deref()
			if vk.ToString(available[i].LayerName[:]) == name {
				found = true
				break
			}
		}
		if !found {
			return errors.Newf("required validation layer is missing: %s", name)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	vr.context.InFlightFences = make([]*VulkanFence, MaxFramesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := uint32(0); i < MaxFramesInFlight; i++ {
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			return errors.Newf("failed to create image available semaphore: %s", VulkanResultString(res, false))
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			return errors.Newf("failed to create queue complete semaphore: %s", VulkanResultString(res, false))
		}

		// Signaled so the first frame does not wait forever.
		f, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = f
	}

	// Fences here are owned by InFlightFences.
	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	vr.destroyBuffers()
	if vr.context.Descriptors != nil {
		vr.context.Descriptors.DescriptorsDestroy(vr.context)
		vr.context.Descriptors = nil
	}

	// Sync objects
	for i := range vr.context.InFlightFences {
		if vr.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
		}
		if vr.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
		}
		if vr.context.InFlightFences[i] != nil {
			vr.context.InFlightFences[i].Destroy(vr.context)
		}
	}
	vr.context.ImageAvailableSemaphores = nil
	vr.context.QueueCompleteSemaphores = nil
	vr.context.InFlightFences = nil
	vr.context.ImagesInFlight = nil

	vr.destroyCommandBuffers()
	vr.destroyFramebuffers()

	if vr.context.MainRenderpass != nil {
		vr.context.MainRenderpass.Destroy(vr.context)
		vr.context.MainRenderpass = nil
	}
	if vr.context.Swapchain != nil {
		vr.context.Swapchain.SwapchainDestroy(vr.context)
		vr.context.Swapchain = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.MarkSwapchainStale()
	if vr.config != nil {
		vr.context.Projection = vr.config.Projection(width, height)
	}
	core.LogInfo("Vulkan renderer backend->resized: w/h: %d/%d", width, height)
	return nil
}

func (vr *VulkanRenderer) FrameCount() uint32 {
	return MaxFramesInFlight
}

func (vr *VulkanRenderer) CurrentFrameIndex() uint32 {
	return vr.context.CurrentFrame
}

func (vr *VulkanRenderer) ProjectionMatrix() kmath.Mat4 {
	return vr.context.Projection
}

// BeginFrame returns ErrSwapchainBooting when the frame has to be skipped
// because the swapchain is being rebuilt.
func (vr *VulkanRenderer) BeginFrame(deltaTime float64) error {
	if vr.context.RecreatingSwapchain {
		if err := vr.WaitIdle(); err != nil {
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	if vr.context.SwapchainStale() {
		if err := vr.WaitIdle(); err != nil {
			return err
		}
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	// Wait for the execution of the current frame to complete.
	if err := vr.context.InFlightFences[vr.context.CurrentFrame].Wait(vr.context, math.MaxUint64); err != nil {
		return errors.Wrap(err, "in-flight fence")
	}

	imageIndex, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, math.MaxUint64, vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame], vk.NullFence)
	if err != nil {
		return err
	}
	vr.context.ImageIndex = imageIndex

	// Begin recording commands.
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	if err := commandBuffer.Begin(0); err != nil {
		return err
	}

	viewport := vk.Viewport{
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  vr.context.FramebufferWidth,
			Height: vr.context.FramebufferHeight,
		},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.Resize(vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	vr.context.MainRenderpass.Begin(commandBuffer, vr.context.Swapchain.Framebuffers[vr.context.ImageIndex].Handle)
	return nil
}

func (vr *VulkanRenderer) EndFrame(deltaTime float64) error {
	commandBuffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	vr.context.MainRenderpass.End(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return err
	}

	// Make sure the previous frame is not using this image.
	if fence := vr.context.ImagesInFlight[vr.context.ImageIndex]; fence != nil {
		if err := fence.Wait(vr.context, math.MaxUint64); err != nil {
			return errors.Wrap(err, "image in flight")
		}
	}
	vr.context.ImagesInFlight[vr.context.ImageIndex] = vr.context.InFlightFences[vr.context.CurrentFrame]
	if err := vr.context.InFlightFences[vr.context.CurrentFrame].Reset(vr.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame]},
		// One frame is presented at a time.
		PWaitDstStageMask: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}

	device := vr.context.Device
	err := vr.context.Locks.SafeQueueCall(uint32(device.GraphicsQueueIndex), func() error {
		if res := vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vr.context.InFlightFences[vr.context.CurrentFrame].Handle); res != vk.Success {
			return errors.Newf("vkQueueSubmit failed with result: %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	commandBuffer.State = CommandBufferSubmitted

	// Give the image back to the swapchain.
	err = vr.context.Locks.SafeQueueCall(uint32(device.PresentQueueIndex), func() error {
		return vr.context.Swapchain.SwapchainPresent(
			vr.context,
			device.PresentQueue,
			vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame],
			vr.context.ImageIndex)
	})
	vr.FrameNumber++
	return err
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.context.Swapchain.ImageCount)
	for i := range vr.context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) destroyCommandBuffers() {
	for _, cb := range vr.context.GraphicsCommandBuffers {
		if cb != nil {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.context.GraphicsCommandBuffers = nil
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	swapchain := vr.context.Swapchain
	swapchain.Framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)
	for i := range swapchain.Framebuffers {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

func (vr *VulkanRenderer) destroyFramebuffers() {
	if vr.context.Swapchain == nil {
		return
	}
	for _, fb := range vr.context.Swapchain.Framebuffers {
		if fb != nil {
			fb.Destroy(vr.context)
		}
	}
	vr.context.Swapchain.Framebuffers = nil
}

// recreateSwapchain rebuilds the swapchain and everything sized after it.
// Descriptor sets and scene buffers are per frame in flight and stay untouched.
func (vr *VulkanRenderer) recreateSwapchain() error {
	if vr.context.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called when already recreating. Booting.")
		return core.ErrSwapchainBooting
	}

	width, height := vr.cachedFramebufferWidth, vr.cachedFramebufferHeight
	if width == 0 || height == 0 {
		// Out-of-date swapchains bump the generation without a resize event.
		width, height = vr.platform.FramebufferSize()
	}
	if width == 0 || height == 0 {
		// Minimized; keep booting until the window has a size again.
		core.LogDebug("recreateSwapchain called when window is < 1 in a dimension. Booting.")
		return core.ErrSwapchainBooting
	}

	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	for i := range vr.context.ImagesInFlight {
		vr.context.ImagesInFlight[i] = nil
	}

	// Requery support
	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		return err
	}

	vr.destroyCommandBuffers()
	vr.destroyFramebuffers()

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, width, height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	vr.context.MainRenderpass.Resize(width, height)
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0
	vr.context.markSwapchainBuilt()

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if len(vr.context.ImagesInFlight) != int(sc.ImageCount) {
		vr.context.ImagesInFlight = make([]*VulkanFence, sc.ImageCount)
	}
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
