// Package swapchain builds the chain of presentable images bound to the
// window surface. A State is never reused across a resize; the renderer
// destroys it and creates a fresh one.
package swapchain

import (
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/rovski/rovski/internal/gpu"
	"github.com/rovski/rovski/internal/lifetime"
)

// Drawable reports the window size in pixels.
type Drawable interface {
	DrawableSize() (int, int)
}

// State is one swapchain generation.
type State struct {
	Extension   khr_swapchain.Extension
	Swapchain   khr_swapchain.Swapchain
	Format      core1_0.Format
	ColorSpace  khr_surface.ColorSpace
	PresentMode khr_surface.PresentMode
	Extent      core1_0.Extent2D
	Images      []core1_0.Image
	Views       []core1_0.ImageView

	ctx   *gpu.Context
	arena *lifetime.Arena
}

// Create builds a swapchain for ctx's surface sized to drawable, along with
// one image view per image. Partial work is released on failure.
func Create(ctx *gpu.Context, drawable Drawable) (state *State, err error) {
	state = &State{
		Extension: khr_swapchain.CreateExtensionFromDevice(ctx.Device),
		ctx:       ctx,
		arena:     lifetime.NewArena("swapchain"),
	}
	defer func() {
		if err != nil {
			state.Destroy()
			state = nil
		}
	}()

	if err = state.createSwapchain(drawable); err != nil {
		return state, err
	}

	if err = state.createImageViews(); err != nil {
		return state, err
	}

	log.WithFields(log.Fields{
		"width":       state.Extent.Width,
		"height":      state.Extent.Height,
		"images":      len(state.Images),
		"format":      state.Format,
		"presentMode": state.PresentMode,
	}).Info("created swapchain")

	return state, nil
}

// Destroy releases the image views and the swapchain. It is safe to call
// more than once.
func (s *State) Destroy() {
	s.arena.Release()
	s.Images = nil
	s.Views = nil
}

// ImageCount is the number of presentable images.
func (s *State) ImageCount() int {
	return len(s.Images)
}

// Framebuffers creates one framebuffer per image view for renderPass and
// tracks them in arena.
func (s *State) Framebuffers(renderPass core1_0.RenderPass, arena *lifetime.Arena) ([]core1_0.Framebuffer, error) {
	var framebuffers []core1_0.Framebuffer
	for _, imageView := range s.Views {
		framebuffer, _, err := s.ctx.Device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  renderPass,
			Layers:      1,
			Attachments: []core1_0.ImageView{imageView},
			Width:       s.Extent.Width,
			Height:      s.Extent.Height,
		})
		if err != nil {
			return nil, gpu.ResourceError(err, "create framebuffer %d", len(framebuffers))
		}
		arena.Track("framebuffer", func() { framebuffer.Destroy(nil) })

		framebuffers = append(framebuffers, framebuffer)
	}

	return framebuffers, nil
}

func (s *State) createSwapchain(drawable Drawable) error {
	surface := s.ctx.Surface
	physicalDevice := s.ctx.PhysicalDevice

	capabilities, _, err := surface.PhysicalDeviceSurfaceCapabilities(physicalDevice)
	if err != nil {
		return gpu.InitError(err, "query surface capabilities")
	}

	formats, _, err := surface.PhysicalDeviceSurfaceFormats(physicalDevice)
	if err != nil {
		return gpu.InitError(err, "query surface formats")
	}

	presentModes, _, err := surface.PhysicalDeviceSurfacePresentModes(physicalDevice)
	if err != nil {
		return gpu.InitError(err, "query surface present modes")
	}

	surfaceFormat := ChooseSurfaceFormat(formats)
	presentMode := ChoosePresentMode(presentModes)
	width, height := drawable.DrawableSize()
	extent := ChooseExtent(capabilities, width, height)
	sharingMode, queueFamilyIndices := SharingMode(s.ctx.Families)

	swapchain, _, err := s.Extension.CreateSwapchain(s.ctx.Device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    ImageCount(capabilities),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return gpu.InitError(err, "create swapchain %dx%d", extent.Width, extent.Height)
	}
	s.arena.Track("swapchain", func() { swapchain.Destroy(nil) })

	s.Swapchain = swapchain
	s.Format = surfaceFormat.Format
	s.ColorSpace = surfaceFormat.ColorSpace
	s.PresentMode = presentMode
	s.Extent = extent

	return nil
}

func (s *State) createImageViews() error {
	images, _, err := s.Swapchain.SwapchainImages()
	if err != nil {
		return gpu.InitError(err, "get swapchain images")
	}
	s.Images = images

	for _, image := range images {
		view, err := s.ctx.CreateImageView(image, s.Format)
		if err != nil {
			return err
		}
		s.arena.Track("swapchain image view", func() { view.Destroy(nil) })

		s.Views = append(s.Views, view)
	}

	return nil
}
