package swapchain

import (
	"math"

	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"

	"github.com/rovski/rovski/internal/gpu"
)

// UndefinedExtent is the current-extent width a surface reports when the
// swapchain extent is left up to the application. The wrapper widens the
// driver's uint32 to int, so it is compared as a uint32.
const UndefinedExtent = math.MaxUint32

// ChooseSurfaceFormat prefers 8-bit BGRA sRGB with a nonlinear sRGB color
// space and falls back to the first format offered. formats must not be
// empty; device selection rejects surfaces that offer none.
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range formats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return formats[0]
}

// ChoosePresentMode picks mailbox when offered, otherwise FIFO which every
// surface supports.
func ChoosePresentMode(modes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range modes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

// ChooseExtent returns the surface's current extent, or the drawable pixel
// size clamped to the surface bounds when the current extent is undefined.
func ChooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if uint32(capabilities.CurrentExtent.Width) != UndefinedExtent {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

func clamp(v, min, max int) int {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

// ImageCount asks for one image more than the minimum, capped by the
// maximum when the surface sets one.
func ImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// SharingMode shares swapchain images concurrently when the graphics,
// present and transfer roles land on different families.
func SharingMode(families gpu.QueueFamilyIndices) (core1_0.SharingMode, []int) {
	return families.SharingMode()
}
