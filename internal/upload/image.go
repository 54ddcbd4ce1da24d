package upload

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
)

// Image is a 2D single-level image with its memory allocation.
type Image struct {
	Handle core1_0.Image
	Memory core1_0.DeviceMemory
	Size   int
	Width  int
	Height int
	Format core1_0.Format
}

// Destroy releases the image before its memory.
func (i *Image) Destroy() {
	if i.Handle != nil {
		i.Handle.Destroy(nil)
		i.Handle = nil
	}

	if i.Memory != nil {
		i.Memory.Free(nil)
		i.Memory = nil
	}
}

// texelSizes are the byte sizes of the formats images can be uploaded in.
var texelSizes = map[core1_0.Format]int{
	core1_0.FormatR8G8B8A8SRGB:               4,
	core1_0.FormatB8G8R8A8SRGB:               4,
	core1_0.FormatB8G8R8A8UnsignedNormalized: 4,
	core1_0.FormatR32G32B32A32SignedFloat:    16,
}

// checkPixels rejects payloads that do not hold exactly width*height texels,
// since the copy region always covers the whole image.
func checkPixels(pixels []byte, width, height int, format core1_0.Format) error {
	texelSize, ok := texelSizes[format]
	if !ok {
		return errors.Mark(errors.Newf("upload image: unsupported format %v", format), gpu.ErrResourceCreation)
	}

	if want := width * height * texelSize; len(pixels) != want {
		return errors.Mark(
			errors.Newf("upload image: %dx%d image needs %d bytes, got %d", width, height, want, len(pixels)),
			gpu.ErrResourceCreation)
	}
	return nil
}

func newImage(ctx *gpu.Context, width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags) (*Image, error) {
	handle, _, err := ctx.Device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, gpu.ResourceError(err, "create %dx%d image", width, height)
	}
	image := &Image{Handle: handle, Width: width, Height: height, Format: format}

	memReqs := handle.MemoryRequirements()
	memoryIndex, err := ctx.FindMemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		image.Destroy()
		return nil, err
	}

	image.Memory, _, err = ctx.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		image.Destroy()
		return nil, gpu.ResourceError(err, "allocate image memory")
	}
	image.Size = memReqs.Size

	_, err = handle.BindImageMemory(image.Memory, 0)
	if err != nil {
		image.Destroy()
		return nil, gpu.ResourceError(err, "bind image memory")
	}

	return image, nil
}

type transition struct {
	srcAccess, dstAccess core1_0.AccessFlags
	srcStage, dstStage   core1_0.PipelineStageFlags
}

// layoutTransition returns the barrier masks for the two transitions an
// upload performs.
func layoutTransition(oldLayout, newLayout core1_0.ImageLayout) (transition, error) {
	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		return transition{
			srcAccess: 0,
			dstAccess: core1_0.AccessTransferWrite,
			srcStage:  core1_0.PipelineStageTopOfPipe,
			dstStage:  core1_0.PipelineStageTransfer,
		}, nil
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		return transition{
			srcAccess: core1_0.AccessTransferWrite,
			dstAccess: core1_0.AccessShaderRead,
			srcStage:  core1_0.PipelineStageTransfer,
			dstStage:  core1_0.PipelineStageFragmentShader,
		}, nil
	}

	return transition{}, errors.Newf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
}

func recordTransition(cmd core1_0.CommandBuffer, image core1_0.Image, oldLayout, newLayout core1_0.ImageLayout) error {
	t, err := layoutTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}

	return cmd.CmdPipelineBarrier(t.srcStage, t.dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: t.srcAccess,
			DstAccessMask: t.dstAccess,
		},
	})
}
