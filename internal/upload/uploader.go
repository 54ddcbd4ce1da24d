// Package upload moves host data into device-local buffers and images
// through temporary host-visible staging buffers. Every upload is
// synchronous: it returns once the copying queue is idle.
package upload

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
)

// ErrEmptyPayload is returned for zero-length uploads.
var ErrEmptyPayload = errors.New("upload payload is empty")

const stagingProperties = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

// lane is a command pool paired with the queue its buffers are submitted to.
type lane struct {
	name  string
	pool  core1_0.CommandPool
	queue core1_0.Queue
}

// Uploader records one-time copy commands. Buffer copies use the transfer
// queue; image uploads use the graphics queue because their final layout
// transition targets the fragment shader stage.
type Uploader struct {
	ctx      *gpu.Context
	transfer *lane
	graphics *lane
}

// New creates the command pools the uploader records into.
func New(ctx *gpu.Context) (*Uploader, error) {
	u := &Uploader{ctx: ctx}

	var err error
	u.transfer, err = u.newLane("transfer", *ctx.Families.TransferFamily, ctx.TransferQueue)
	if err != nil {
		return nil, err
	}

	if *ctx.Families.TransferFamily == *ctx.Families.GraphicsFamily {
		u.graphics = u.transfer
		return u, nil
	}

	u.graphics, err = u.newLane("graphics", *ctx.Families.GraphicsFamily, ctx.GraphicsQueue)
	if err != nil {
		u.Destroy()
		return nil, err
	}

	return u, nil
}

func (u *Uploader) newLane(name string, family int, queue core1_0.Queue) (*lane, error) {
	pool, _, err := u.ctx.Device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: family,
	})
	if err != nil {
		return nil, gpu.ResourceError(err, "create %s command pool for family %d", name, family)
	}

	return &lane{name: name, pool: pool, queue: queue}, nil
}

// Destroy releases the uploader's command pools.
func (u *Uploader) Destroy() {
	if u.graphics != nil && u.graphics != u.transfer {
		u.graphics.pool.Destroy(nil)
	}
	u.graphics = nil

	if u.transfer != nil {
		u.transfer.pool.Destroy(nil)
		u.transfer = nil
	}
}

// UploadBuffer copies data into a new device-local buffer usable as usage.
// The buffer is also a transfer source so it can be read back.
func (u *Uploader) UploadBuffer(data []byte, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.WithStack(ErrEmptyPayload)
	}

	staging, err := u.stage(data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	buffer, err := NewBuffer(u.ctx, len(data), core1_0.BufferUsageTransferDst|core1_0.BufferUsageTransferSrc|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = u.copyBuffer(staging, buffer, len(data))
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	log.WithFields(log.Fields{
		"bytes": len(data),
		"usage": usage,
	}).Debug("uploaded buffer")

	return buffer, nil
}

// UploadImage copies tightly packed pixels into a new sampled image and
// leaves it in the shader-read-only layout.
func (u *Uploader) UploadImage(pixels []byte, width, height int, format core1_0.Format) (*Image, error) {
	if len(pixels) == 0 || width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrEmptyPayload, "%dx%d image with %d bytes", width, height, len(pixels))
	}
	if err := checkPixels(pixels, width, height, format); err != nil {
		return nil, err
	}

	staging, err := u.stage(pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	image, err := newImage(u.ctx, width, height, format, core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled)
	if err != nil {
		return nil, err
	}

	err = u.submit(u.graphics, func(cmd core1_0.CommandBuffer) error {
		err := recordTransition(cmd, image.Handle, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
		if err != nil {
			return err
		}

		err = cmd.CmdCopyBufferToImage(staging.Handle, image.Handle, core1_0.ImageLayoutTransferDstOptimal, []core1_0.BufferImageCopy{
			{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		})
		if err != nil {
			return err
		}

		return recordTransition(cmd, image.Handle, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		image.Destroy()
		return nil, err
	}

	log.WithFields(log.Fields{
		"width":  width,
		"height": height,
		"format": format,
	}).Debug("uploaded image")

	return image, nil
}

// ReadBuffer copies a device-local buffer back to the host. The buffer must
// have been created with transfer-source usage.
func (u *Uploader) ReadBuffer(buffer *Buffer) ([]byte, error) {
	if buffer.Size == 0 {
		return nil, errors.WithStack(ErrEmptyPayload)
	}

	readback, err := NewBuffer(u.ctx, buffer.Size, core1_0.BufferUsageTransferDst, stagingProperties)
	if err != nil {
		return nil, err
	}
	defer readback.Destroy()

	err = u.copyBuffer(buffer, readback, buffer.Size)
	if err != nil {
		return nil, err
	}

	return readData(readback.Memory, buffer.Size)
}

// stage creates a host-visible buffer holding data.
func (u *Uploader) stage(data []byte) (*Buffer, error) {
	staging, err := NewBuffer(u.ctx, len(data), core1_0.BufferUsageTransferSrc, stagingProperties)
	if err != nil {
		return nil, err
	}

	err = staging.Write(0, data)
	if err != nil {
		staging.Destroy()
		return nil, gpu.ResourceError(err, "fill staging buffer")
	}

	return staging, nil
}

func (u *Uploader) copyBuffer(src, dst *Buffer, size int) error {
	return u.submit(u.transfer, func(cmd core1_0.CommandBuffer) error {
		return cmd.CmdCopyBuffer(src.Handle, dst.Handle, []core1_0.BufferCopy{
			{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		})
	})
}

// submit records into a one-time command buffer from l, submits it and
// waits for the queue to go idle before freeing it.
func (u *Uploader) submit(l *lane, record func(cmd core1_0.CommandBuffer) error) error {
	buffers, _, err := u.ctx.Device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        l.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return gpu.ResourceError(err, "allocate %s command buffer", l.name)
	}
	defer u.ctx.Device.FreeCommandBuffers(buffers)

	cmd := buffers[0]
	_, err = cmd.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return gpu.ResourceError(err, "begin %s command buffer", l.name)
	}

	err = record(cmd)
	if err != nil {
		return gpu.ResourceError(err, "record %s commands", l.name)
	}

	_, err = cmd.End()
	if err != nil {
		return gpu.ResourceError(err, "end %s command buffer", l.name)
	}

	_, err = l.queue.Submit(nil, []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{cmd},
		},
	})
	if err != nil {
		return gpu.ResourceError(err, "submit %s commands", l.name)
	}

	_, err = l.queue.WaitIdle()
	return gpu.ResourceError(err, "wait for %s queue", l.name)
}
