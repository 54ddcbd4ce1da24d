package renderer

import (
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/rovski/rovski/internal/frame"
	"github.com/rovski/rovski/internal/gpu"
)

// Acquire gets the next swapchain image for slot.
func (r *Renderer) Acquire(slot int) (int, frame.Status, error) {
	imageIndex, res, err := r.gen.swapchain.Swapchain.AcquireNextImage(common.NoTimeout, r.slots[slot].ImageAvailable, nil)
	if status := frame.StatusOf(res); status != frame.StatusOK {
		return imageIndex, status, err
	}
	return imageIndex, frame.StatusOK, gpu.SubmitError(err, "acquire next image")
}

// Update writes the uniforms for image.
func (r *Renderer) Update(image int) error {
	extent := r.gen.swapchain.Extent
	ubo := NewUniforms(r.clock.Elapsed(), extent.Width, extent.Height)
	return r.gen.uniformBuffers[image].Write(0, &ubo)
}

// Submit queues image's prerecorded commands for slot.
func (r *Renderer) Submit(slot, image int) error {
	s := r.slots[slot]
	_, err := r.ctx.GraphicsQueue.Submit(s.InFlight, []core1_0.SubmitInfo{
		{
			WaitSemaphores:   []core1_0.Semaphore{s.ImageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{r.gen.commandBuffers[image]},
			SignalSemaphores: []core1_0.Semaphore{s.RenderFinished},
		},
	})
	return gpu.SubmitError(err, "submit image %d on slot %d", image, slot)
}

// Present queues image for display once slot's rendering has finished.
func (r *Renderer) Present(slot, image int) (frame.Status, error) {
	res, err := r.gen.swapchain.Extension.QueuePresent(r.ctx.PresentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{r.slots[slot].RenderFinished},
		Swapchains:     []khr_swapchain.Swapchain{r.gen.swapchain.Swapchain},
		ImageIndices:   []int{image},
	})
	if status := frame.StatusOf(res); status != frame.StatusOK {
		return status, nil
	}
	return frame.StatusOK, gpu.SubmitError(err, "present image %d", image)
}

// ResetSlot replaces slot's image-available semaphore once the device is
// idle.
func (r *Renderer) ResetSlot(slot int) error {
	if err := r.ctx.WaitIdle(); err != nil {
		return err
	}
	return r.slots[slot].ReplaceImageAvailable(r.ctx.Device)
}
