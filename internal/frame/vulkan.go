package frame

import (
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/rovski/rovski/internal/gpu"
	"github.com/rovski/rovski/internal/lifetime"
)

// Slot is the synchronization set for one frame in flight.
type Slot struct {
	ImageAvailable core1_0.Semaphore
	RenderFinished core1_0.Semaphore
	InFlight       core1_0.Fence
}

// NewSlots creates n frame slots with their fences signaled, tracking every
// object in arena. The arena releases whatever handle a slot holds at
// release time, so replaced semaphores are covered.
func NewSlots(device core1_0.Device, n int, arena *lifetime.Arena) ([]Slot, error) {
	slots := make([]Slot, n)
	for i := range slots {
		slot := &slots[i]

		var err error
		slot.ImageAvailable, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return nil, gpu.ResourceError(err, "create image available semaphore %d", i)
		}
		arena.Track("image available semaphore", func() { slot.ImageAvailable.Destroy(nil) })

		slot.RenderFinished, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return nil, gpu.ResourceError(err, "create render finished semaphore %d", i)
		}
		arena.Track("render finished semaphore", func() { slot.RenderFinished.Destroy(nil) })

		slot.InFlight, _, err = device.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return nil, gpu.ResourceError(err, "create in flight fence %d", i)
		}
		arena.Track("in flight fence", func() { slot.InFlight.Destroy(nil) })
	}

	return slots, nil
}

// ReplaceImageAvailable swaps in an unsignaled image-available semaphore.
// The device must be idle.
func (s *Slot) ReplaceImageAvailable(device core1_0.Device) error {
	semaphore, _, err := device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return gpu.ResourceError(err, "replace image available semaphore")
	}

	s.ImageAvailable.Destroy(nil)
	s.ImageAvailable = semaphore
	return nil
}

type vulkanFence struct {
	device core1_0.Device
	fence  core1_0.Fence
}

func (f *vulkanFence) Wait() error {
	_, err := f.device.WaitForFences(true, common.NoTimeout, []core1_0.Fence{f.fence})
	return err
}

func (f *vulkanFence) Reset() error {
	_, err := f.device.ResetFences([]core1_0.Fence{f.fence})
	return err
}

// Fences adapts the slots' in-flight fences for the scheduler.
func Fences(device core1_0.Device, slots []Slot) []Fence {
	fences := make([]Fence, len(slots))
	for i, slot := range slots {
		fences[i] = &vulkanFence{device: device, fence: slot.InFlight}
	}
	return fences
}

// StatusOf classifies a swapchain result.
func StatusOf(res common.VkResult) Status {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return StatusOutOfDate
	case khr_swapchain.VKSuboptimal:
		return StatusSuboptimal
	}
	return StatusOK
}
