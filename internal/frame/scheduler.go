// Package frame drives the per-frame acquire, update, submit and present
// cycle across a fixed number of frames in flight.
package frame

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

// ErrWindowClosed is returned when the window is closed while the scheduler
// waits for it to become drawable again.
var ErrWindowClosed = errors.New("window closed")

// Status classifies acquire and present results that need a rebuild.
type Status int

const (
	StatusOK Status = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// Fence is a host-waitable fence signaled by the GPU when a slot's work
// completes.
type Fence interface {
	Wait() error
	Reset() error
}

// Target is the swapchain generation the scheduler renders into.
type Target interface {
	// Acquire gets the next presentable image, signaling the slot's
	// image-available semaphore.
	Acquire(slot int) (image int, status Status, err error)
	// Update writes per-frame data such as uniforms for image.
	Update(image int) error
	// Submit queues image's commands, waiting on the slot's image-available
	// semaphore and signaling its render-finished semaphore and fence.
	Submit(slot, image int) error
	// Present queues image for display after the slot's render-finished
	// semaphore.
	Present(slot, image int) (Status, error)
	// Rebuild tears down and recreates the generation once the device is
	// idle.
	Rebuild() error
	// ResetSlot replaces the slot's image-available semaphore after a frame
	// that acquired an image but never submitted work waiting on it.
	ResetSlot(slot int) error
	ImageCount() int
}

// Drawable is the window the target presents to.
type Drawable interface {
	DrawableSize() (int, int)
	// WaitEvents blocks for window events and reports whether the window
	// was closed.
	WaitEvents() bool
}

const noSlot = -1

// Scheduler owns the frame slot cursor and the image-to-slot bookkeeping.
type Scheduler struct {
	target   Target
	drawable Drawable
	fences   []Fence

	current int
	// pending marks slots whose fence will be signaled by submitted work.
	pending []bool
	// imagesInFlight maps each swapchain image to the slot that last
	// submitted it.
	imagesInFlight []int
	resized        bool
}

// NewScheduler creates a scheduler with one frame slot per fence. Fences
// are expected to start signaled.
func NewScheduler(target Target, drawable Drawable, fences []Fence) *Scheduler {
	s := &Scheduler{
		target:   target,
		drawable: drawable,
		fences:   fences,
		pending:  make([]bool, len(fences)),
	}
	s.resetImages()
	return s
}

// Current is the frame slot the next DrawFrame uses.
func (s *Scheduler) Current() int {
	return s.current
}

// FramesInFlight is the number of frame slots.
func (s *Scheduler) FramesInFlight() int {
	return len(s.fences)
}

// OnResize flags the swapchain for recreation after the next present.
func (s *Scheduler) OnResize(width, height int) {
	s.resized = true
}

func (s *Scheduler) resetImages() {
	s.imagesInFlight = make([]int, s.target.ImageCount())
	for i := range s.imagesInFlight {
		s.imagesInFlight[i] = noSlot
	}
}

func (s *Scheduler) waitSlot(slot int) error {
	if !s.pending[slot] {
		return nil
	}

	if err := s.fences[slot].Wait(); err != nil {
		return errors.Wrapf(err, "wait for frame slot %d", slot)
	}
	s.pending[slot] = false
	return nil
}

// DrawFrame renders and presents one frame. Transient swapchain results
// trigger a rebuild; submit failures drop the frame and rebuild, present
// failures drop the frame. Only
// errors that leave the renderer unusable are returned.
func (s *Scheduler) DrawFrame() error {
	slot := s.current

	if err := s.waitSlot(slot); err != nil {
		return err
	}

	image, status, err := s.target.Acquire(slot)
	if status == StatusOutOfDate {
		return s.recreate()
	} else if err != nil {
		log.WithError(err).WithField("slot", slot).Warn("failed to acquire image, dropping frame")
		return nil
	}

	if held := s.imagesInFlight[image]; held != noSlot {
		if err := s.waitSlot(held); err != nil {
			return err
		}
	}
	s.imagesInFlight[image] = slot

	if err := s.target.Update(image); err != nil {
		return errors.Wrapf(err, "update image %d", image)
	}

	if err := s.fences[slot].Reset(); err != nil {
		return errors.Wrapf(err, "reset frame slot %d", slot)
	}

	if err := s.target.Submit(slot, image); err != nil {
		log.WithError(err).WithFields(log.Fields{"slot": slot, "image": image}).Warn("dropped frame")
		return s.dropFrame(slot)
	}
	s.pending[slot] = true

	status, err = s.target.Present(slot, image)
	if status == StatusOutOfDate || status == StatusSuboptimal || s.resized {
		if err := s.recreate(); err != nil {
			return err
		}
	} else if err != nil {
		log.WithError(err).WithFields(log.Fields{"slot": slot, "image": image}).Warn("failed to present image")
	}

	s.advance()
	return nil
}

// dropFrame recovers from a failed submit. The acquired image is never
// presented, so the generation is rebuilt to release it, and the slot's
// image-available semaphore is still signaled, so it is replaced.
func (s *Scheduler) dropFrame(slot int) error {
	if err := s.recreate(); err != nil {
		return err
	}
	if err := s.target.ResetSlot(slot); err != nil {
		return errors.Wrapf(err, "reset frame slot %d", slot)
	}

	s.advance()
	return nil
}

func (s *Scheduler) advance() {
	s.current = (s.current + 1) % len(s.fences)
}

// recreate blocks while the window has no drawable area, then rebuilds the
// target once.
func (s *Scheduler) recreate() error {
	width, height := s.drawable.DrawableSize()
	for width == 0 || height == 0 {
		if s.drawable.WaitEvents() {
			return errors.WithStack(ErrWindowClosed)
		}
		width, height = s.drawable.DrawableSize()
	}

	log.WithFields(log.Fields{"width": width, "height": height}).Info("recreating swapchain")
	if err := s.target.Rebuild(); err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}

	// Rebuild idles the device, so every submitted fence has signaled.
	for i := range s.pending {
		s.pending[i] = false
	}
	s.resetImages()
	s.resized = false

	return nil
}
