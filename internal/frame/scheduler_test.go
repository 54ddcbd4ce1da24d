package frame

import (
	"testing"

	"github.com/cockroachdb/errors"
)

// fakeGPU completes submitted work only when its fence is waited on.
type fakeGPU struct {
	t        *testing.T
	fences   []*fakeFence
	maxInUse int
}

type fakeFence struct {
	gpu      *fakeGPU
	signaled bool
	waits    int
}

func (f *fakeFence) Wait() error {
	f.waits++
	f.signaled = true
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (g *fakeGPU) inFlight() int {
	n := 0
	for _, f := range g.fences {
		if !f.signaled {
			n++
		}
	}
	return n
}

func newFakeGPU(t *testing.T, slots int) (*fakeGPU, []Fence) {
	g := &fakeGPU{t: t}
	var fences []Fence
	for i := 0; i < slots; i++ {
		f := &fakeFence{gpu: g, signaled: true}
		g.fences = append(g.fences, f)
		fences = append(fences, f)
	}
	return g, fences
}

type fakeTarget struct {
	t      *testing.T
	gpu    *fakeGPU
	images int

	next        int
	acquired    []int
	lastSlot    map[int]int
	acquireRes  []Status
	presentRes  []Status
	submitErr   error
	rebuilds    int
	slotResets  int
	submits     int
	presents    int
	rebuildHook func()

	// available marks slots whose image-available semaphore is signaled and
	// not yet consumed by a submit.
	available map[int]bool
}

func newFakeTarget(t *testing.T, g *fakeGPU, images int) *fakeTarget {
	return &fakeTarget{t: t, gpu: g, images: images, lastSlot: map[int]int{}, available: map[int]bool{}}
}

func (f *fakeTarget) Acquire(slot int) (int, Status, error) {
	if len(f.acquireRes) > 0 {
		status := f.acquireRes[0]
		f.acquireRes = f.acquireRes[1:]
		if status == StatusOutOfDate {
			return 0, status, errors.New("out of date")
		}
	}

	if f.available[slot] {
		f.t.Errorf("slot %d acquired while its image-available semaphore is still signaled", slot)
	}
	f.available[slot] = true

	image := f.next
	f.next = (f.next + 1) % f.images
	f.acquired = append(f.acquired, image)
	return image, StatusOK, nil
}

func (f *fakeTarget) Update(image int) error {
	if slot, ok := f.lastSlot[image]; ok && !f.gpu.fences[slot].signaled {
		f.t.Errorf("image %d updated while slot %d is still in flight", image, slot)
	}
	return nil
}

func (f *fakeTarget) Submit(slot, image int) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.available[slot] = false
	f.submits++
	f.lastSlot[image] = slot
	if n := f.gpu.inFlight(); n > f.gpu.maxInUse {
		f.gpu.maxInUse = n
	}
	return nil
}

func (f *fakeTarget) Present(slot, image int) (Status, error) {
	f.presents++
	if len(f.presentRes) > 0 {
		status := f.presentRes[0]
		f.presentRes = f.presentRes[1:]
		return status, nil
	}
	return StatusOK, nil
}

func (f *fakeTarget) Rebuild() error {
	f.rebuilds++
	for _, fence := range f.gpu.fences {
		fence.signaled = true
	}
	f.lastSlot = map[int]int{}
	if f.rebuildHook != nil {
		f.rebuildHook()
	}
	return nil
}

func (f *fakeTarget) ResetSlot(slot int) error {
	f.slotResets++
	f.available[slot] = false
	return nil
}

func (f *fakeTarget) ImageCount() int {
	return f.images
}

type fakeDrawable struct {
	sizes [][2]int
	waits int
	close bool
}

func (d *fakeDrawable) DrawableSize() (int, int) {
	size := d.sizes[0]
	if len(d.sizes) > 1 {
		d.sizes = d.sizes[1:]
	}
	return size[0], size[1]
}

func (d *fakeDrawable) WaitEvents() bool {
	d.waits++
	return d.close
}

func visible() *fakeDrawable {
	return &fakeDrawable{sizes: [][2]int{{800, 600}}}
}

func TestCurrentCyclesThroughSlots(t *testing.T) {
	for _, slots := range []int{1, 2, 3} {
		g, fences := newFakeGPU(t, slots)
		target := newFakeTarget(t, g, 3)
		s := NewScheduler(target, visible(), fences)

		for i := 0; i < slots; i++ {
			if s.Current() != i {
				t.Fatalf("slots=%d: Current = %d before frame %d", slots, s.Current(), i)
			}
			if err := s.DrawFrame(); err != nil {
				t.Fatalf("DrawFrame returned error: %v", err)
			}
		}

		if s.Current() != 0 {
			t.Errorf("slots=%d: Current = %d after %d frames, want 0", slots, s.Current(), slots)
		}
	}
}

func TestAtMostNFramesInFlight(t *testing.T) {
	for _, tt := range []struct{ slots, images int }{{2, 3}, {2, 2}, {3, 2}, {1, 4}} {
		g, fences := newFakeGPU(t, tt.slots)
		target := newFakeTarget(t, g, tt.images)
		s := NewScheduler(target, visible(), fences)

		for i := 0; i < 20; i++ {
			if err := s.DrawFrame(); err != nil {
				t.Fatalf("DrawFrame returned error: %v", err)
			}
		}

		if g.maxInUse > tt.slots {
			t.Errorf("slots=%d images=%d: %d frames in flight", tt.slots, tt.images, g.maxInUse)
		}
		if target.submits != 20 {
			t.Errorf("submits = %d, want 20", target.submits)
		}
	}
}

func TestImageHeldByEarlierSlotIsWaited(t *testing.T) {
	// Three slots over two images: image 0 comes back on slot 2 while slot 0
	// still owns it.
	g, fences := newFakeGPU(t, 3)
	target := newFakeTarget(t, g, 2)
	s := NewScheduler(target, visible(), fences)

	for i := 0; i < 3; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatalf("DrawFrame returned error: %v", err)
		}
	}

	if g.fences[0].waits != 1 {
		t.Errorf("slot 0 fence waited %d times, want 1", g.fences[0].waits)
	}
}

func TestOutOfDatePresentWithZeroSizeBlocksThenRebuildsOnce(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	target.presentRes = []Status{StatusOutOfDate}

	drawable := &fakeDrawable{sizes: [][2]int{{0, 0}, {0, 0}, {0, 0}, {1024, 768}}}
	s := NewScheduler(target, drawable, fences)

	if err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame returned error: %v", err)
	}

	if drawable.waits != 3 {
		t.Errorf("WaitEvents called %d times, want 3", drawable.waits)
	}
	if target.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", target.rebuilds)
	}
	if s.Current() != 1 {
		t.Errorf("Current = %d, want 1", s.Current())
	}

	if err := s.DrawFrame(); err != nil {
		t.Fatalf("second DrawFrame returned error: %v", err)
	}
	if target.rebuilds != 1 {
		t.Errorf("rebuilds after a normal frame = %d, want 1", target.rebuilds)
	}
}

func TestSuboptimalPresentRebuilds(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	target.presentRes = []Status{StatusSuboptimal}
	s := NewScheduler(target, visible(), fences)

	if err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame returned error: %v", err)
	}
	if target.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", target.rebuilds)
	}
}

func TestOutOfDateAcquireAbortsFrame(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	target.acquireRes = []Status{StatusOutOfDate}
	s := NewScheduler(target, visible(), fences)

	if err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame returned error: %v", err)
	}

	if target.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", target.rebuilds)
	}
	if target.submits != 0 || target.presents != 0 {
		t.Errorf("submits=%d presents=%d, want no work for an aborted frame", target.submits, target.presents)
	}
	if s.Current() != 0 {
		t.Errorf("Current = %d, want 0", s.Current())
	}
}

func TestResizeFlagRebuildsAfterPresent(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	s := NewScheduler(target, visible(), fences)

	s.OnResize(640, 480)
	if target.rebuilds != 0 {
		t.Fatal("OnResize rebuilt immediately")
	}

	if err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame returned error: %v", err)
	}
	if target.presents != 1 || target.rebuilds != 1 {
		t.Errorf("presents=%d rebuilds=%d, want 1 and 1", target.presents, target.rebuilds)
	}

	if err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame returned error: %v", err)
	}
	if target.rebuilds != 1 {
		t.Errorf("resize flag not cleared: rebuilds = %d", target.rebuilds)
	}
}

func TestSubmitFailureDropsFrame(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	target.submitErr = errors.New("device busy")
	s := NewScheduler(target, visible(), fences)

	for i := 0; i < 4; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatalf("DrawFrame returned error: %v", err)
		}
	}
	if target.presents != 0 {
		t.Errorf("presents = %d, want 0", target.presents)
	}
	if target.slotResets != 4 || target.rebuilds != 4 {
		t.Errorf("slotResets=%d rebuilds=%d, want 4 and 4", target.slotResets, target.rebuilds)
	}
	if s.Current() != 0 {
		t.Errorf("Current() = %d after 4 dropped frames, want 0", s.Current())
	}

	// Fences reset for failed submits must not be waited on.
	for i, f := range g.fences {
		if f.waits != 0 {
			t.Errorf("slot %d fence waited %d times after dropped frames", i, f.waits)
		}
	}

	target.submitErr = nil
	if err := s.DrawFrame(); err != nil {
		t.Fatalf("DrawFrame returned error: %v", err)
	}
	if target.presents != 1 {
		t.Errorf("presents = %d after recovery, want 1", target.presents)
	}
}

func TestSubmitFailureWhileMinimizedStopsOnClose(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	target.submitErr = errors.New("device lost")
	drawable := &fakeDrawable{sizes: [][2]int{{0, 0}}, close: true}
	s := NewScheduler(target, drawable, fences)

	if err := s.DrawFrame(); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("DrawFrame error = %v, want ErrWindowClosed", err)
	}
	if target.slotResets != 0 {
		t.Errorf("slotResets = %d, want 0", target.slotResets)
	}
}

func TestWindowClosedWhileMinimized(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 3)
	target.presentRes = []Status{StatusOutOfDate}

	drawable := &fakeDrawable{sizes: [][2]int{{0, 0}}, close: true}
	s := NewScheduler(target, drawable, fences)

	err := s.DrawFrame()
	if !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("DrawFrame error = %v, want ErrWindowClosed", err)
	}
	if target.rebuilds != 0 {
		t.Errorf("rebuilds = %d, want 0", target.rebuilds)
	}
}

func TestRebuildResizesImageTracking(t *testing.T) {
	g, fences := newFakeGPU(t, 2)
	target := newFakeTarget(t, g, 2)
	target.presentRes = []Status{StatusOutOfDate}
	target.rebuildHook = func() {
		target.images = 4
		target.next = 0
	}
	s := NewScheduler(target, visible(), fences)

	for i := 0; i < 8; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatalf("DrawFrame returned error: %v", err)
		}
	}

	if len(s.imagesInFlight) != 4 {
		t.Errorf("tracking %d images after rebuild, want 4", len(s.imagesInFlight))
	}
}
