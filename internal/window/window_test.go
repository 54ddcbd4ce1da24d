package window

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

type resizeRecorder struct {
	sizes [][2]int
}

func (r *resizeRecorder) OnResize(width, height int) {
	r.sizes = append(r.sizes, [2]int{width, height})
}

func TestDispatch(t *testing.T) {
	rec := &resizeRecorder{}
	w := &Window{}
	w.Subscribe(rec)

	if w.dispatch(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED, Data1: 1024, Data2: 768}) {
		t.Error("size change reported quit")
	}
	if w.dispatch(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED}) {
		t.Error("minimize reported quit")
	}
	if w.dispatch(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_FOCUS_GAINED}) {
		t.Error("focus reported quit")
	}
	if !w.dispatch(&sdl.QuitEvent{}) {
		t.Error("quit event not reported")
	}

	want := [][2]int{{1024, 768}, {0, 0}}
	if len(rec.sizes) != len(want) {
		t.Fatalf("resize notifications = %v, want %v", rec.sizes, want)
	}
	for i := range want {
		if rec.sizes[i] != want[i] {
			t.Errorf("notification %d = %v, want %v", i, rec.sizes[i], want[i])
		}
	}
}
