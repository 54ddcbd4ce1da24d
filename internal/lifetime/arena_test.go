package lifetime

import (
	"reflect"
	"testing"
)

func TestReleaseReverseOrder(t *testing.T) {
	a := NewArena("test")
	var got []string
	for _, name := range []string{"swapchain", "image views", "render pass", "pipeline"} {
		name := name
		a.Track(name, func() { got = append(got, name) })
	}

	if a.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", a.Len())
	}

	a.Release()

	want := []string{"pipeline", "render pass", "image views", "swapchain"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("release order = %v, want %v", got, want)
	}
	if a.Len() != 0 {
		t.Errorf("Len() after Release = %d, want 0", a.Len())
	}
}

func TestReleaseExactlyOnce(t *testing.T) {
	a := NewArena("test")
	calls := 0
	a.Track("fence", func() { calls++ })

	a.Release()
	a.Release()

	if calls != 1 {
		t.Errorf("release called %d times, want 1", calls)
	}
}

func TestTrackNilIgnored(t *testing.T) {
	a := NewArena("test")
	a.Track("nothing", nil)
	if a.Len() != 0 {
		t.Errorf("Len() = %d, want 0", a.Len())
	}
}

func TestReuseAfterRelease(t *testing.T) {
	a := NewArena("generation")
	var got []string
	a.Track("first", func() { got = append(got, "first") })
	a.Release()
	a.Track("second", func() { got = append(got, "second") })

	if names := a.Names(); !reflect.DeepEqual(names, []string{"second"}) {
		t.Errorf("Names() = %v, want [second]", names)
	}

	a.Release()
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("released %v, want [first second]", got)
	}
}
