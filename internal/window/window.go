// Package window wraps the SDL2 window the renderer presents to. All calls
// must come from the thread that created the window.
package window

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
)

// ResizeHandler is notified when the drawable size changes.
type ResizeHandler interface {
	OnResize(width, height int)
}

// Options configure the window.
type Options struct {
	Title     string
	Width     int
	Height    int
	Resizable bool
}

// Window is an SDL2 window with Vulkan support.
type Window struct {
	window   *sdl.Window
	handlers []ResizeHandler
}

// New initializes SDL video and opens a window.
func New(opts Options) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "init sdl video")
	}

	var flags uint32 = sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN
	if opts.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	window, err := sdl.CreateWindow(opts.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(opts.Width), int32(opts.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	log.WithFields(log.Fields{
		"title":  opts.Title,
		"width":  opts.Width,
		"height": opts.Height,
	}).Info("opened window")

	return &Window{window: window}, nil
}

// Subscribe registers h for resize notifications.
func (w *Window) Subscribe(h ResizeHandler) {
	w.handlers = append(w.handlers, h)
}

// Loader creates a Vulkan loader from SDL's instance proc address.
func (w *Window) Loader() (core.Loader, error) {
	loader, err := core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	return loader, errors.Wrap(err, "create vulkan loader")
}

// VulkanInstanceExtensions lists the instance extensions SDL needs to
// create a surface.
func (w *Window) VulkanInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// CreateSurface creates a presentation surface for the window.
func (w *Window) CreateSurface(instance core1_0.Instance) (khr_surface.Surface, error) {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(instance)
	surface, err := vkng_sdl2.CreateSurface(instance, surfaceLoader, w.window)
	return surface, errors.Wrap(err, "create sdl surface")
}

// DrawableSize is the size of the window in pixels, which can differ from
// its size in screen coordinates on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// PollEvents drains pending events without blocking. It reports whether
// the user asked to quit.
func (w *Window) PollEvents() bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if w.dispatch(event) {
			quit = true
		}
	}
	return quit
}

// WaitEvents blocks until at least one event arrives and then drains the
// queue.
func (w *Window) WaitEvents() bool {
	quit := false
	if event := sdl.WaitEvent(); event != nil {
		quit = w.dispatch(event)
	}
	return w.PollEvents() || quit
}

func (w *Window) dispatch(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return true
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESIZED:
			w.notify(int(e.Data1), int(e.Data2))
		case sdl.WINDOWEVENT_MINIMIZED:
			w.notify(0, 0)
		}
	}
	return false
}

func (w *Window) notify(width, height int) {
	for _, h := range w.handlers {
		h.OnResize(width, height)
	}
}

// Destroy closes the window and shuts SDL down.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
