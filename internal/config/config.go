// Package config holds the renderer settings and overlays them from
// ROVSKI_* environment variables and .env files.
package config

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"
)

// Configuration defines every setting the renderer reads at startup.
type Configuration struct {
	Window   WindowConfiguration
	Renderer RendererConfiguration
	Time     TimeConfiguration

	// LogLevel is a logrus level name such as "info" or "debug".
	LogLevel string
}

// WindowConfiguration is used to configure the window.
type WindowConfiguration struct {
	Title  string
	Width  int
	Height int
}

// RendererConfiguration is used to configure the renderer.
type RendererConfiguration struct {
	// MaxFramesInFlight is the number of frames the CPU may queue ahead of
	// the GPU.
	MaxFramesInFlight int

	// Validation enables the validation layer and debug messenger.
	Validation bool

	VertexShader   string
	FragmentShader string
	Texture        string

	// Mesh is an OBJ file. When empty a built-in quad is drawn.
	Mesh string
}

// TimeConfiguration is used to configure time services.
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// Default returns the settings used when nothing overrides them.
func Default() Configuration {
	return Configuration{
		Window: WindowConfiguration{
			Title:  "Rovski",
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfiguration{
			MaxFramesInFlight: 2,
			Validation:        false,
			VertexShader:      "assets/shaders/vert.spv",
			FragmentShader:    "assets/shaders/frag.spv",
			Texture:           "assets/textures/texture.png",
		},
		LogLevel: "info",
	}
}

// Load applies environment overrides to Default. Any envFiles are loaded
// into the environment first; missing files are ignored.
func Load(envFiles ...string) (Configuration, error) {
	if len(envFiles) > 0 {
		if err := envy.Load(envFiles...); err != nil {
			log.WithError(err).Debug("env file not loaded")
		}
	}

	cfg := Default()
	var err error

	cfg.Window.Title = envy.Get("ROVSKI_TITLE", cfg.Window.Title)
	if cfg.Window.Width, err = intVar("ROVSKI_WIDTH", cfg.Window.Width); err != nil {
		return cfg, err
	}
	if cfg.Window.Height, err = intVar("ROVSKI_HEIGHT", cfg.Window.Height); err != nil {
		return cfg, err
	}

	if cfg.Renderer.MaxFramesInFlight, err = intVar("ROVSKI_FRAMES_IN_FLIGHT", cfg.Renderer.MaxFramesInFlight); err != nil {
		return cfg, err
	}
	if cfg.Renderer.Validation, err = boolVar("ROVSKI_VALIDATION", cfg.Renderer.Validation); err != nil {
		return cfg, err
	}
	cfg.Renderer.VertexShader = envy.Get("ROVSKI_VERTEX_SHADER", cfg.Renderer.VertexShader)
	cfg.Renderer.FragmentShader = envy.Get("ROVSKI_FRAGMENT_SHADER", cfg.Renderer.FragmentShader)
	cfg.Renderer.Texture = envy.Get("ROVSKI_TEXTURE", cfg.Renderer.Texture)
	cfg.Renderer.Mesh = envy.Get("ROVSKI_MESH", cfg.Renderer.Mesh)

	if cfg.Time.FramesPerSecond, err = intVar("ROVSKI_FPS", cfg.Time.FramesPerSecond); err != nil {
		return cfg, err
	}

	cfg.LogLevel = envy.Get("ROVSKI_LOG_LEVEL", cfg.LogLevel)

	return cfg, cfg.Validate()
}

// Validate rejects settings the renderer cannot run with.
func (c Configuration) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MaxFramesInFlight < 1 {
		return errors.Newf("frames in flight must be at least 1, got %d", c.Renderer.MaxFramesInFlight)
	}
	if c.Time.FramesPerSecond < 0 {
		return errors.Newf("negative frame rate cap %d", c.Time.FramesPerSecond)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

func intVar(key string, fallback int) (int, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, errors.Wrapf(err, "%s", key)
	}
	return v, nil
}

func boolVar(key string, fallback bool) (bool, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, errors.Wrapf(err, "%s", key)
	}
	return v, nil
}
