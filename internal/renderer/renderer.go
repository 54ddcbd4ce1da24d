// Package renderer wires the device, swapchain, uploader, pipeline and
// frame scheduler into a running render loop.
package renderer

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/asset"
	"github.com/rovski/rovski/internal/clock"
	"github.com/rovski/rovski/internal/config"
	"github.com/rovski/rovski/internal/frame"
	"github.com/rovski/rovski/internal/gpu"
	"github.com/rovski/rovski/internal/lifetime"
	"github.com/rovski/rovski/internal/pipeline"
	"github.com/rovski/rovski/internal/upload"
	"github.com/rovski/rovski/internal/window"
)

// Renderer owns every GPU object. Objects that outlive a swapchain are
// tracked in the device arena; everything rebuilt on resize is tracked in
// the generation arena.
type Renderer struct {
	cfg    config.Configuration
	window *window.Window
	ctx    *gpu.Context
	clock  *clock.Clock

	device     *lifetime.Arena
	generation *lifetime.Arena

	uploader    *upload.Uploader
	commandPool core1_0.CommandPool
	slots       []frame.Slot
	scheduler   *frame.Scheduler

	vertexShader   []byte
	fragmentShader []byte
	layout         pipeline.VertexLayout

	vertexBuffer *upload.Buffer
	indexBuffer  *upload.Buffer
	indexCount   int
	texture      *upload.Image
	textureView  core1_0.ImageView
	sampler      core1_0.Sampler

	gen *generation
}

// New initializes the device and every resource the first frame needs.
func New(win *window.Window, cfg config.Configuration) (r *Renderer, err error) {
	r = &Renderer{
		cfg:        cfg,
		window:     win,
		clock:      clock.New(),
		device:     lifetime.NewArena("device resources"),
		generation: lifetime.NewArena("swapchain generation"),
	}
	defer func() {
		if err != nil {
			r.Destroy()
			r = nil
		}
	}()

	loader, err := win.Loader()
	if err != nil {
		return r, gpu.InitError(err, "load vulkan")
	}

	r.ctx, err = gpu.Initialize(loader, win, gpu.Options{
		ApplicationName:   cfg.Window.Title,
		EnableDiagnostics: cfg.Renderer.Validation,
	})
	if err != nil {
		return r, err
	}

	if err = r.loadShaders(); err != nil {
		return r, err
	}

	r.layout, err = pipeline.LayoutOf(asset.Vertex{})
	if err != nil {
		return r, err
	}

	if err = r.createDeviceResources(); err != nil {
		return r, err
	}

	if err = r.buildGeneration(); err != nil {
		return r, err
	}

	r.scheduler = frame.NewScheduler(r, win, frame.Fences(r.ctx.Device, r.slots))
	win.Subscribe(r.scheduler)

	return r, nil
}

// shaderHint is appended to shader load failures; the blobs are build
// outputs, not sources.
const shaderHint = "compile the SPIR-V blobs with go generate ./assets/shaders"

func (r *Renderer) loadShaders() error {
	var err error
	r.vertexShader, err = asset.LoadShader(r.cfg.Renderer.VertexShader)
	if err != nil {
		return gpu.InitError(err, "load vertex shader (%s)", shaderHint)
	}

	r.fragmentShader, err = asset.LoadShader(r.cfg.Renderer.FragmentShader)
	if err != nil {
		return gpu.InitError(err, "load fragment shader (%s)", shaderHint)
	}

	return nil
}

func (r *Renderer) meshSource() asset.MeshSource {
	if r.cfg.Renderer.Mesh == "" {
		return asset.Quad{}
	}
	return asset.OBJFile{Path: r.cfg.Renderer.Mesh}
}

func (r *Renderer) createDeviceResources() error {
	device := r.ctx.Device

	var err error
	r.uploader, err = upload.New(r.ctx)
	if err != nil {
		return err
	}
	r.device.Track("uploader", r.uploader.Destroy)

	r.commandPool, _, err = device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *r.ctx.Families.GraphicsFamily,
	})
	if err != nil {
		return gpu.ResourceError(err, "create graphics command pool")
	}
	r.device.Track("graphics command pool", func() { r.commandPool.Destroy(nil) })

	r.slots, err = frame.NewSlots(device, r.cfg.Renderer.MaxFramesInFlight, r.device)
	if err != nil {
		return err
	}

	mesh, err := r.meshSource().Mesh()
	if err != nil {
		return gpu.InitError(err, "load mesh")
	}

	vertexData, err := mesh.VertexBytes()
	if err != nil {
		return err
	}
	r.vertexBuffer, err = r.uploader.UploadBuffer(vertexData, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return err
	}
	r.device.Track("vertex buffer", r.vertexBuffer.Destroy)

	indexData, err := mesh.IndexBytes()
	if err != nil {
		return err
	}
	r.indexBuffer, err = r.uploader.UploadBuffer(indexData, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		return err
	}
	r.device.Track("index buffer", r.indexBuffer.Destroy)
	r.indexCount = len(mesh.Indices)

	texture, err := asset.LoadTexture(r.cfg.Renderer.Texture)
	if err != nil {
		return gpu.InitError(err, "load texture")
	}
	r.texture, err = r.uploader.UploadImage(texture.Pixels, texture.Width, texture.Height, core1_0.FormatR8G8B8A8SRGB)
	if err != nil {
		return err
	}
	r.device.Track("texture image", r.texture.Destroy)

	r.textureView, err = r.ctx.CreateImageView(r.texture.Handle, r.texture.Format)
	if err != nil {
		return err
	}
	r.device.Track("texture image view", func() { r.textureView.Destroy(nil) })

	return r.createSampler()
}

func (r *Renderer) createSampler() error {
	maxAnisotropy, err := r.ctx.Anisotropy()
	if err != nil {
		return err
	}

	r.sampler, _, err = r.ctx.Device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    maxAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
	})
	if err != nil {
		return gpu.ResourceError(err, "create texture sampler")
	}
	r.device.Track("texture sampler", func() { r.sampler.Destroy(nil) })

	return nil
}

// Run draws frames until the window is closed.
func (r *Renderer) Run() error {
	limiter := clock.NewLimiter(r.cfg.Time.FramesPerSecond)
	defer limiter.Stop()

	for !r.window.PollEvents() {
		limiter.Wait()
		r.clock.Tick()

		err := r.scheduler.DrawFrame()
		if errors.Is(err, frame.ErrWindowClosed) {
			break
		} else if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	return r.ctx.WaitIdle()
}

// Destroy waits for the device to go idle and releases everything in
// reverse creation order.
func (r *Renderer) Destroy() {
	if r.ctx == nil {
		return
	}

	if err := r.ctx.WaitIdle(); err != nil {
		log.WithError(err).Error("device did not go idle before teardown")
	}

	r.generation.Release()
	r.gen = nil
	r.device.Release()
	r.ctx.Destroy()
	r.ctx = nil
}
