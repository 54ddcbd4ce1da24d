package renderer

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
	"github.com/rovski/rovski/internal/pipeline"
	"github.com/rovski/rovski/internal/swapchain"
	"github.com/rovski/rovski/internal/upload"
)

// generation is everything sized or formatted by the current swapchain.
// Slices are indexed by swapchain image.
type generation struct {
	swapchain           *swapchain.State
	renderPass          core1_0.RenderPass
	descriptorSetLayout core1_0.DescriptorSetLayout
	pipeline            *pipeline.Pipeline
	framebuffers        []core1_0.Framebuffer
	uniformBuffers      []*upload.Buffer
	descriptorPool      core1_0.DescriptorPool
	descriptorSets      []core1_0.DescriptorSet
	commandBuffers      []core1_0.CommandBuffer
}

// ImageCount is the number of images in the current swapchain.
func (r *Renderer) ImageCount() int {
	return r.gen.swapchain.ImageCount()
}

// Rebuild waits for the device to go idle, tears the current generation
// down in reverse creation order and builds a new one.
func (r *Renderer) Rebuild() error {
	if err := r.ctx.WaitIdle(); err != nil {
		return err
	}

	r.generation.Release()
	r.gen = nil

	return r.buildGeneration()
}

// buildGeneration creates the swapchain and everything that depends on it.
// On failure the partial generation is released.
func (r *Renderer) buildGeneration() (err error) {
	defer func() {
		if err != nil {
			r.generation.Release()
			r.gen = nil
		}
	}()

	device := r.ctx.Device
	arena := r.generation
	gen := &generation{}

	gen.swapchain, err = swapchain.Create(r.ctx, r.window)
	if err != nil {
		return err
	}
	arena.Track("swapchain", gen.swapchain.Destroy)

	gen.renderPass, err = pipeline.NewRenderPass(device, gen.swapchain.Format)
	if err != nil {
		return err
	}
	arena.Track("render pass", func() { gen.renderPass.Destroy(nil) })

	gen.descriptorSetLayout, err = pipeline.NewDescriptorSetLayout(device)
	if err != nil {
		return err
	}
	arena.Track("descriptor set layout", func() { gen.descriptorSetLayout.Destroy(nil) })

	gen.pipeline, err = pipeline.Build(device, pipeline.Options{
		VertexShader:        r.vertexShader,
		FragmentShader:      r.fragmentShader,
		Layout:              r.layout,
		DescriptorSetLayout: gen.descriptorSetLayout,
		RenderPass:          gen.renderPass,
		Extent:              gen.swapchain.Extent,
	})
	if err != nil {
		return err
	}
	arena.Track("graphics pipeline", gen.pipeline.Destroy)

	gen.framebuffers, err = gen.swapchain.Framebuffers(gen.renderPass, arena)
	if err != nil {
		return err
	}

	if err = r.createUniformBuffers(gen); err != nil {
		return err
	}

	if err = r.createDescriptorPool(gen); err != nil {
		return err
	}

	if err = r.createDescriptorSets(gen); err != nil {
		return err
	}

	if err = r.createCommandBuffers(gen); err != nil {
		return err
	}

	r.gen = gen
	log.WithField("objects", arena.Len()).Debug("built swapchain generation")

	return nil
}

func uniformBufferSize() int {
	return binary.Size(UniformBufferObject{})
}

func (r *Renderer) createUniformBuffers(gen *generation) error {
	for i := 0; i < gen.swapchain.ImageCount(); i++ {
		buffer, err := upload.NewBuffer(r.ctx, uniformBufferSize(), core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return err
		}
		r.generation.Track("uniform buffer", buffer.Destroy)

		gen.uniformBuffers = append(gen.uniformBuffers, buffer)
	}

	return nil
}

func (r *Renderer) createDescriptorPool(gen *generation) error {
	imageCount := gen.swapchain.ImageCount()

	var err error
	gen.descriptorPool, _, err = r.ctx.Device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: imageCount,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: imageCount,
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: imageCount,
			},
		},
	})
	if err != nil {
		return gpu.ResourceError(err, "create descriptor pool for %d images", imageCount)
	}
	r.generation.Track("descriptor pool", func() { gen.descriptorPool.Destroy(nil) })

	return nil
}

// createDescriptorSets allocates one set per image from the pool. The sets
// are freed with the pool.
func (r *Renderer) createDescriptorSets(gen *generation) error {
	var allocLayouts []core1_0.DescriptorSetLayout
	for i := 0; i < gen.swapchain.ImageCount(); i++ {
		allocLayouts = append(allocLayouts, gen.descriptorSetLayout)
	}

	var err error
	gen.descriptorSets, _, err = r.ctx.Device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: gen.descriptorPool,
		SetLayouts:     allocLayouts,
	})
	if err != nil {
		return gpu.ResourceError(err, "allocate descriptor sets")
	}

	for i, set := range gen.descriptorSets {
		err = r.ctx.Device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          set,
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: gen.uniformBuffers[i].Handle,
						Offset: 0,
						Range:  uniformBufferSize(),
					},
				},
			},
			{
				DstSet:          set,
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   r.textureView,
						Sampler:     r.sampler,
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			return gpu.ResourceError(err, "write descriptor set %d", i)
		}
	}

	return nil
}

// createCommandBuffers records one reusable draw per swapchain image.
func (r *Renderer) createCommandBuffers(gen *generation) error {
	device := r.ctx.Device

	buffers, _, err := device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: gen.swapchain.ImageCount(),
	})
	if err != nil {
		return gpu.ResourceError(err, "allocate command buffers")
	}
	r.generation.Track("command buffers", func() { device.FreeCommandBuffers(buffers) })
	gen.commandBuffers = buffers

	for bufferIdx, buffer := range buffers {
		_, err = buffer.Begin(core1_0.CommandBufferBeginInfo{})
		if err != nil {
			return gpu.ResourceError(err, "begin command buffer %d", bufferIdx)
		}

		err = buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  gen.renderPass,
				Framebuffer: gen.framebuffers[bufferIdx],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: gen.swapchain.Extent,
				},
				ClearValues: []core1_0.ClearValue{
					core1_0.ClearValueFloat{0, 0, 0, 1},
				},
			})
		if err != nil {
			return gpu.ResourceError(err, "begin render pass %d", bufferIdx)
		}

		buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, gen.pipeline.Pipeline)
		buffer.CmdBindVertexBuffers(0, []core1_0.Buffer{r.vertexBuffer.Handle}, []int{0})
		buffer.CmdBindIndexBuffer(r.indexBuffer.Handle, 0, core1_0.IndexTypeUInt32)
		buffer.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, gen.pipeline.Layout, []core1_0.DescriptorSet{
			gen.descriptorSets[bufferIdx],
		}, nil)
		buffer.CmdDrawIndexed(r.indexCount, 1, 0, 0, 0)
		buffer.CmdEndRenderPass()

		_, err = buffer.End()
		if err != nil {
			return gpu.ResourceError(err, "end command buffer %d", bufferIdx)
		}
	}

	return nil
}
