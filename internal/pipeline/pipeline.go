// Package pipeline builds the render pass, descriptor set layout and the
// single fixed-function graphics pipeline used to draw every frame.
package pipeline

import (
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
)

// Options are the inputs Build needs. Shader code is SPIR-V.
type Options struct {
	VertexShader        []byte
	FragmentShader      []byte
	Layout              VertexLayout
	DescriptorSetLayout core1_0.DescriptorSetLayout
	RenderPass          core1_0.RenderPass
	Extent              core1_0.Extent2D
}

// Pipeline is a graphics pipeline and the layout it was built against.
type Pipeline struct {
	Layout   core1_0.PipelineLayout
	Pipeline core1_0.Pipeline
}

// Destroy releases the pipeline before its layout.
func (p *Pipeline) Destroy() {
	if p.Pipeline != nil {
		p.Pipeline.Destroy(nil)
		p.Pipeline = nil
	}

	if p.Layout != nil {
		p.Layout.Destroy(nil)
		p.Layout = nil
	}
}

func viewportState(extent core1_0.Extent2D) *core1_0.PipelineViewportStateCreateInfo {
	return &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(extent.Width),
				Height:   float32(extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
		},
	}
}

func rasterizationState() *core1_0.PipelineRasterizationStateCreateInfo {
	return &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}
}

func colorBlendState() *core1_0.PipelineColorBlendStateCreateInfo {
	return &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}
}

// Build creates a pipeline layout over opts.DescriptorSetLayout and a
// triangle-list pipeline for subpass 0 of opts.RenderPass.
func Build(device core1_0.Device, opts Options) (*Pipeline, error) {
	vertShader, err := newShaderModule(device, "vertex", opts.VertexShader)
	if err != nil {
		return nil, err
	}
	defer vertShader.Destroy(nil)

	fragShader, err := newShaderModule(device, "fragment", opts.FragmentShader)
	if err != nil {
		return nil, err
	}
	defer fragShader.Destroy(nil)

	p := &Pipeline{}
	p.Layout, _, err = device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			opts.DescriptorSetLayout,
		},
	})
	if err != nil {
		return nil, gpu.ResourceError(err, "create pipeline layout")
	}

	pipelines, _, err := device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: vertShader,
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: fragShader,
					Name:   "main",
				},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   []core1_0.VertexInputBindingDescription{opts.Layout.Binding},
				VertexAttributeDescriptions: opts.Layout.Attributes,
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			ViewportState:      viewportState(opts.Extent),
			RasterizationState: rasterizationState(),
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				SampleShadingEnable:  false,
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			ColorBlendState:   colorBlendState(),
			Layout:            p.Layout,
			RenderPass:        opts.RenderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, gpu.ResourceError(err, "create graphics pipeline")
	}
	p.Pipeline = pipelines[0]

	return p, nil
}
