package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline errors.
var (
	// ErrEmptyShader is returned when an embedded shader source is missing.
	ErrEmptyShader = errors.New("gpu: embedded shader source is empty")
)

// Dual-source blend factors from the WebGPU spec (webgpu.h values
// 0x0E-0x11). gputypes stops at BlendFactorOneMinusConstant (0x0D) and
// does not declare these.
const (
	blendFactorSrc1              gputypes.BlendFactor = 0x0000000E
	blendFactorOneMinusSrc1      gputypes.BlendFactor = 0x0000000F
	blendFactorSrc1Alpha         gputypes.BlendFactor = 0x00000010
	blendFactorOneMinusSrc1Alpha gputypes.BlendFactor = 0x00000011
)

// gridPipeline owns the render pipeline shared by the background and
// glyph passes, plus the bind group layout and sampler needed to bind
// the atlas. Both passes use the same dual-source blend state; the
// background pass writes an all-ones mask so the blend degenerates to a
// plain write there.
type gridPipeline struct {
	device hal.Device

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	sampler       hal.Sampler
	pipeline      hal.RenderPipeline
}

// newGridPipeline compiles the grid text shader and builds the pipeline
// targeting the given surface format.
func newGridPipeline(device hal.Device, format gputypes.TextureFormat) (*gridPipeline, error) {
	if gridTextShaderSource == "" {
		return nil, fmt.Errorf("grid_text: %w", ErrEmptyShader)
	}

	p := &gridPipeline{device: device}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "grid_text_shader",
		Source: hal.ShaderSource{WGSL: gridTextShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("compile grid_text shader: %w", err)
	}
	p.shader = shader

	// Bind group layout:
	//   Binding 0: GridUniforms (uniform buffer, vertex+fragment)
	//   Binding 1: glyph atlas texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "grid_text_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create grid_text uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "grid_text_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create grid_text pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	// Glyphs are rendered at exact pixel positions, so nearest filtering
	// keeps subpixel masks crisp.
	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "grid_text_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create grid_text sampler: %w", err)
	}
	p.sampler = sampler

	// Dual-source blending: the second fragment output supplies
	// per-channel weights, dst = src * src1 + dst * (1 - src1).
	dualSourceBlend := gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: blendFactorSrc1,
			DstFactor: blendFactorOneMinusSrc1,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: blendFactorSrc1Alpha,
			DstFactor: blendFactorOneMinusSrc1Alpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "grid_text_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    gridVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     &dualSourceBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("create grid_text pipeline: %w", err)
	}
	p.pipeline = pipeline

	return p, nil
}

// gridVertexLayout describes the two instance-stepped vertex buffers.
// Buffer 0 carries the 28-byte geometry record, buffer 1 the 8-byte
// color/flags record. All attributes advance per instance; the four
// quad corners come from the vertex index alone.
func gridVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: instanceStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatUint16x2, Offset: 0, ShaderLocation: 0},  // grid coords
				{Format: gputypes.VertexFormatSint16x4, Offset: 4, ShaderLocation: 1},  // glyph box
				{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 2}, // uv rect
			},
		},
		{
			ArrayStride: attribStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatUint8x4, Offset: 0, ShaderLocation: 3},  // fg + flags
				{Format: gputypes.VertexFormatUnorm8x4, Offset: 4, ShaderLocation: 4}, // bg
			},
		},
	}
}

// CreateBindGroup binds a uniform buffer and the atlas view to the
// pipeline's layout. The renderer keeps one bind group per pass.
func (p *gridPipeline) CreateBindGroup(label string, uniforms hal.Buffer, atlasView hal.TextureView) (hal.BindGroup, error) {
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniforms.NativeHandle(), Offset: 0, Size: gridUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: atlasView.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: p.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %s: %w", label, err)
	}
	return bg, nil
}

// Destroy releases pipeline resources in reverse creation order.
func (p *gridPipeline) Destroy() {
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
