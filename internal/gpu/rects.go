package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// Rect vertex layout constants.
const (
	// rectVertexStride is position (2x float32) plus color (4x unorm8).
	rectVertexStride = 12

	// rectVerticesPerRect is two triangles without indexing.
	rectVerticesPerRect = 6

	// MaxRects bounds one rect batch. Overlays are sparse (cursor,
	// underlines, selection), so the batch never flushes in practice.
	MaxRects = 1024
)

// Rect is an untextured overlay rectangle in pixel coordinates.
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
	Color  glyphatlas.RGB
	Alpha  float32
}

// RectRenderer draws alpha-blended rectangles on top of the glyph grid
// for decorations that are not glyphs: cursors, underlines, strikeout
// and selection highlights. Vertices are transformed to clip space on
// the CPU since rects are few and the shader stays trivial.
type RectRenderer struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	vertices   hal.Buffer

	staging []byte
	count   int
}

// NewRectRenderer compiles the rect shader and allocates the vertex
// buffer, targeting the given surface format.
func NewRectRenderer(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) (*RectRenderer, error) {
	if rectShaderSource == "" {
		return nil, fmt.Errorf("rect: %w", ErrEmptyShader)
	}

	r := &RectRenderer{device: device, queue: queue}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "rect_shader",
		Source: hal.ShaderSource{WGSL: rectShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("compile rect shader: %w", err)
	}
	r.shader = shader

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rect_pipe_layout",
		BindGroupLayouts: nil,
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create rect pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "rect_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: rectVertexStride,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
						{Format: gputypes.VertexFormatUnorm8x4, Offset: 8, ShaderLocation: 1},  // color
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					Blend:     &premulBlend,
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
		r.Destroy()
		return nil, fmt.Errorf("create rect pipeline: %w", err)
	}
	r.pipeline = pipeline

	vertices, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rect_vertices",
		Size:  uint64(MaxRects * rectVerticesPerRect * rectVertexStride),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create rect vertex buffer: %w", err)
	}
	r.vertices = vertices
	r.staging = make([]byte, MaxRects*rectVerticesPerRect*rectVertexStride)

	return r, nil
}

// Push appends a rectangle to the batch, converting pixel coordinates
// to clip space for the given surface size. Rects beyond MaxRects are
// dropped with a warning; overlay decorations never reach that count.
func (r *RectRenderer) Push(rect Rect, size glyphatlas.SizeInfo) {
	if r.count == MaxRects {
		slogger().Warn("rect batch full, dropping rect", "max", MaxRects)
		return
	}

	w := float32(size.Width())
	h := float32(size.Height())

	// Pixel rect corners in clip space, y flipped.
	x0 := rect.X*2/w - 1
	y0 := 1 - rect.Y*2/h
	x1 := (rect.X+rect.Width)*2/w - 1
	y1 := 1 - (rect.Y+rect.Height)*2/h

	c := [4]byte{rect.Color.R, rect.Color.G, rect.Color.B, unormByte(rect.Alpha)}

	buf := r.staging[r.count*rectVerticesPerRect*rectVertexStride:]
	writeRectVertex(buf[0:], x0, y1, c)
	writeRectVertex(buf[12:], x0, y0, c)
	writeRectVertex(buf[24:], x1, y0, c)
	writeRectVertex(buf[36:], x0, y1, c)
	writeRectVertex(buf[48:], x1, y0, c)
	writeRectVertex(buf[60:], x1, y1, c)
	r.count++
}

// writeRectVertex writes one 12-byte rect vertex at buf[0:12].
func writeRectVertex(buf []byte, x, y float32, color [4]byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	copy(buf[8:12], color[:])
}

// Len returns the number of rects in the current batch.
func (r *RectRenderer) Len() int {
	return r.count
}

// Upload copies the accumulated vertices to the GPU buffer.
func (r *RectRenderer) Upload() {
	if r.count == 0 {
		return
	}
	r.queue.WriteBuffer(r.vertices, 0, r.staging[:r.count*rectVerticesPerRect*rectVertexStride])
}

// Draw records the batch into the render pass and resets it.
func (r *RectRenderer) Draw(rp hal.RenderPassEncoder) {
	if r.count == 0 {
		return
	}
	rp.SetPipeline(r.pipeline)
	rp.SetVertexBuffer(0, r.vertices, 0)
	rp.Draw(uint32(r.count*rectVerticesPerRect), 1, 0, 0) //nolint:gosec // count bounded by MaxRects
	r.count = 0
}

// Destroy releases GPU resources in reverse creation order.
func (r *RectRenderer) Destroy() {
	if r.vertices != nil {
		r.device.DestroyBuffer(r.vertices)
		r.vertices = nil
	}
	if r.pipeline != nil {
		r.device.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.shader != nil {
		r.device.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}
