package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// Renderer errors.
var (
	// ErrRendererClosed is returned when using a destroyed renderer.
	ErrRendererClosed = errors.New("gpu: renderer is destroyed")

	// ErrInvalidSize is returned when the surface size has not been set
	// or has zero dimensions.
	ErrInvalidSize = errors.New("gpu: invalid surface size")
)

// gpuTimeout bounds how long a frame submission may take.
const gpuTimeout = 5 * time.Second

// RendererConfig holds configuration for creating a Renderer.
type RendererConfig struct {
	// SurfaceFormat is the texture format of the render target.
	// Defaults to BGRA8Unorm.
	SurfaceFormat gputypes.TextureFormat

	// AtlasSize is the glyph atlas dimension. Defaults to DefaultAtlasSize.
	AtlasSize int

	// ClearColor fills the target at the start of each frame.
	ClearColor gputypes.Color
}

// DefaultRendererConfig returns the default renderer configuration.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		SurfaceFormat: gputypes.TextureFormatBGRA8Unorm,
		AtlasSize:     DefaultAtlasSize,
		ClearColor:    gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
}

// Renderer draws glyph grids into a target texture view. It owns the
// grid pipeline, the glyph atlas, the instance batch, and the rect
// overlay renderer, and orchestrates the two-pass draw for each frame.
//
// Renderer implements glyphatlas.GlyphLoader by delegating to its
// atlas, so it can be handed directly to GlyphCache.Get.
//
// Renderer is safe for concurrent use, though frames are serialized.
type Renderer struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	pipeline  *gridPipeline
	atlas     *Atlas
	instances *InstanceBuffer
	rects     *RectRenderer

	// One uniform buffer and bind group per rendering pass; the pass
	// index is the only difference between their contents.
	bgUniforms    hal.Buffer
	glyphUniforms hal.Buffer
	bgBind        hal.BindGroup
	glyphBind     hal.BindGroup

	size       glyphatlas.SizeInfo
	clearColor gputypes.Color
	closed     bool
}

// NewRenderer creates all GPU resources for grid rendering on the given
// device. Call Resize before the first frame.
func NewRenderer(device hal.Device, queue hal.Queue, config RendererConfig) (*Renderer, error) {
	format := config.SurfaceFormat
	if format == 0 {
		format = gputypes.TextureFormatBGRA8Unorm
	}

	r := &Renderer{
		device:     device,
		queue:      queue,
		clearColor: config.ClearColor,
	}

	pipeline, err := newGridPipeline(device, format)
	if err != nil {
		return nil, err
	}
	r.pipeline = pipeline

	atlas, err := NewAtlas(device, queue, AtlasConfig{Size: config.AtlasSize})
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.atlas = atlas

	instances, err := NewInstanceBuffer(device, queue)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.instances = instances

	rects, err := NewRectRenderer(device, queue, format)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.rects = rects

	if err := r.createUniforms(); err != nil {
		r.Destroy()
		return nil, err
	}

	slogger().Info("grid renderer created",
		"format", format, "atlas_size", r.atlas.Size())
	return r, nil
}

// createUniforms allocates the per-pass uniform buffers and bind groups.
func (r *Renderer) createUniforms() error {
	for _, pass := range []struct {
		label string
		buf   *hal.Buffer
		bind  *hal.BindGroup
	}{
		{"grid_bg", &r.bgUniforms, &r.bgBind},
		{"grid_glyph", &r.glyphUniforms, &r.glyphBind},
	} {
		buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: pass.label + "_uniforms",
			Size:  gridUniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create %s uniforms: %w", pass.label, err)
		}
		*pass.buf = buf

		bind, err := r.pipeline.CreateBindGroup(pass.label+"_bind", buf, r.atlas.View())
		if err != nil {
			return err
		}
		*pass.bind = bind
	}
	return nil
}

// LoadGlyph uploads a bitmap into the atlas. Implements
// glyphatlas.GlyphLoader.
func (r *Renderer) LoadGlyph(bitmap *glyphatlas.Bitmap) (glyphatlas.Glyph, error) {
	return r.atlas.LoadGlyph(bitmap)
}

// Clear resets the atlas packing state. Implements glyphatlas.GlyphLoader.
func (r *Renderer) Clear() {
	r.atlas.Clear()
}

// Atlas returns the glyph atlas.
func (r *Renderer) Atlas() *Atlas {
	return r.atlas
}

// Resize updates the grid transform for a new surface size. Atlas and
// cache contents survive a resize; only the uniforms change.
func (r *Renderer) Resize(size glyphatlas.SizeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if size.Width() <= 0 || size.Height() <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrInvalidSize, size.Width(), size.Height())
	}

	r.size = size

	bg := uniformsFor(size, passBackground)
	glyph := uniformsFor(size, passGlyph)
	r.queue.WriteBuffer(r.bgUniforms, 0, bg.encode())
	r.queue.WriteBuffer(r.glyphUniforms, 0, glyph.encode())

	slogger().Debug("grid renderer resized",
		"width", size.Width(), "height", size.Height(),
		"columns", size.Columns(), "lines", size.ScreenLines())
	return nil
}

// DrawCells renders a frame of grid cells into the target view. Glyphs
// are resolved through the cache, which rasterizes and uploads misses
// via this renderer's atlas. Cells outside the grid are skipped.
//
// The first submission clears the target; if the cell count exceeds the
// instance batch capacity, intermediate batches are flushed with their
// results preserved.
func (r *Renderer) DrawCells(target hal.TextureView, cells []glyphatlas.GridCell, cache *glyphatlas.GlyphCache) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if r.size.Width() <= 0 || r.size.Height() <= 0 {
		return ErrInvalidSize
	}

	loadOp := gputypes.LoadOpClear
	loader := &frameLoader{r: r, target: target, loadOp: &loadOp}
	for i := range cells {
		cell := &cells[i]
		if !r.size.Contains(cell.Col, cell.Row) {
			slogger().Debug("cell outside grid, skipped",
				"col", cell.Col, "row", cell.Row)
			continue
		}

		glyph := cache.Get(cell.Key, loader)
		if loader.err != nil {
			return loader.err
		}
		full := r.instances.Push(instanceFor(cell, glyph))
		if full {
			if err := r.flushLocked(target, loadOp); err != nil {
				return err
			}
			loadOp = gputypes.LoadOpLoad
		}
	}

	// Final flush also runs for an empty grid so the clear still happens.
	return r.flushLocked(target, loadOp)
}

// frameLoader is the GlyphLoader a frame hands to the cache. Records
// already accumulated reference UV rectangles from the current atlas
// packing, so a mid-frame atlas reset must draw them before the packer
// starts overwriting their texels. Clear flushes the pending batch,
// then clears the atlas.
//
// Callers hold r.mu for the whole frame, so Clear uses the locked
// flush directly.
type frameLoader struct {
	r      *Renderer
	target hal.TextureView
	loadOp *gputypes.LoadOp
	err    error
}

func (l *frameLoader) LoadGlyph(bitmap *glyphatlas.Bitmap) (glyphatlas.Glyph, error) {
	return l.r.atlas.LoadGlyph(bitmap)
}

func (l *frameLoader) Clear() {
	if l.r.instances.Len() > 0 {
		if err := l.r.flushLocked(l.target, *l.loadOp); err != nil && l.err == nil {
			l.err = err
		}
		*l.loadOp = gputypes.LoadOpLoad
	}
	l.r.atlas.Clear()
}

// instanceFor combines a cell and its resolved glyph into one record.
// Whether a glyph is colored is known only after rasterization, so the
// colored flag comes from the resolved glyph, not from the host.
func instanceFor(cell *glyphatlas.GridCell, glyph glyphatlas.Glyph) InstanceRecord {
	flags := cell.Flags
	if glyph.Colored {
		flags |= glyphatlas.FlagColored
	}
	return InstanceRecord{
		Col:         cell.Col,
		Row:         cell.Row,
		GlyphLeft:   glyph.Left,
		GlyphTop:    glyph.Top,
		GlyphWidth:  glyph.Width,
		GlyphHeight: glyph.Height,
		UVLeft:      glyph.UVLeft,
		UVBot:       glyph.UVBot,
		UVWidth:     glyph.UVWidth,
		UVHeight:    glyph.UVHeight,
		Fg:          cell.Fg,
		Flags:       flags,
		Bg:          cell.Bg,
		BgAlpha:     cell.BgAlpha,
	}
}

// flushLocked uploads the current batch and submits both rendering
// passes over it. Callers must hold r.mu.
func (r *Renderer) flushLocked(target hal.TextureView, loadOp gputypes.LoadOp) error {
	count := r.instances.Len()
	r.instances.Upload()

	err := r.submitPass(target, loadOp, "grid_frame", func(rp hal.RenderPassEncoder) {
		if count == 0 {
			return
		}
		rp.SetPipeline(r.pipeline.pipeline)
		r.instances.Bind(rp)

		// Pass 0: backgrounds for every instance.
		rp.SetBindGroup(0, r.bgBind, nil)
		rp.DrawIndexed(6, uint32(count), 0, 0, 0) //nolint:gosec // count <= MaxInstances

		// Pass 1: glyphs over the freshly drawn backgrounds.
		rp.SetBindGroup(0, r.glyphBind, nil)
		rp.DrawIndexed(6, uint32(count), 0, 0, 0) //nolint:gosec
	})
	if err != nil {
		return err
	}

	r.instances.Reset()
	return nil
}

// DrawRects renders overlay rectangles on top of previously drawn grid
// content. Coordinates are in pixels relative to the surface.
func (r *Renderer) DrawRects(target hal.TextureView, rects []Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if r.size.Width() <= 0 || r.size.Height() <= 0 {
		return ErrInvalidSize
	}
	if len(rects) == 0 {
		return nil
	}

	for _, rect := range rects {
		r.rects.Push(rect, r.size)
	}
	r.rects.Upload()

	return r.submitPass(target, gputypes.LoadOpLoad, "rect_overlay", func(rp hal.RenderPassEncoder) {
		r.rects.Draw(rp)
	})
}

// ClearTarget fills the target with the configured clear color without
// drawing any cells.
func (r *Renderer) ClearTarget(target hal.TextureView) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	return r.submitPass(target, gputypes.LoadOpClear, "grid_clear", func(hal.RenderPassEncoder) {})
}

// submitPass encodes one render pass over the target, submits it, and
// blocks until the GPU finishes.
func (r *Renderer) submitPass(target hal.TextureView, loadOp gputypes.LoadOp, label string, record func(hal.RenderPassEncoder)) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label + "_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}

	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: r.clearColor,
		}},
	})
	record(rp)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, gpuTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wait for GPU: fence timeout after %s", gpuTimeout)
	}
	return nil
}

// Destroy releases all GPU resources. The renderer must not be used
// after Destroy returns.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	if r.bgBind != nil {
		r.device.DestroyBindGroup(r.bgBind)
		r.bgBind = nil
	}
	if r.glyphBind != nil {
		r.device.DestroyBindGroup(r.glyphBind)
		r.glyphBind = nil
	}
	if r.bgUniforms != nil {
		r.device.DestroyBuffer(r.bgUniforms)
		r.bgUniforms = nil
	}
	if r.glyphUniforms != nil {
		r.device.DestroyBuffer(r.glyphUniforms)
		r.glyphUniforms = nil
	}
	if r.rects != nil {
		r.rects.Destroy()
		r.rects = nil
	}
	if r.instances != nil {
		r.instances.Destroy()
		r.instances = nil
	}
	if r.atlas != nil {
		r.atlas.Destroy()
		r.atlas = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
}
