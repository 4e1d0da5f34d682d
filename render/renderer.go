package render

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glyphatlas "github.com/jason5122/glyph-atlas"
	"github.com/jason5122/glyph-atlas/internal/gpu"
)

// Config holds configuration for creating a GridRenderer.
type Config struct {
	// SurfaceFormat is the texture format of the render target.
	// Defaults to BGRA8Unorm.
	SurfaceFormat gputypes.TextureFormat

	// AtlasSize is the glyph atlas dimension in pixels.
	// Defaults to 1024.
	AtlasSize int

	// ClearColor fills the target at the start of each frame.
	ClearColor gputypes.Color

	// Cache configures the glyph cache. Zero values take defaults.
	Cache glyphatlas.GlyphCacheConfig
}

// DefaultConfig returns the default renderer configuration: BGRA8Unorm
// target, 1024x1024 atlas, opaque black clear color.
func DefaultConfig() Config {
	return Config{
		SurfaceFormat: gputypes.TextureFormatBGRA8Unorm,
		AtlasSize:     gpu.DefaultAtlasSize,
		ClearColor:    gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		Cache:         glyphatlas.DefaultGlyphCacheConfig(),
	}
}

// Rect is an overlay rectangle in pixel coordinates, drawn on top of
// the glyph grid (cursor, underline, selection highlight).
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
	Color  glyphatlas.RGB
	Alpha  float32
}

// GridRenderer renders glyph grids into a texture view. It combines a
// glyph cache, a glyph atlas, and the instanced grid pipeline behind
// one front door.
//
// GridRenderer is safe for concurrent use; frames are serialized.
type GridRenderer struct {
	renderer *gpu.Renderer
	cache    *glyphatlas.GlyphCache
}

// New creates a GridRenderer on the host-provided device and queue.
// The rasterizer supplies glyph bitmaps on cache misses.
func New(device hal.Device, queue hal.Queue, rasterizer glyphatlas.Rasterizer, config Config) (*GridRenderer, error) {
	renderer, err := gpu.NewRenderer(device, queue, gpu.RendererConfig{
		SurfaceFormat: config.SurfaceFormat,
		AtlasSize:     config.AtlasSize,
		ClearColor:    config.ClearColor,
	})
	if err != nil {
		return nil, err
	}

	cache := glyphatlas.NewGlyphCacheWithConfig(rasterizer, config.Cache)

	return &GridRenderer{
		renderer: renderer,
		cache:    cache,
	}, nil
}

// Resize updates the grid transform for a new surface size. Cached
// glyphs survive a resize as long as the font metrics are unchanged;
// call ResetCache when they are not.
func (g *GridRenderer) Resize(size glyphatlas.SizeInfo) error {
	return g.renderer.Resize(size)
}

// DrawCells renders one frame of grid cells into the target view.
// The target is cleared first; glyphs missing from the cache are
// rasterized and uploaded to the atlas on the way.
func (g *GridRenderer) DrawCells(target hal.TextureView, cells []glyphatlas.GridCell) error {
	return g.renderer.DrawCells(target, cells, g.cache)
}

// DrawRects draws overlay rectangles on top of previously rendered
// content. The target is not cleared.
func (g *GridRenderer) DrawRects(target hal.TextureView, rects []Rect) error {
	if len(rects) == 0 {
		return nil
	}
	converted := make([]gpu.Rect, len(rects))
	for i, r := range rects {
		converted[i] = gpu.Rect{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			Color: r.Color, Alpha: r.Alpha,
		}
	}
	return g.renderer.DrawRects(target, converted)
}

// Clear fills the target with the configured clear color.
func (g *GridRenderer) Clear(target hal.TextureView) error {
	return g.renderer.ClearTarget(target)
}

// PrefetchASCII warms the cache and atlas with the printable ASCII
// range in all font styles. Call once after creation to avoid
// first-frame rasterization stalls.
func (g *GridRenderer) PrefetchASCII() {
	g.cache.PrefetchASCII(g.renderer)
}

// ResetCache drops all cached glyphs and clears the atlas. Call after
// a font or DPI change.
func (g *GridRenderer) ResetCache() {
	g.cache.Reset(g.renderer)
}

// CacheStats returns glyph cache counters.
func (g *GridRenderer) CacheStats() *glyphatlas.GlyphCacheStats {
	return g.cache.Stats()
}

// Destroy releases all GPU resources.
func (g *GridRenderer) Destroy() {
	g.renderer.Destroy()
}
