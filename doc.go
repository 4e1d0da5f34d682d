// Package glyphatlas renders a fixed-size grid of text glyphs onto a GPU
// surface. Each terminal cell becomes one textured quad drawn via GPU
// instancing; glyph bitmaps are packed into a shared atlas texture, and
// colors are composited with a dual-source subpixel blend.
//
// # Scope
//
// The library consumes pre-rasterized glyph bitmaps and pre-measured cell
// metrics and only manages how they reach the screen. Text shaping, font
// loading, rasterization, input handling, and window management belong to
// the host.
//
// # Architecture
//
// The module is organized into:
//
//   - Public data model (this package): GridCell, Glyph, SizeInfo, the
//     Rasterizer collaborator interface, and the GlyphCache that keeps
//     rasterized glyphs resident in GPU memory.
//   - render/: the renderer facade the host drives each frame.
//   - internal/gpu: atlas texture management, instance buffers, WGSL
//     pipelines, and frame orchestration on top of gogpu/wgpu HAL.
//
// # Data flow
//
// Each frame the host hands the renderer a slice of GridCells plus the
// current SizeInfo. The glyph cache guarantees every referenced glyph is
// resident in the atlas and returns its UV rectangle; the renderer packs
// one 28-byte instance record per glyph, uploads the batch, and issues two
// instanced draw calls: an opaque background fill followed by the
// antialiased glyph mask.
//
// # Logging
//
// glyphatlas produces no log output by default. Call [SetLogger] to enable
// structured logging via log/slog.
package glyphatlas
