// Package gpu implements the GPU side of the glyph grid renderer.
//
// This is an internal package used by the glyphatlas library. It turns
// grid cells into instanced textured quads and draws them with WebGPU
// via the gogpu/wgpu Pure Go implementation (zero CGO), which supports
// Vulkan, Metal, and DX12 backends depending on the platform.
//
// # Architecture Overview
//
// Rendering follows a batched instancing design:
//
//	GridCell -> InstanceRecord -> InstanceBuffer -> two-pass draw -> surface
//
// Key components:
//
//   - Atlas: shelf-packed glyph texture with sub-rectangle uploads
//   - InstanceBuffer: fixed-capacity per-cell instance staging
//   - gridPipeline: dual-source-blend pipeline shared by both passes
//   - RectRenderer: untextured overlay rectangles (cursors, underlines)
//   - Renderer: per-frame orchestrator tying the pieces together
//
// # Two-Pass Compositing
//
// Each frame the accumulated instances are drawn twice with the same
// pipeline. Pass 0 fills cell backgrounds, pass 1 draws glyph foregrounds
// with per-channel alpha via dual-source blending (subpixel masks written
// to a second blend source). The pass index is the only uniform that
// differs between the two draws, so the renderer keeps two uniform
// buffers and two bind groups instead of rewriting uniforms mid-frame.
//
// # Error Handling
//
// Common errors returned by this package:
//
//   - glyphatlas.ErrAtlasFull: no shelf can hold the incoming bitmap
//   - ErrRendererClosed: Renderer has been destroyed
//   - ErrInvalidSize: zero or negative surface dimensions
//
// # Related Packages
//
//   - github.com/jason5122/glyph-atlas: cell model and glyph cache
//   - github.com/gogpu/wgpu: Pure Go WebGPU implementation
package gpu
