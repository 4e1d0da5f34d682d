package gpu

import (
	"encoding/binary"
	"math"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// gridUniformSize is the byte size of the GridUniforms WGSL struct:
// projection vec4<f32>, cell_dim vec2<f32>, rendering_pass u32, pad u32.
const gridUniformSize = 32

// Rendering pass indices, matching the uniform comparisons in
// grid_text.wgsl.
const (
	passBackground uint32 = 0
	passGlyph      uint32 = 1
)

// gridUniforms mirrors the GridUniforms WGSL struct.
type gridUniforms struct {
	// Projection maps pixel coordinates to clip space:
	// clip.xy = offset + scale * pixel.
	OffsetX float32
	OffsetY float32
	ScaleX  float32
	ScaleY  float32

	CellWidth  float32
	CellHeight float32

	RenderingPass uint32
}

// encode serializes the uniforms into a 32-byte WGSL-layout buffer.
func (u *gridUniforms) encode() []byte {
	buf := make([]byte, gridUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(u.OffsetX))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(u.OffsetY))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(u.ScaleX))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(u.ScaleY))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(u.CellWidth))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(u.CellHeight))
	binary.LittleEndian.PutUint32(buf[24:28], u.RenderingPass)
	// Padding bytes 28..31 remain zero.
	return buf
}

// uniformsFor computes the grid transform for the given surface size.
// The projection folds the content padding into the clip-space offset so
// grid coordinate (0, 0) lands at the padded top-left corner, with y
// growing downward.
func uniformsFor(size glyphatlas.SizeInfo, pass uint32) gridUniforms {
	w := float32(size.Width())
	h := float32(size.Height())

	return gridUniforms{
		OffsetX:       -1 + 2*float32(size.PaddingX())/w,
		OffsetY:       1 - 2*float32(size.PaddingY())/h,
		ScaleX:        2 / w,
		ScaleY:        -2 / h,
		CellWidth:     float32(size.CellWidth()),
		CellHeight:    float32(size.CellHeight()),
		RenderingPass: pass,
	}
}
