package glyphatlas

import (
	"math"

	"golang.org/x/image/math/fixed"
)

// SizeInfo captures the pixel geometry of the render surface: total size,
// per-cell size, and the padding that centers the grid. All projection and
// viewport uniforms are derived from it, and it must be rebuilt from the
// actual surface dimensions whenever the surface is resized; cell and
// surface sizes are never compile-time constants.
type SizeInfo struct {
	width  float32
	height float32

	cellWidth  float32
	cellHeight float32

	paddingX float32
	paddingY float32

	screenLines int
	columns     int
}

// NewSizeInfo builds a SizeInfo from surface pixel dimensions, cell pixel
// dimensions, and window padding. Padding is floored to whole pixels so
// cell boundaries stay pixel-aligned. The line and column counts are
// clamped to at least one.
func NewSizeInfo(width, height, cellWidth, cellHeight, paddingX, paddingY float32) SizeInfo {
	paddingX = float32(math.Floor(float64(paddingX)))
	paddingY = float32(math.Floor(float64(paddingY)))

	lines := int((height - 2*paddingY) / cellHeight)
	if lines < 1 {
		lines = 1
	}
	columns := int((width - 2*paddingX) / cellWidth)
	if columns < 1 {
		columns = 1
	}

	return SizeInfo{
		width:       width,
		height:      height,
		cellWidth:   cellWidth,
		cellHeight:  cellHeight,
		paddingX:    paddingX,
		paddingY:    paddingY,
		screenLines: lines,
		columns:     columns,
	}
}

// FontMetrics are the fixed-point font measurements a cell grid is derived
// from, in the 26.6 format used throughout the Go font ecosystem.
type FontMetrics struct {
	// Advance is the horizontal advance of a monospace glyph.
	Advance fixed.Int26_6

	// Ascent and Descent are distances above and below the baseline, both
	// positive.
	Ascent  fixed.Int26_6
	Descent fixed.Int26_6

	// LineGap is the additional spacing between consecutive lines.
	LineGap fixed.Int26_6
}

// CellSize computes integer-pixel cell dimensions from font metrics,
// rounding fractional advances and line heights up so adjacent glyphs
// never overlap.
func (m FontMetrics) CellSize() (width, height float32) {
	width = float32(m.Advance.Ceil())
	height = float32((m.Ascent + m.Descent + m.LineGap).Ceil())
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// Width returns the surface width in pixels.
func (s SizeInfo) Width() float32 { return s.width }

// Height returns the surface height in pixels.
func (s SizeInfo) Height() float32 { return s.height }

// CellWidth returns the width of one cell in pixels.
func (s SizeInfo) CellWidth() float32 { return s.cellWidth }

// CellHeight returns the height of one cell in pixels.
func (s SizeInfo) CellHeight() float32 { return s.cellHeight }

// PaddingX returns the horizontal window padding in pixels.
func (s SizeInfo) PaddingX() float32 { return s.paddingX }

// PaddingY returns the vertical window padding in pixels.
func (s SizeInfo) PaddingY() float32 { return s.paddingY }

// ScreenLines returns the number of grid rows that fit the surface.
func (s SizeInfo) ScreenLines() int { return s.screenLines }

// Columns returns the number of grid columns that fit the surface.
func (s SizeInfo) Columns() int { return s.columns }

// Contains reports whether the given grid coordinates fall inside the
// visible grid.
func (s SizeInfo) Contains(col, row uint16) bool {
	return int(col) < s.columns && int(row) < s.screenLines
}
