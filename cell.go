package glyphatlas

import "fmt"

// RGB is an 8-bit-per-channel color as used by terminal palettes.
type RGB struct {
	R, G, B uint8
}

// String returns the color as a #rrggbb hex string.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CellFlags carries per-cell rendering properties.
//
// The flag values are part of the instance record wire format consumed by
// the grid shader and must stay in sync with shaders/grid_text.wgsl.
type CellFlags uint8

const (
	// FlagColored marks a glyph whose atlas texels are premultiplied RGBA
	// colors (emoji and other color fonts) rather than a coverage mask.
	FlagColored CellFlags = 1 << iota

	// FlagWideChar marks a cell occupied by a double-width character. The
	// background pass stretches the fill across both columns.
	FlagWideChar
)

// Has reports whether all bits in mask are set.
func (f CellFlags) Has(mask CellFlags) bool { return f&mask == mask }

// GridCell is one logical terminal cell to draw: a glyph at a grid
// position with foreground and background colors.
//
// GridCells are produced by the terminal model and borrowed by the
// renderer for the duration of a single frame; the renderer never retains
// them past the frame.
type GridCell struct {
	// Col and Row are the zero-based grid coordinates of the cell.
	Col, Row uint16

	// Key identifies the glyph to draw in this cell.
	Key GlyphKey

	// Fg is the foreground (text) color.
	Fg RGB

	// Bg is the background color. BgAlpha scales it; cells with BgAlpha 0
	// skip the background fill entirely.
	Bg      RGB
	BgAlpha float32

	// Flags carries wide-character and colored-glyph properties.
	Flags CellFlags
}
