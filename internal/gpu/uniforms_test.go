package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// near reports whether two floats agree within a rounding tolerance.
func near(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-3
}

func TestUniformsForProjection(t *testing.T) {
	size := glyphatlas.NewSizeInfo(800, 600, 10, 20, 5, 5)
	u := uniformsFor(size, passBackground)

	// Grid origin (pixel 0,0 inside the padded area) must land at the
	// padding offset in screen space: clip -> screen round trip.
	screenX := (u.OffsetX + 1) / 2 * 800
	screenY := (1 - u.OffsetY) / 2 * 600
	if !near(screenX, 5) || !near(screenY, 5) {
		t.Errorf("grid origin at screen (%g, %g), want (5, 5)", screenX, screenY)
	}

	// Cell (1, 0)'s top-left corner is one cell width right of origin.
	clipX := u.OffsetX + u.ScaleX*(1*10)
	screenX = (clipX + 1) / 2 * 800
	if !near(screenX, 15) {
		t.Errorf("cell (1,0) at screen x %g, want 15", screenX)
	}

	// y grows downward: one row down moves toward the bottom.
	clipY := u.OffsetY + u.ScaleY*(1*20)
	screenY = (1 - clipY) / 2 * 600
	if !near(screenY, 25) {
		t.Errorf("cell (0,1) at screen y %g, want 25", screenY)
	}

	if u.CellWidth != 10 || u.CellHeight != 20 {
		t.Errorf("cell dim = %gx%g, want 10x20", u.CellWidth, u.CellHeight)
	}
}

func TestUniformsForPassIndex(t *testing.T) {
	size := glyphatlas.NewSizeInfo(800, 600, 10, 20, 0, 0)

	bg := uniformsFor(size, passBackground)
	glyph := uniformsFor(size, passGlyph)

	if bg.RenderingPass != 0 || glyph.RenderingPass != 1 {
		t.Errorf("pass indices = %d, %d, want 0, 1", bg.RenderingPass, glyph.RenderingPass)
	}

	// Only the pass differs between the two uniform sets.
	bg.RenderingPass = glyph.RenderingPass
	if bg != glyph {
		t.Errorf("uniforms differ beyond pass: %+v vs %+v", bg, glyph)
	}
}

func TestGridUniformsEncode(t *testing.T) {
	u := gridUniforms{
		OffsetX:       -1,
		OffsetY:       1,
		ScaleX:        0.0025,
		ScaleY:        -0.005,
		CellWidth:     10,
		CellHeight:    20,
		RenderingPass: 1,
	}

	buf := u.encode()
	if len(buf) != gridUniformSize {
		t.Fatalf("encoded size = %d, want %d", len(buf), gridUniformSize)
	}

	floats := []struct {
		name   string
		offset int
		want   float32
	}{
		{"offset x", 0, -1},
		{"offset y", 4, 1},
		{"scale x", 8, 0.0025},
		{"scale y", 12, -0.005},
		{"cell width", 16, 10},
		{"cell height", 20, 20},
	}
	for _, f := range floats {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[f.offset : f.offset+4]))
		if got != f.want {
			t.Errorf("%s = %g, want %g", f.name, got, f.want)
		}
	}
	if got := binary.LittleEndian.Uint32(buf[24:28]); got != 1 {
		t.Errorf("rendering pass = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(buf[28:32]); got != 0 {
		t.Errorf("padding = %d, want 0", got)
	}
}
