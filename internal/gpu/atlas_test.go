package gpu

import (
	"errors"
	"testing"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// maskBitmap builds a mask bitmap of the given geometry for atlas tests.
func maskBitmap(width, height, top, left int) *glyphatlas.Bitmap {
	return &glyphatlas.Bitmap{
		Width:    width,
		Height:   height,
		Top:      top,
		Left:     left,
		Channels: glyphatlas.ChannelsMask,
		Pixels:   make([]byte, width*height*glyphatlas.ChannelsMask),
	}
}

func newTestAtlas(t *testing.T, size int) (*Atlas, func()) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)

	atlas, err := NewAtlas(device, queue, AtlasConfig{Size: size})
	if err != nil {
		cleanup()
		t.Fatalf("NewAtlas failed: %v", err)
	}
	return atlas, func() {
		atlas.Destroy()
		cleanup()
	}
}

func TestAtlasLoadGlyphUV(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 1024)
	defer cleanup()

	glyph, err := atlas.LoadGlyph(maskBitmap(15, 24, 20, 1))
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}

	if glyph.UVLeft != 0 || glyph.UVBot != 0 {
		t.Errorf("first glyph UV origin = (%g, %g), want (0, 0)", glyph.UVLeft, glyph.UVBot)
	}
	if want := float32(15) / 1024; glyph.UVWidth != want {
		t.Errorf("UVWidth = %g, want %g", glyph.UVWidth, want)
	}
	if want := float32(24) / 1024; glyph.UVHeight != want {
		t.Errorf("UVHeight = %g, want %g", glyph.UVHeight, want)
	}
	if glyph.Width != 15 || glyph.Height != 24 {
		t.Errorf("glyph box = %dx%d, want 15x24", glyph.Width, glyph.Height)
	}
	if glyph.Top != 20 || glyph.Left != 1 {
		t.Errorf("glyph bearing = (%d, %d), want (1, 20)", glyph.Left, glyph.Top)
	}
	if glyph.Colored {
		t.Error("mask glyph reported as colored")
	}
}

func TestAtlasPacksRowsLeftToRight(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 1024)
	defer cleanup()

	first, err := atlas.LoadGlyph(maskBitmap(15, 24, 0, 0))
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}
	second, err := atlas.LoadGlyph(maskBitmap(10, 20, 0, 0))
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}

	if want := float32(15) / 1024; second.UVLeft != want {
		t.Errorf("second glyph UVLeft = %g, want %g", second.UVLeft, want)
	}
	if second.UVBot != first.UVBot {
		t.Errorf("same-row glyphs differ in UVBot: %g vs %g", second.UVBot, first.UVBot)
	}
}

func TestAtlasAdvancesRowWhenFull(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 256)
	defer cleanup()

	// Two glyphs of width 200 cannot share a 256-wide row.
	first, err := atlas.LoadGlyph(maskBitmap(200, 30, 0, 0))
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}
	second, err := atlas.LoadGlyph(maskBitmap(200, 20, 0, 0))
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}

	if second.UVLeft != 0 {
		t.Errorf("wrapped glyph UVLeft = %g, want 0", second.UVLeft)
	}
	if want := first.UVBot + float32(30)/256; second.UVBot != want {
		t.Errorf("wrapped glyph UVBot = %g, want %g", second.UVBot, want)
	}
}

func TestAtlasZeroSizeBitmap(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 1024)
	defer cleanup()

	glyph, err := atlas.LoadGlyph(&glyphatlas.Bitmap{Channels: glyphatlas.ChannelsMask})
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}
	if glyph != (glyphatlas.Glyph{}) {
		t.Errorf("zero-size bitmap should yield empty glyph, got %+v", glyph)
	}

	// Whitespace must not consume atlas space.
	next, err := atlas.LoadGlyph(maskBitmap(8, 8, 0, 0))
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}
	if next.UVLeft != 0 || next.UVBot != 0 {
		t.Errorf("glyph after blank placed at (%g, %g), want origin", next.UVLeft, next.UVBot)
	}
}

func TestAtlasFull(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 256)
	defer cleanup()

	// Oversized in one dimension.
	_, err := atlas.LoadGlyph(maskBitmap(300, 10, 0, 0))
	if !errors.Is(err, glyphatlas.ErrAtlasFull) {
		t.Errorf("oversized glyph error = %v, want ErrAtlasFull", err)
	}

	// Fill the atlas with full-width rows until vertical space runs out.
	for i := 0; i < 4; i++ {
		if _, err := atlas.LoadGlyph(maskBitmap(256, 64, 0, 0)); err != nil {
			t.Fatalf("row %d failed: %v", i, err)
		}
	}
	_, err = atlas.LoadGlyph(maskBitmap(8, 8, 0, 0))
	if !errors.Is(err, glyphatlas.ErrAtlasFull) {
		t.Errorf("full atlas error = %v, want ErrAtlasFull", err)
	}
}

func TestAtlasClear(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 256)
	defer cleanup()

	if _, err := atlas.LoadGlyph(maskBitmap(100, 100, 0, 0)); err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}
	atlas.Clear()

	glyph, err := atlas.LoadGlyph(maskBitmap(8, 8, 0, 0))
	if err != nil {
		t.Fatalf("LoadGlyph after Clear failed: %v", err)
	}
	if glyph.UVLeft != 0 || glyph.UVBot != 0 {
		t.Errorf("glyph after Clear placed at (%g, %g), want origin", glyph.UVLeft, glyph.UVBot)
	}
}

func TestAtlasColoredGlyph(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 1024)
	defer cleanup()

	glyph, err := atlas.LoadGlyph(&glyphatlas.Bitmap{
		Width:    4,
		Height:   4,
		Channels: glyphatlas.ChannelsColor,
		Pixels:   make([]byte, 4*4*glyphatlas.ChannelsColor),
	})
	if err != nil {
		t.Fatalf("LoadGlyph failed: %v", err)
	}
	if !glyph.Colored {
		t.Error("color glyph not marked colored")
	}
}

func TestAtlasRejectsMalformedBitmap(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 1024)
	defer cleanup()

	_, err := atlas.LoadGlyph(&glyphatlas.Bitmap{
		Width:    4,
		Height:   4,
		Channels: glyphatlas.ChannelsMask,
		Pixels:   make([]byte, 7),
	})
	if !errors.Is(err, glyphatlas.ErrBitmapFormat) {
		t.Errorf("error = %v, want ErrBitmapFormat", err)
	}
}

func TestAtlasDestroyIdempotent(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	atlas, err := NewAtlas(device, queue, AtlasConfig{Size: 256})
	if err != nil {
		t.Fatalf("NewAtlas failed: %v", err)
	}
	atlas.Destroy()
	atlas.Destroy()

	if _, err := atlas.LoadGlyph(maskBitmap(8, 8, 0, 0)); !errors.Is(err, ErrAtlasClosed) {
		t.Errorf("LoadGlyph after Destroy = %v, want ErrAtlasClosed", err)
	}
}

func TestMaskToRGBA(t *testing.T) {
	src := []byte{10, 20, 30, 40, 50, 60}
	got := maskToRGBA(src, 2, 1)

	want := []byte{10, 20, 30, 10, 40, 50, 60, 40}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAtlasEntriesNeverOverlap(t *testing.T) {
	atlas, cleanup := newTestAtlas(t, 256)
	defer cleanup()

	type pixelRect struct{ x, y, w, h int }
	var rects []pixelRect

	size := float32(atlas.Size())
	for i := 0; ; i++ {
		// Varied glyph sizes exercise row advances and tall/short mixes.
		w := 3 + (i*7)%37
		h := 5 + (i*11)%29
		glyph, err := atlas.LoadGlyph(maskBitmap(w, h, 0, 0))
		if errors.Is(err, glyphatlas.ErrAtlasFull) {
			break
		}
		if err != nil {
			t.Fatalf("LoadGlyph %d (%dx%d) failed: %v", i, w, h, err)
		}
		rects = append(rects, pixelRect{
			x: int(glyph.UVLeft * size),
			y: int(glyph.UVBot * size),
			w: w,
			h: h,
		})
	}

	if len(rects) < 20 {
		t.Fatalf("only %d glyphs packed before the atlas filled", len(rects))
	}

	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			a, b := rects[i], rects[j]
			if a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h {
				t.Fatalf("glyph %d rect %+v overlaps glyph %d rect %+v", i, a, j, b)
			}
		}
	}
}
