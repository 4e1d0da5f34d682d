package glyphatlas

import (
	"errors"
	"fmt"
)

// Rasterization errors.
var (
	// ErrMissingGlyph is returned by a Rasterizer when no font provides the
	// requested glyph. The glyph cache substitutes a placeholder glyph
	// instead of failing the frame.
	ErrMissingGlyph = errors.New("glyphatlas: missing glyph")

	// ErrBitmapFormat is returned when a bitmap's pixel data does not match
	// its declared dimensions and channel count.
	ErrBitmapFormat = errors.New("glyphatlas: bitmap size does not match dimensions")
)

// FontStyle selects one of the four standard style variants of a font.
type FontStyle uint8

const (
	StyleRegular FontStyle = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

// String returns a human-readable name for the style.
func (s FontStyle) String() string {
	switch s {
	case StyleRegular:
		return "Regular"
	case StyleBold:
		return "Bold"
	case StyleItalic:
		return "Italic"
	case StyleBoldItalic:
		return "Bold Italic"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// GlyphKey uniquely identifies a rasterized glyph: a character in a given
// style. The key is used both to query the Rasterizer and to cache the
// resulting atlas entry.
type GlyphKey struct {
	// Character is the code point to rasterize.
	Character rune

	// Style selects the font variant.
	Style FontStyle
}

// Bitmap channel counts.
const (
	// ChannelsMask is a 3-channel RGB bitmap whose channels are a
	// grayscale/subpixel coverage mask.
	ChannelsMask = 3

	// ChannelsColor is a 4-channel bitmap holding premultiplied RGBA color
	// texels (emoji and other color-font glyphs).
	ChannelsColor = 4
)

// Bitmap is a pre-rasterized glyph image plus its placement metrics,
// produced by a Rasterizer and uploaded verbatim into the atlas texture.
//
// Top and Left position the bitmap relative to the cell origin: Left is
// the horizontal bearing and Top is the distance from the cell's baseline
// reference to the bitmap's top edge, matching the glyph-box fields of the
// instance record.
type Bitmap struct {
	Width  int
	Height int
	Top    int
	Left   int

	// Channels is ChannelsMask or ChannelsColor.
	Channels int

	// Pixels holds Width*Height*Channels bytes in row-major order.
	Pixels []byte
}

// Validate checks that the pixel slice matches the declared geometry.
func (b *Bitmap) Validate() error {
	if b.Channels != ChannelsMask && b.Channels != ChannelsColor {
		return fmt.Errorf("%w: channels must be %d or %d, got %d",
			ErrBitmapFormat, ChannelsMask, ChannelsColor, b.Channels)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrBitmapFormat, b.Width, b.Height)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pixels) != want {
		return fmt.Errorf("%w: %dx%dx%d wants %d bytes, got %d",
			ErrBitmapFormat, b.Width, b.Height, b.Channels, want, len(b.Pixels))
	}
	return nil
}

// Colored reports whether the bitmap holds premultiplied color texels.
func (b *Bitmap) Colored() bool { return b.Channels == ChannelsColor }

// Rasterizer produces glyph bitmaps on demand. Implementations wrap a font
// engine; the renderer itself never touches font data.
//
// Rasterize returns ErrMissingGlyph (possibly wrapped) when no font covers
// the requested glyph; the glyph cache then falls back to a placeholder
// rather than failing the frame. Any other error also degrades to a blank
// placeholder.
type Rasterizer interface {
	Rasterize(key GlyphKey) (Bitmap, error)
}
