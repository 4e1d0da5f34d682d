package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// Atlas-related errors.
var (
	// ErrAtlasClosed is returned when operating on a destroyed atlas.
	ErrAtlasClosed = errors.New("gpu: glyph atlas is destroyed")
)

// Default atlas settings.
const (
	// DefaultAtlasSize is the default atlas dimension (1024x1024).
	DefaultAtlasSize = 1024

	// MinAtlasSize is the minimum atlas dimension (256x256).
	MinAtlasSize = 256
)

// AtlasConfig holds configuration for creating an Atlas.
type AtlasConfig struct {
	// Size is the atlas dimension in pixels (the atlas is square).
	// Defaults to DefaultAtlasSize.
	Size int

	// Label is an optional debug label for GPU objects.
	Label string
}

// DefaultAtlasConfig returns the default atlas configuration.
func DefaultAtlasConfig() AtlasConfig {
	return AtlasConfig{
		Size:  DefaultAtlasSize,
		Label: "glyph_atlas",
	}
}

// Atlas is a single square RGBA texture that packs rasterized glyph
// bitmaps using a shelf (row) packing strategy. Glyphs are appended
// left to right on the current row; when a glyph does not fit
// horizontally the packer advances to a fresh row above the tallest
// glyph seen so far. There is no per-glyph eviction: when the atlas
// runs out of vertical space LoadGlyph returns glyphatlas.ErrAtlasFull
// and the caller is expected to Clear and re-upload.
//
// Atlas implements glyphatlas.GlyphLoader. It is safe for concurrent use.
type Atlas struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	texture hal.Texture
	view    hal.TextureView

	size  int
	label string

	// Shelf packing state.
	rowExtent   int // next free X on the current row
	rowBaseline int // top Y of the current row
	rowTallest  int // height of the tallest glyph on the current row

	closed bool
}

// NewAtlas creates the atlas texture and view on the given device.
func NewAtlas(device hal.Device, queue hal.Queue, config AtlasConfig) (*Atlas, error) {
	size := config.Size
	if size < MinAtlasSize {
		size = DefaultAtlasSize
	}
	label := config.Label
	if label == "" {
		label = "glyph_atlas"
	}

	dim := uint32(size) //nolint:gosec // size clamped above

	texture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: dim, Height: dim, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create atlas texture: %w", err)
	}

	view, err := device.CreateTextureView(texture, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(texture)
		return nil, fmt.Errorf("create atlas texture view: %w", err)
	}

	slogger().Debug("glyph atlas created", "size", size, "label", label)

	return &Atlas{
		device:  device,
		queue:   queue,
		texture: texture,
		view:    view,
		size:    size,
		label:   label,
	}, nil
}

// Size returns the atlas dimension in pixels.
func (a *Atlas) Size() int {
	return a.size
}

// View returns the texture view for binding in a render pass.
func (a *Atlas) View() hal.TextureView {
	return a.view
}

// LoadGlyph uploads a rasterized bitmap into the atlas and returns its
// placement. Zero-area bitmaps (whitespace) produce an empty glyph
// without consuming atlas space.
//
// Returns an error wrapping glyphatlas.ErrAtlasFull when no row can
// hold the bitmap.
func (a *Atlas) LoadGlyph(bitmap *glyphatlas.Bitmap) (glyphatlas.Glyph, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return glyphatlas.Glyph{}, ErrAtlasClosed
	}

	if bitmap.Width == 0 || bitmap.Height == 0 {
		return glyphatlas.Glyph{}, nil
	}
	if err := bitmap.Validate(); err != nil {
		return glyphatlas.Glyph{}, err
	}

	x, y, err := a.reserveLocked(bitmap.Width, bitmap.Height)
	if err != nil {
		return glyphatlas.Glyph{}, err
	}

	a.uploadLocked(x, y, bitmap)

	denom := float32(a.size)
	return glyphatlas.Glyph{
		Top:      int16(bitmap.Top),    //nolint:gosec // glyph metrics fit int16
		Left:     int16(bitmap.Left),   //nolint:gosec
		Width:    int16(bitmap.Width),  //nolint:gosec
		Height:   int16(bitmap.Height), //nolint:gosec
		UVLeft:   float32(x) / denom,
		UVBot:    float32(y) / denom,
		UVWidth:  float32(bitmap.Width) / denom,
		UVHeight: float32(bitmap.Height) / denom,
		Colored:  bitmap.Colored(),
	}, nil
}

// reserveLocked finds space for a width x height rectangle and advances
// the packing cursor. Callers must hold a.mu.
func (a *Atlas) reserveLocked(width, height int) (x, y int, err error) {
	if width > a.size || height > a.size {
		return 0, 0, fmt.Errorf("%dx%d glyph exceeds %dx%d atlas: %w",
			width, height, a.size, a.size, glyphatlas.ErrAtlasFull)
	}

	// Advance to a new row when the current one has no horizontal room.
	if a.rowExtent+width > a.size {
		a.rowBaseline += a.rowTallest
		a.rowExtent = 0
		a.rowTallest = 0
	}

	if a.rowBaseline+height > a.size {
		return 0, 0, fmt.Errorf("no row can hold %dx%d glyph: %w",
			width, height, glyphatlas.ErrAtlasFull)
	}

	x = a.rowExtent
	y = a.rowBaseline

	a.rowExtent += width
	if height > a.rowTallest {
		a.rowTallest = height
	}

	return x, y, nil
}

// uploadLocked writes the bitmap pixels into the reserved sub-rectangle.
// Mask bitmaps (3 channels) are expanded to RGBA before upload.
func (a *Atlas) uploadLocked(x, y int, bitmap *glyphatlas.Bitmap) {
	pixels := bitmap.Pixels
	if bitmap.Channels == glyphatlas.ChannelsMask {
		pixels = maskToRGBA(pixels, bitmap.Width, bitmap.Height)
	}

	w := uint32(bitmap.Width)  //nolint:gosec // validated against atlas size
	h := uint32(bitmap.Height) //nolint:gosec

	a.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  a.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(x), Y: uint32(y)}, //nolint:gosec
			Aspect:   gputypes.TextureAspectAll,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// Clear resets the packing state so the whole atlas is free again.
// Texture contents are left stale; callers re-upload every glyph they
// still need, which overwrites old pixels before they can be sampled.
func (a *Atlas) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rowExtent = 0
	a.rowBaseline = 0
	a.rowTallest = 0

	slogger().Debug("glyph atlas cleared", "label", a.label)
}

// Destroy releases the GPU texture. The atlas must not be used after.
func (a *Atlas) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true

	if a.view != nil {
		a.device.DestroyTextureView(a.view)
		a.view = nil
	}
	if a.texture != nil {
		a.device.DestroyTexture(a.texture)
		a.texture = nil
	}
}

// maskToRGBA expands 3-channel subpixel mask coverage to RGBA, filling
// alpha with the red channel so colored and mask glyphs share one
// texture format.
func maskToRGBA(src []byte, width, height int) []byte {
	dst := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		dst[i*4+0] = src[i*3+0]
		dst[i*4+1] = src[i*3+1]
		dst[i*4+2] = src[i*3+2]
		dst[i*4+3] = src[i*3+0]
	}
	return dst
}
