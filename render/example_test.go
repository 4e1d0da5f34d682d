package render_test

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	glyphatlas "github.com/jason5122/glyph-atlas"
	"github.com/jason5122/glyph-atlas/render"
)

// demoRasterizer returns a fixed bitmap for every printable character.
type demoRasterizer struct{}

func (demoRasterizer) Rasterize(key glyphatlas.GlyphKey) (glyphatlas.Bitmap, error) {
	if key.Character < ' ' || key.Character > '~' {
		return glyphatlas.Bitmap{}, glyphatlas.ErrMissingGlyph
	}
	return glyphatlas.Bitmap{
		Width:    8,
		Height:   14,
		Top:      14,
		Channels: glyphatlas.ChannelsMask,
		Pixels:   make([]byte, 8*14*glyphatlas.ChannelsMask),
	}, nil
}

// Example renders one line of text into an offscreen texture using the
// noop backend. A real host would pass its window surface view instead.
func Example() {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		panic(err)
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		panic(err)
	}
	device, queue := openDev.Device, openDev.Queue
	defer device.Destroy()

	gr, err := render.New(device, queue, demoRasterizer{}, render.DefaultConfig())
	if err != nil {
		panic(err)
	}
	defer gr.Destroy()

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen",
		Size:          hal.Extent3D{Width: 800, Height: 600, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	defer device.DestroyTexture(tex)
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "offscreen_view"})
	if err != nil {
		panic(err)
	}
	defer device.DestroyTextureView(view)

	if err := gr.Resize(glyphatlas.NewSizeInfo(800, 600, 10, 20, 5, 5)); err != nil {
		panic(err)
	}

	text := "hello"
	cells := make([]glyphatlas.GridCell, len(text))
	for i, ch := range text {
		cells[i] = glyphatlas.GridCell{
			Col:     uint16(i),
			Row:     0,
			Key:     glyphatlas.GlyphKey{Character: ch, Style: glyphatlas.StyleRegular},
			Fg:      glyphatlas.RGB{R: 220, G: 220, B: 220},
			Bg:      glyphatlas.RGB{R: 30, G: 30, B: 30},
			BgAlpha: 1,
		}
	}
	if err := gr.DrawCells(view, cells); err != nil {
		panic(err)
	}

	fmt.Println("rendered", len(cells), "cells")
	// Output: rendered 5 cells
}
