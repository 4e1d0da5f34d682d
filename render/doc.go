// Package render is the public entry point for GPU glyph grid rendering.
//
// It ties the glyph cache to the GPU renderer: the host supplies a
// wgpu/hal device, queue, and a Rasterizer, and GridRenderer turns grid
// cells into frames.
//
//	gr, err := render.New(device, queue, rasterizer, render.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer gr.Destroy()
//
//	gr.Resize(glyphatlas.NewSizeInfo(800, 600, 10, 20, 5, 5))
//	gr.DrawCells(surfaceView, cells)
//
// Key principle: the renderer RECEIVES the device from the host, it
// does not create one. Window and surface management stay with the
// host application.
package render
