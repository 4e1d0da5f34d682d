package gpu

import (
	_ "embed"
)

// WGSL shader sources, compiled into the binary at build time.

//go:embed shaders/grid_text.wgsl
var gridTextShaderSource string

//go:embed shaders/rect.wgsl
var rectShaderSource string

// GetGridTextShaderSource returns the WGSL source for the grid text shader.
func GetGridTextShaderSource() string {
	return gridTextShaderSource
}

// GetRectShaderSource returns the WGSL source for the rect overlay shader.
func GetRectShaderSource() string {
	return rectShaderSource
}
