package gpu

import (
	"log/slog"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// slogger returns the library logger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return glyphatlas.Logger() }
