package glyphatlas

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrAtlasFull is reported (wrapped) by a GlyphLoader when no free atlas
// rectangle can hold a new glyph bitmap. The glyph cache recovers by
// resetting the loader and re-loading; it is not a frame-fatal error.
var ErrAtlasFull = errors.New("glyphatlas: texture atlas is full")

// Glyph locates a rasterized glyph inside the atlas texture. The pixel box
// (Left/Top/Width/Height) positions the quad within its cell; the UV
// rectangle addresses the glyph's texels in normalized atlas coordinates.
//
// Glyphs are value types; the cache hands out copies and the renderer
// encodes them directly into instance records.
type Glyph struct {
	Top    int16
	Left   int16
	Width  int16
	Height int16

	UVLeft   float32
	UVBot    float32
	UVWidth  float32
	UVHeight float32

	// Colored marks glyphs whose atlas texels are premultiplied RGBA
	// colors rather than a coverage mask.
	Colored bool
}

// GlyphLoader copies a rasterized glyph bitmap into graphics memory and
// returns where it landed. The GPU atlas implements this interface; the
// cache stays free of GPU imports.
type GlyphLoader interface {
	// LoadGlyph uploads the bitmap and registers its atlas entry.
	// Returns an error wrapping ErrAtlasFull when no space remains.
	LoadGlyph(bitmap *Bitmap) (Glyph, error)

	// Clear resets all loader state, invalidating every Glyph it has
	// returned so far.
	Clear()
}

// missingGlyphKey caches the shared placeholder for glyphs no font covers.
// Character zero never occurs in real cell content.
func missingGlyphKey(style FontStyle) GlyphKey {
	return GlyphKey{Character: 0, Style: style}
}

// cacheEntry is a node in the LRU list.
type cacheEntry struct {
	key   GlyphKey
	glyph Glyph

	prev *cacheEntry
	next *cacheEntry
}

// GlyphCacheConfig holds configuration for GlyphCache.
type GlyphCacheConfig struct {
	// MaxEntries is the maximum number of cached glyphs tracked on the CPU
	// side. Default: 4096.
	MaxEntries int
}

// DefaultGlyphCacheConfig returns the default cache configuration.
func DefaultGlyphCacheConfig() GlyphCacheConfig {
	return GlyphCacheConfig{MaxEntries: 4096}
}

// GlyphCacheStats holds cache counters.
type GlyphCacheStats struct {
	Hits      atomic.Uint64
	Misses    atomic.Uint64
	Resets    atomic.Uint64
	Evictions atomic.Uint64
}

// GlyphCache keeps rasterized glyphs resident in graphics memory. Get is
// idempotent: looking up the same key twice returns the same Glyph unless
// an atlas reset occurred in between.
//
// The cache owns the CPU-side bookkeeping only; the actual texels live in
// whatever GlyphLoader is passed to Get. Entries are tracked in LRU order
// so capacity pressure evicts the least recently drawn glyphs first.
//
// GlyphCache is safe for concurrent use, though rendering itself is
// single-threaded; the lock exists so hosts can inspect or warm the cache
// from other goroutines.
type GlyphCache struct {
	mu sync.Mutex

	rasterizer Rasterizer

	entries map[GlyphKey]*cacheEntry
	head    *cacheEntry // most recently used
	tail    *cacheEntry // least recently used

	maxEntries int

	stats GlyphCacheStats
}

// NewGlyphCache creates a glyph cache backed by the given rasterizer.
func NewGlyphCache(rasterizer Rasterizer) *GlyphCache {
	return NewGlyphCacheWithConfig(rasterizer, DefaultGlyphCacheConfig())
}

// NewGlyphCacheWithConfig creates a glyph cache with explicit configuration.
func NewGlyphCacheWithConfig(rasterizer Rasterizer, config GlyphCacheConfig) *GlyphCache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultGlyphCacheConfig().MaxEntries
	}
	return &GlyphCache{
		rasterizer: rasterizer,
		entries:    make(map[GlyphKey]*cacheEntry, config.MaxEntries),
		maxEntries: config.MaxEntries,
	}
}

// Get returns the atlas entry for the glyph, rasterizing and uploading it
// through the loader on first use.
//
// A glyph the rasterizer cannot produce degrades to a shared placeholder
// cached under a reserved key; a full atlas triggers one reset-and-retry.
// Get never fails the frame: the worst outcome is a zero-size blank glyph.
func (c *GlyphCache) Get(key GlyphKey, loader GlyphLoader) Glyph {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.moveToFront(e)
		c.stats.Hits.Add(1)
		return e.glyph
	}
	c.stats.Misses.Add(1)

	bitmap, err := c.rasterizer.Rasterize(key)
	if err != nil {
		if !errors.Is(err, ErrMissingGlyph) {
			Logger().Warn("glyph rasterization failed",
				"char", string(key.Character), "style", key.Style.String(), "err", err)
		}
		glyph := c.missingGlyphLocked(key.Style, loader)
		c.insertLocked(key, glyph)
		return glyph
	}

	glyph := c.loadLocked(&bitmap, loader)
	c.insertLocked(key, glyph)
	return glyph
}

// PrefetchASCII warms the cache with the printable ASCII range for all
// four font styles, so the first frame does not stall on rasterization.
func (c *GlyphCache) PrefetchASCII(loader GlyphLoader) {
	for _, style := range []FontStyle{StyleRegular, StyleBold, StyleItalic, StyleBoldItalic} {
		for ch := rune(' '); ch <= '~'; ch++ {
			c.Get(GlyphKey{Character: ch, Style: style}, loader)
		}
	}
}

// Reset clears the loader's atlas and all cached entries. Every Glyph
// previously returned becomes invalid.
func (c *GlyphCache) Reset(loader GlyphLoader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(loader)
}

// Len returns the number of cached glyphs.
func (c *GlyphCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a pointer to the cache counters.
func (c *GlyphCache) Stats() *GlyphCacheStats { return &c.stats }

// loadLocked uploads a bitmap through the loader, resetting the atlas and
// retrying once if it is full.
func (c *GlyphCache) loadLocked(bitmap *Bitmap, loader GlyphLoader) Glyph {
	glyph, err := loader.LoadGlyph(bitmap)
	if err == nil {
		return glyph
	}
	if !errors.Is(err, ErrAtlasFull) {
		Logger().Warn("glyph upload failed", "err", err)
		return Glyph{}
	}

	// The shelf packer cannot reclaim individual rectangles, so a full
	// atlas is recovered by dropping everything and re-loading on demand.
	Logger().Info("atlas full, resetting glyph cache",
		"entries", len(c.entries))
	c.resetLocked(loader)

	glyph, err = loader.LoadGlyph(bitmap)
	if err != nil {
		// Bitmap larger than the atlas itself; render it as a blank.
		Logger().Warn("glyph does not fit empty atlas, rendering blank",
			"width", bitmap.Width, "height", bitmap.Height, "err", err)
		return Glyph{}
	}
	return glyph
}

// missingGlyphLocked returns the cached placeholder glyph for the style,
// loading a zero-size bitmap the first time.
func (c *GlyphCache) missingGlyphLocked(style FontStyle, loader GlyphLoader) Glyph {
	key := missingGlyphKey(style)
	if e, ok := c.entries[key]; ok {
		c.moveToFront(e)
		return e.glyph
	}
	blank := Bitmap{Channels: ChannelsMask}
	glyph := c.loadLocked(&blank, loader)
	c.insertLocked(key, glyph)
	return glyph
}

func (c *GlyphCache) resetLocked(loader GlyphLoader) {
	loader.Clear()
	c.entries = make(map[GlyphKey]*cacheEntry, c.maxEntries)
	c.head = nil
	c.tail = nil
	c.stats.Resets.Add(1)
}

func (c *GlyphCache) insertLocked(key GlyphKey, glyph Glyph) {
	if e, ok := c.entries[key]; ok {
		e.glyph = glyph
		c.moveToFront(e)
		return
	}
	for len(c.entries) >= c.maxEntries && c.tail != nil {
		c.removeTail()
		c.stats.Evictions.Add(1)
	}
	e := &cacheEntry{key: key, glyph: glyph}
	c.entries[key] = e
	c.addToFront(e)
}

func (c *GlyphCache) addToFront(e *cacheEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *GlyphCache) moveToFront(e *cacheEntry) {
	if c.head == e {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.tail == e {
		c.tail = e.prev
	}
	c.addToFront(e)
}

func (c *GlyphCache) removeTail() {
	e := c.tail
	if e == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = nil
	}
	c.tail = e.prev
	if c.head == e {
		c.head = nil
	}
	delete(c.entries, e.key)
}
