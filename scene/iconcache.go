package scene

import (
	"fmt"
	"image"
	"log"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type LogFunc func(format string, args ...any)

// IconKey identifies one rasterized glyph.
type IconKey struct {
	Kind  Kind
	Color string
	Size  int
}

func (k IconKey) String() string {
	return fmt.Sprintf("%s_%s_%d", k.Kind, k.Color, k.Size)
}

// IconCache rasterizes colored glyphs on first use and keeps them for the
// life of the process. Entries are never evicted.
type IconCache struct {
	mu     sync.Mutex
	glyphs map[Kind]string
	icons  map[IconKey]*image.RGBA
	logFn  LogFunc
}

func NewIconCache(logFn LogFunc) *IconCache {
	if logFn == nil {
		logFn = log.Printf
	}
	c := &IconCache{
		glyphs: make(map[Kind]string, len(builtinGlyphs)),
		icons:  make(map[IconKey]*image.RGBA),
		logFn:  logFn,
	}
	for k, svg := range builtinGlyphs {
		c.glyphs[k] = svg
	}
	return c
}

// Register installs or replaces the SVG source of a glyph kind. Icons
// already rasterized for that kind are kept.
func (c *IconCache) Register(kind Kind, svg string) {
	c.mu.Lock()
	c.glyphs[kind] = svg
	c.mu.Unlock()
}

// Get returns the icon for the key, rasterizing it on first request. A glyph
// that fails to rasterize yields a transparent placeholder of the requested
// size, which is cached like any other icon.
func (c *IconCache) Get(kind Kind, color string, size int) image.Image {
	key := IconKey{Kind: kind, Color: color, Size: size}
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.icons[key]; ok {
		return img
	}
	img, err := rasterize(c.glyphs[kind], color, size)
	if err != nil {
		c.logFn("scene: icon %s: %v", key, err)
		img = placeholder(size)
	}
	c.icons[key] = img
	return img
}

// Preload rasterizes every key up front so frames never pay for it.
func (c *IconCache) Preload(keys []IconKey) {
	for _, k := range keys {
		c.Get(k.Kind, k.Color, k.Size)
	}
}

func (c *IconCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.icons)
}

// DefaultIconSet lists every icon the renderer can ask for.
func DefaultIconSet() []IconKey {
	var keys []IconKey
	for _, col := range []string{ColorNeutral, ColorMainWarehouse} {
		keys = append(keys, IconKey{KindWarehouse, col, IconSize})
	}
	for _, col := range []string{ColorNeutral, ColorEmpty, ColorStocked} {
		keys = append(keys, IconKey{KindIndustry, col, IconSize})
	}
	for _, col := range []string{ColorOrder, ColorOrderFocus} {
		keys = append(keys, IconKey{KindMarker, col, OrderIconSize})
		keys = append(keys, IconKey{KindMarker, col, IconSize})
	}
	for _, col := range []string{ColorIdle, ColorStuck, ColorMaintenance, ColorMoving, ColorNeutral} {
		keys = append(keys, IconKey{KindTruck, col, IconSize})
	}
	return keys
}

func rasterize(svg, color string, size int) (img *image.RGBA, err error) {
	if svg == "" {
		return nil, fmt.Errorf("no glyph registered")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("rasterize: %v", r)
		}
	}()
	src := strings.ReplaceAll(svg, colorToken, color)
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse glyph: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))
	img = image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1)
	return img, nil
}

func placeholder(size int) *image.RGBA {
	if size <= 0 {
		size = 1
	}
	return image.NewRGBA(image.Rect(0, 0, size, size))
}
