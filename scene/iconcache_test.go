package scene

import (
	"fmt"
	"image"
	"testing"
)

func quietCache(logs *[]string) *IconCache {
	return NewIconCache(func(format string, args ...any) {
		if logs != nil {
			*logs = append(*logs, fmt.Sprintf(format, args...))
		}
	})
}

func TestIconCacheMemoizes(t *testing.T) {
	c := quietCache(nil)
	a := c.Get(KindTruck, ColorStuck, IconSize)
	b := c.Get(KindTruck, ColorStuck, IconSize)
	if a != b {
		t.Error("second Get should return the cached image")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if got := a.Bounds().Size(); got != (image.Point{X: IconSize, Y: IconSize}) {
		t.Errorf("size = %v", got)
	}
	c.Get(KindTruck, ColorIdle, IconSize)
	c.Get(KindTruck, ColorStuck, OrderIconSize)
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}

func TestIconIsColored(t *testing.T) {
	c := quietCache(nil)
	img := c.Get(KindIndustry, ColorEmpty, IconSize)
	// center of the glyph lies in the solid body
	r, g, b, a := img.At(IconSize/2, IconSize/2).RGBA()
	if a>>8 < 250 || r>>8 < 240 || g>>8 > 15 || b>>8 > 15 {
		t.Errorf("center pixel = %d,%d,%d,%d, want opaque red", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestMalformedGlyphYieldsPlaceholder(t *testing.T) {
	var logs []string
	c := quietCache(&logs)
	c.Register("broken", `<svg viewBox="0 0 10 10"><path fill="{{color}}" d="M0 0 L`)

	img := c.Get("broken", "#123456", 20)
	if img == nil {
		t.Fatal("expected a placeholder, got nil")
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 20, Y: 20}) {
		t.Errorf("placeholder size = %v", got)
	}
	if _, _, _, a := img.At(10, 10).RGBA(); a != 0 {
		t.Error("placeholder should be transparent")
	}
	if len(logs) != 1 {
		t.Errorf("logs = %v", logs)
	}
	// cached: no second log line
	c.Get("broken", "#123456", 20)
	if len(logs) != 1 {
		t.Errorf("failure logged again: %v", logs)
	}

	if img := c.Get("unknown-kind", "#000000", 8); img == nil || img.Bounds().Dx() != 8 {
		t.Error("unregistered kind should also yield a placeholder")
	}
}

func TestPreload(t *testing.T) {
	c := quietCache(nil)
	keys := DefaultIconSet()
	c.Preload(keys)
	if c.Len() != len(keys) {
		t.Errorf("Len = %d, want %d", c.Len(), len(keys))
	}
	c.Preload(keys)
	if c.Len() != len(keys) {
		t.Error("preloading twice should not add entries")
	}
}

func TestIconKeyString(t *testing.T) {
	k := IconKey{Kind: KindMarker, Color: ColorOrder, Size: 24}
	if k.String() != "marker_#5459EA_24" {
		t.Errorf("key = %s", k)
	}
}
