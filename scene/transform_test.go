package scene

import (
	"math"
	"testing"

	"fleetview/config"
	"fleetview/protocol"
)

const eps = 1e-9

func testLayout() Layout {
	return NewLayout(&config.Defaults().Map)
}

func TestLayoutScale(t *testing.T) {
	s := testLayout().Scale()
	if s.Margin != 40 {
		t.Errorf("margin = %v", s.Margin)
	}
	if math.Abs(s.X-(1720.0-80)/70) > eps || math.Abs(s.Y-(1080.0-80)/50) > eps {
		t.Errorf("scale = %+v", s)
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	viewports := []Viewport{
		DefaultViewport(),
		{PanX: 120, PanY: -45, Zoom: 2.5},
		{PanX: -300, PanY: 80, Zoom: MinZoom},
		{PanX: 13.7, PanY: 0.3, Zoom: MaxZoom},
	}
	for _, invert := range []bool{false, true} {
		l := testLayout()
		l.InvertY = invert
		for _, vp := range viewports {
			for x := 0.0; x <= float64(l.GridLength); x += 3.5 {
				for y := 0.0; y <= float64(l.GridWidth); y += 2.5 {
					cx, cy := l.ToCanvas(protocol.Position{X: x, Y: y})
					sx, sy := vp.ToScreen(cx, cy)
					wx, wy := vp.ToWorld(sx, sy)
					got := l.ToGrid(wx, wy)
					if math.Abs(got.X-x) > 1e-6 || math.Abs(got.Y-y) > 1e-6 {
						t.Fatalf("invert=%v vp=%+v: (%v,%v) -> (%v,%v)", invert, vp, x, y, got.X, got.Y)
					}
				}
			}
		}
	}
}

func TestInvertY(t *testing.T) {
	l := testLayout()
	_, top := l.ToCanvas(protocol.Position{X: 0, Y: 0})
	l.InvertY = true
	_, bottom := l.ToCanvas(protocol.Position{X: 0, Y: 0})
	if top != l.Margin {
		t.Errorf("non-inverted y(0) = %v, want margin", top)
	}
	if math.Abs(bottom-(float64(l.Height)-l.Margin)) > eps {
		t.Errorf("inverted y(0) = %v, want %v", bottom, float64(l.Height)-l.Margin)
	}
}

func TestClientToCanvas(t *testing.T) {
	// canvas shown at half size
	x, y := ClientToCanvas(430, 270, Display{Width: 860, Height: 540}, 1720, 1080)
	if x != 860 || y != 540 {
		t.Errorf("got (%v,%v), want (860,540)", x, y)
	}
	// no display size: native pixels
	x, y = ClientToCanvas(12, 34, Display{}, 1720, 1080)
	if x != 12 || y != 34 {
		t.Errorf("got (%v,%v), want (12,34)", x, y)
	}
}
