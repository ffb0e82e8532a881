package scene

import (
	"math"
	"testing"
	"time"
)

func overlapping() *Hitboxes {
	box := Box{X: 100, Y: 100, Size: 32}
	return &Hitboxes{
		Orders:     []Hit{{Kind: EntityOrder, ID: 3, Box: box}},
		Warehouses: []Hit{{Kind: EntityWarehouse, ID: 2, Box: box}},
		Vehicles:   []Hit{{Kind: EntityVehicle, ID: 1, Box: box}},
	}
}

func TestResolvePriority(t *testing.T) {
	hb := overlapping()
	if hit, ok := hb.Resolve(110, 110); !ok || hit.Kind != EntityVehicle {
		t.Errorf("got %+v, want vehicle", hit)
	}
	hb.Vehicles = nil
	if hit, ok := hb.Resolve(110, 110); !ok || hit.Kind != EntityWarehouse {
		t.Errorf("got %+v, want warehouse", hit)
	}
	hb.Warehouses = nil
	if hit, ok := hb.Resolve(110, 110); !ok || hit.Kind != EntityOrder {
		t.Errorf("got %+v, want order", hit)
	}
	if _, ok := hb.Resolve(99, 110); ok {
		t.Error("point outside every box should miss")
	}
}

func TestSelectionIsExclusive(t *testing.T) {
	hb := &Hitboxes{
		Vehicles:   []Hit{{Kind: EntityVehicle, ID: 1, Box: Box{X: 0, Y: 0, Size: 32}}},
		Warehouses: []Hit{{Kind: EntityWarehouse, ID: 9, Box: Box{X: 200, Y: 200, Size: 32}}},
	}
	var s Selector
	vp := DefaultViewport()

	if sel := s.Click(10, 10, vp, hb); sel == nil || sel.Kind != EntityVehicle {
		t.Fatalf("first click = %+v", sel)
	}
	sel := s.Click(210, 210, vp, hb)
	if sel == nil || sel.Kind != EntityWarehouse || sel.ID != 9 {
		t.Fatalf("second click = %+v", sel)
	}
	if cur := s.Current(); cur == nil || cur.Kind != EntityWarehouse {
		t.Errorf("current = %+v, want only the warehouse", cur)
	}

	if sel := s.Click(600, 600, vp, hb); sel != nil {
		t.Errorf("miss returned %+v", sel)
	}
	if s.Current() != nil {
		t.Error("a miss should clear the selection")
	}
}

func TestSelectionAnchor(t *testing.T) {
	hb := &Hitboxes{Vehicles: []Hit{{Kind: EntityVehicle, ID: 1, Box: Box{X: 100, Y: 50, Size: 32}}}}
	vp := Viewport{PanX: 40, PanY: -10, Zoom: 2}
	var s Selector

	// box center (116,66) lands at screen (272,122)
	sel := s.Click(272, 122, vp, hb)
	if sel == nil {
		t.Fatal("expected a hit")
	}
	if sel.AnchorX != 272 || sel.AnchorY != 122 {
		t.Errorf("anchor = (%v,%v), want (272,122)", sel.AnchorX, sel.AnchorY)
	}
	if s.Click(239, 122, vp, hb) != nil {
		t.Error("click left of the zoomed box should miss")
	}
}

func TestClickScaledDisplay(t *testing.T) {
	l := testLayout()
	hb := &Hitboxes{Warehouses: []Hit{{Kind: EntityWarehouse, ID: 4, Box: Box{X: 800, Y: 500, Size: 32}}}}
	d := Display{Width: 860, Height: 540}
	var s Selector
	// canvas shown at half size: client (408,258) is canvas (816,516)
	x, y := ClientToCanvas(408, 258, d, l.Width, l.Height)
	if sel := s.Click(x, y, DefaultViewport(), hb); sel == nil || sel.ID != 4 {
		t.Errorf("got %+v", sel)
	}
	if s.Click(816, 516, DefaultViewport(), &Hitboxes{}) != nil {
		t.Error("click on empty hit-boxes should miss")
	}
}

func TestFocusWindow(t *testing.T) {
	var f Focus
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if f.Active(now) != nil {
		t.Error("zero focus should be inactive")
	}
	f.Set(Highlight{Kind: EntityOrder, ID: 5}, now, 3*time.Second)
	if h := f.Active(now.Add(2 * time.Second)); h == nil || h.ID != 5 {
		t.Errorf("active = %+v", h)
	}
	if f.Active(now.Add(3*time.Second)) != nil {
		t.Error("focus should expire after its window")
	}
	f.Set(Highlight{Kind: EntityVehicle, ID: 1}, now, time.Second)
	f.Clear()
	if f.Pending(now) {
		t.Error("cleared focus still pending")
	}
}

func TestBoxContainsEdges(t *testing.T) {
	b := Box{X: 1.5, Y: 2.5, Size: 10}
	for _, p := range [][2]float64{{1.5, 2.5}, {11.5, 12.5}, {6, 7}} {
		if !b.Contains(p[0], p[1]) {
			t.Errorf("%v should be inside", p)
		}
	}
	if b.Contains(math.Nextafter(1.5, 0), 5) {
		t.Error("point left of the box should be outside")
	}
}

func TestSelectionRefresh(t *testing.T) {
	truck := &struct{ GLP int }{GLP: 10}
	hb := &Hitboxes{Vehicles: []Hit{{Kind: EntityVehicle, ID: 1, Label: "TA01", Box: Box{X: 0, Y: 0, Size: 32}, Ref: truck}}}
	vp := DefaultViewport()
	var s Selector
	if s.Click(10, 10, vp, hb) == nil {
		t.Fatal("expected a hit")
	}

	// same frame again: nothing to report
	if s.Refresh(vp, hb) {
		t.Error("unchanged frame reported a selection change")
	}

	// the vehicle moved in the next frame
	hb.Vehicles[0].Box = Box{X: 100, Y: 0, Size: 32}
	if !s.Refresh(vp, hb) {
		t.Fatal("move not reported")
	}
	if cur := s.Current(); cur == nil || cur.AnchorX != 116 || cur.AnchorY != 16 {
		t.Fatalf("selection = %+v, want anchor (116,16)", cur)
	}

	// panned view: the anchor follows the viewport
	panned := Viewport{PanX: 50, PanY: 20, Zoom: 1}
	if !s.Refresh(panned, hb) {
		t.Fatal("pan not reported")
	}
	if cur := s.Current(); cur.AnchorX != 166 || cur.AnchorY != 36 {
		t.Errorf("anchor = (%v,%v), want (166,36)", cur.AnchorX, cur.AnchorY)
	}

	// newer snapshot data at the same spot
	hb.Vehicles[0].Ref = &struct{ GLP int }{GLP: 5}
	if !s.Refresh(panned, hb) || s.Current().Ref != hb.Vehicles[0].Ref {
		t.Error("new entity data not picked up")
	}

	hb.Vehicles = nil
	if !s.Refresh(panned, hb) || s.Current() != nil {
		t.Error("selection should clear when its entity disappears")
	}
	if s.Refresh(panned, hb) {
		t.Error("refreshing an empty selection reports nothing")
	}
}
