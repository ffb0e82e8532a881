package scene

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"fleetview/config"
	"fleetview/protocol"
)

func f64(v float64) *float64 { return &v }

func newTestRenderer(opts Options) (*Renderer, *Canvas) {
	l := testLayout()
	r := NewRenderer(l, NewIconCache(func(string, ...any) {}), opts)
	return r, NewCanvas(l.Width, l.Height)
}

func rgbAt(img image.Image, x, y int) (r, g, b int) {
	cr, cg, cb, _ := img.At(x, y).RGBA()
	return int(cr >> 8), int(cg >> 8), int(cb >> 8)
}

func near(got, want, tol int) bool {
	d := got - want
	return d >= -tol && d <= tol
}

func baseSnapshot() *protocol.Snapshot {
	return &protocol.Snapshot{
		Minute: "2025-01-01T10:00:00",
		Vehicles: []protocol.Vehicle{
			{ID: 1, Plate: "TA01", X: 5, Y: 5, Status: protocol.VehicleIdle},
			{ID: 2, Plate: "TB02", X: 60, Y: 40, Status: protocol.VehicleOnTheWay,
				Route: []protocol.Position{{X: 61, Y: 40}, {X: 62, Y: 40}}},
		},
		Warehouses: []protocol.Warehouse{
			{ID: 7, Position: &protocol.Position{X: 10, Y: 10}, CurrentGLP: f64(0), MaxGLP: f64(160)},
		},
	}
}

func TestRenderRegistersHits(t *testing.T) {
	r, c := newTestRenderer(Options{})
	var hb Hitboxes
	r.Render(c, baseSnapshot(), DefaultViewport(), nil, &hb)

	if len(hb.Vehicles) != 2 || len(hb.Warehouses) != 1 || len(hb.Orders) != 0 {
		t.Fatalf("hits = %d/%d/%d, want 2/1/0", len(hb.Vehicles), len(hb.Warehouses), len(hb.Orders))
	}
	v := hb.Vehicles[0]
	if v.ID != 1 || v.Label != "TA01" {
		t.Errorf("vehicle hit = %+v", v)
	}
	cx, cy := r.Layout().ToCanvas(protocol.Position{X: 5, Y: 5})
	if v.Box.X != cx-IconSize/2 || v.Box.Y != cy-IconSize/2 || v.Box.Size != IconSize {
		t.Errorf("vehicle box = %+v, want centered on (%v,%v)", v.Box, cx, cy)
	}
	if ref, ok := v.Ref.(*protocol.Vehicle); !ok || ref.Plate != "TA01" {
		t.Errorf("vehicle ref = %#v", v.Ref)
	}
	if hb.Warehouses[0].Label != "W7" {
		t.Errorf("warehouse label = %q", hb.Warehouses[0].Label)
	}

	// a second pass replaces, not appends
	r.Render(c, baseSnapshot(), DefaultViewport(), nil, &hb)
	if hb.Len() != 3 {
		t.Errorf("after rerender Len = %d, want 3", hb.Len())
	}
}

func TestRenderFiltersOrders(t *testing.T) {
	r, c := newTestRenderer(Options{})
	snap := baseSnapshot()
	snap.Orders = []protocol.Order{
		{ID: 1, Status: protocol.OrderCompleted, GLP: 5, X: 20, Y: 20},
		{ID: 2, Status: protocol.OrderScheduled, GLP: 0, X: 25, Y: 20},
		{ID: 3, Status: protocol.OrderOnTheWay, GLP: 3, X: 30, Y: 20},
		{ID: 4, Status: "completado", GLP: 9, X: 35, Y: 20},
	}
	var hb Hitboxes
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	if len(hb.Orders) != 1 || hb.Orders[0].ID != 3 {
		t.Fatalf("orders = %+v, want only #3", hb.Orders)
	}
	cx, cy := r.Layout().ToCanvas(protocol.Position{X: 30, Y: 20})
	box := hb.Orders[0].Box
	if box.X != cx-OrderIconSize/2 || box.Y != cy-OrderIconSize || box.Size != OrderIconSize {
		t.Errorf("order box = %+v", box)
	}
}

func TestWarehouseColoring(t *testing.T) {
	r, c := newTestRenderer(Options{})
	snap := &protocol.Snapshot{
		Minute: "2025-01-01T10:00:00",
		Warehouses: []protocol.Warehouse{
			{ID: 1, Position: &protocol.Position{X: 10, Y: 10}, CurrentGLP: f64(0), MaxGLP: f64(160)},
			{ID: 2, Position: &protocol.Position{X: 30, Y: 30}, CurrentGLP: f64(80), MaxGLP: f64(160)},
		},
	}
	var hb Hitboxes
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	img := c.Image()

	// icon centers: boxes are placed at rounded canvas pixels
	if red, g, b := rgbAt(img, 274, 240); !near(red, 255, 10) || g > 10 || b > 10 {
		t.Errorf("empty warehouse pixel = %d,%d,%d, want red", red, g, b)
	}
	if red, g, b := rgbAt(img, 743, 640); red > 10 || !near(g, 200, 10) || b > 10 {
		t.Errorf("stocked warehouse pixel = %d,%d,%d, want green", red, g, b)
	}

	for _, glp := range []*float64{nil, f64(0), f64(500)} {
		w := &protocol.Warehouse{IsMain: true, CurrentGLP: glp}
		if kind, col := WarehouseIcon(w); kind != KindWarehouse || col != ColorMainWarehouse {
			t.Errorf("main warehouse icon = %s %s", kind, col)
		}
	}
}

func TestRenderNilSnapshot(t *testing.T) {
	r, c := newTestRenderer(Options{})
	var hb Hitboxes
	r.Render(c, baseSnapshot(), DefaultViewport(), nil, &hb)
	r.Render(c, nil, DefaultViewport(), nil, &hb)
	if hb.Len() != 0 {
		t.Errorf("hits after blank render = %d", hb.Len())
	}
	for _, p := range [][2]int{{157, 140}, {274, 240}, {860, 540}} {
		if red, g, b := rgbAt(c.Image(), p[0], p[1]); red != 255 || g != 255 || b != 255 {
			t.Errorf("pixel %v = %d,%d,%d, want white", p, red, g, b)
		}
	}
}

func TestBlockageWindow(t *testing.T) {
	snap := &protocol.Snapshot{
		Minute: "2025-01-01T10:00:00",
		Blockages: []protocol.Blockage{{
			ID:     1,
			Start:  "2025-01-01T12:00:00",
			End:    "2025-01-01T13:00:00",
			Points: []protocol.Position{{X: 20, Y: 20}, {X: 20, Y: 30}},
		}},
	}
	isRed := func(c *Canvas) bool {
		red, g, b := rgbAt(c.Image(), 508, 540)
		return red > 200 && g < 60 && b < 60
	}

	r, c := newTestRenderer(Options{ActiveBlockagesOnly: true})
	var hb Hitboxes
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	if isRed(c) {
		t.Error("inactive blockage was drawn")
	}

	snap.Minute = "2025-01-01T12:30:00"
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	if !isRed(c) {
		t.Error("active blockage was not drawn")
	}

	snap.Minute = "2025-01-01T10:00:00"
	r, c = newTestRenderer(Options{})
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	if !isRed(c) {
		t.Error("blockage should be drawn when window filtering is off")
	}
}

func TestHideParkedAtMain(t *testing.T) {
	snap := baseSnapshot()
	snap.Warehouses = append(snap.Warehouses, protocol.Warehouse{ID: 1, IsMain: true, Position: &protocol.Position{X: 5, Y: 5}})

	r, c := newTestRenderer(NewOptions(&config.MapConfig{HideParkedAtMain: true}))
	var hb Hitboxes
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	if len(hb.Vehicles) != 1 || hb.Vehicles[0].ID != 2 {
		t.Errorf("vehicles = %+v, want only #2", hb.Vehicles)
	}

	r, c = newTestRenderer(Options{})
	r.Render(c, snap, DefaultViewport(), nil, &hb)
	if len(hb.Vehicles) != 2 {
		t.Errorf("vehicles = %d, want 2 with hiding off", len(hb.Vehicles))
	}
}

func TestFocusRing(t *testing.T) {
	r, c := newTestRenderer(Options{})
	var hb Hitboxes
	hl := &Highlight{Kind: EntityVehicle, ID: 1}
	r.Render(c, baseSnapshot(), DefaultViewport(), hl, &hb)
	// bottom of the ring around vehicle 1 at canvas (157.1, 140)
	if red, g, b := rgbAt(c.Image(), 157, 164); !near(red, 128, 20) || !near(g, 90, 20) || !near(b, 213, 20) {
		t.Errorf("ring pixel = %d,%d,%d, want focus purple", red, g, b)
	}
	r.Render(c, baseSnapshot(), DefaultViewport(), nil, &hb)
	if red, g, b := rgbAt(c.Image(), 157, 164); near(red, 128, 20) && near(g, 90, 20) && near(b, 213, 20) {
		t.Error("ring drawn without a highlight")
	}
}

func TestVehicleHeading(t *testing.T) {
	at := func(route ...protocol.Position) *protocol.Vehicle {
		return &protocol.Vehicle{X: 10, Y: 10, Route: route}
	}
	l := testLayout()
	cases := []struct {
		name string
		v    *protocol.Vehicle
		want Heading
	}{
		{"no route", at(), HeadingRight},
		{"east", at(protocol.Position{X: 12, Y: 10}), HeadingRight},
		{"west", at(protocol.Position{X: 8, Y: 10}), HeadingLeft},
		{"south on screen", at(protocol.Position{X: 10, Y: 12}), HeadingDown},
		{"north on screen", at(protocol.Position{X: 10, Y: 8}), HeadingUp},
		{"first waypoint is current", at(protocol.Position{X: 10, Y: 10}, protocol.Position{X: 8, Y: 10}), HeadingLeft},
		{"only current", at(protocol.Position{X: 10, Y: 10}), HeadingRight},
	}
	for _, tc := range cases {
		if got := VehicleHeading(l, tc.v); got != tc.want {
			t.Errorf("%s: heading = %v, want %v", tc.name, got, tc.want)
		}
	}

	l.InvertY = true
	if got := VehicleHeading(l, at(protocol.Position{X: 10, Y: 12})); got != HeadingUp {
		t.Errorf("inverted: heading = %v, want up", got)
	}
}

func TestEncodePNG(t *testing.T) {
	r, c := newTestRenderer(Options{})
	var hb Hitboxes
	r.Render(c, baseSnapshot(), Viewport{PanX: 30, PanY: -20, Zoom: 1.5}, nil, &hb)
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1720 || b.Dy() != 1080 {
		t.Errorf("bounds = %v", b)
	}
}
