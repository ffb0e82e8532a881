package scene

import (
	"fmt"
	"math"
	"time"

	"fleetview/config"
	"fleetview/protocol"

	"github.com/fogleman/gg"
)

// Options toggles optional parts of the scene.
type Options struct {
	// HideParkedAtMain skips vehicles standing on the main warehouse.
	HideParkedAtMain bool
	// ActiveBlockagesOnly skips blockages whose validity window does not
	// contain the snapshot minute.
	ActiveBlockagesOnly bool
}

func NewOptions(cfg *config.MapConfig) Options {
	return Options{
		HideParkedAtMain:    cfg.HideParkedAtMain,
		ActiveBlockagesOnly: cfg.ActiveBlockagesOnly,
	}
}

// Renderer paints snapshots onto canvases. It holds no per-frame state and
// may be shared by any number of canvases.
type Renderer struct {
	layout Layout
	icons  *IconCache
	opts   Options
}

func NewRenderer(layout Layout, icons *IconCache, opts Options) *Renderer {
	return &Renderer{layout: layout, icons: icons, opts: opts}
}

func (r *Renderer) Layout() Layout { return r.layout }

// Render draws snap under vp and rebuilds hb from what was drawn. A nil
// snapshot leaves a blank canvas and an empty registry.
func (r *Renderer) Render(c *Canvas, snap *protocol.Snapshot, vp Viewport, hl *Highlight, hb *Hitboxes) Scale {
	scale := r.layout.Scale()
	c.Clear()
	hb.Reset()
	if snap == nil {
		return scale
	}
	if vp.Zoom <= 0 {
		vp.Zoom = 1
	}

	f := &frame{r: r, dc: c.dc, vp: vp, hl: hl, hb: hb}
	f.dc.Push()
	f.dc.Translate(vp.PanX, vp.PanY)
	f.dc.Scale(vp.Zoom, vp.Zoom)
	f.grid()
	f.blockages(snap)
	f.warehouses(snap)
	f.orders(snap)
	f.vehicles(snap)
	f.dc.Pop()
	return scale
}

type frame struct {
	r  *Renderer
	dc *gg.Context
	vp Viewport
	hl *Highlight
	hb *Hitboxes
}

// lineWidth converts a width in canvas pixels to device pixels; gg strokes
// in device space regardless of the current transform.
func (f *frame) lineWidth(w float64) {
	f.dc.SetLineWidth(w * f.vp.Zoom)
}

func (f *frame) focused(kind EntityKind, id int64) bool {
	return f.hl != nil && f.hl.Kind == kind && f.hl.ID == id
}

func (f *frame) grid() {
	l := f.r.layout
	s := l.Scale()
	right := l.Margin + float64(l.GridLength)*s.X
	bottom := l.Margin + float64(l.GridWidth)*s.Y

	f.dc.SetRGBA255(220, 220, 220, 140)
	f.lineWidth(1)
	for i := 0; i <= l.GridLength; i++ {
		x := l.Margin + float64(i)*s.X
		f.dc.DrawLine(x, l.Margin, x, bottom)
	}
	for j := 0; j <= l.GridWidth; j++ {
		y := l.Margin + float64(j)*s.Y
		f.dc.DrawLine(l.Margin, y, right, y)
	}
	f.dc.Stroke()
}

func (f *frame) blockages(snap *protocol.Snapshot) {
	now, nowErr := protocol.ParseMinute(snap.Minute)
	for i := range snap.Blockages {
		b := &snap.Blockages[i]
		if len(b.Points) < 2 {
			continue
		}
		if f.r.opts.ActiveBlockagesOnly && nowErr == nil && !blockageActive(b, now) {
			continue
		}
		f.dc.SetHexColor(ColorBlockage)
		f.lineWidth(3)
		for k, p := range b.Points {
			x, y := f.r.layout.ToCanvas(p)
			if k == 0 {
				f.dc.MoveTo(x, y)
			} else {
				f.dc.LineTo(x, y)
			}
		}
		f.dc.Stroke()
		for _, p := range b.Points {
			x, y := f.r.layout.ToCanvas(p)
			f.dc.DrawCircle(x, y, 4)
			f.dc.Fill()
		}
	}
}

// blockageActive reports whether now lies within the blockage window. A bound
// that does not parse leaves that side open.
func blockageActive(b *protocol.Blockage, now time.Time) bool {
	if start, err := protocol.ParseMinute(b.Start); err == nil && now.Before(start) {
		return false
	}
	if end, err := protocol.ParseMinute(b.End); err == nil && now.After(end) {
		return false
	}
	return true
}

func (f *frame) warehouses(snap *protocol.Snapshot) {
	for i := range snap.Warehouses {
		w := &snap.Warehouses[i]
		if w.Position == nil || !w.Position.Finite() {
			continue
		}
		cx, cy := f.r.layout.ToCanvas(*w.Position)
		box := Box{X: cx - IconSize/2, Y: cy - IconSize/2, Size: IconSize}

		if f.focused(EntityWarehouse, w.ID) {
			f.ring(cx, cy)
		}
		kind, col := WarehouseIcon(w)
		f.dc.DrawImage(f.r.icons.Get(kind, col, IconSize), int(math.Round(box.X)), int(math.Round(box.Y)))

		label := fmt.Sprintf("W%d", w.ID)
		f.label(label, box.X+4, box.Y+50)

		if ratio, ok := w.FillRatio(); ok {
			f.dc.SetHexColor(ColorBarBackground)
			f.dc.DrawRectangle(box.X+2, box.Y+34, 28, 4)
			f.dc.Fill()
			if ratio > 0 {
				f.dc.SetHexColor(ColorBarFill)
				f.dc.DrawRectangle(box.X+2, box.Y+34, 28*ratio, 4)
				f.dc.Fill()
			}
		}
		f.hb.Warehouses = append(f.hb.Warehouses, Hit{Kind: EntityWarehouse, ID: w.ID, Label: label, Box: box, Ref: w})
	}
}

func (f *frame) orders(snap *protocol.Snapshot) {
	for _, o := range snap.OpenOrders() {
		p := protocol.Position{X: o.X, Y: o.Y}
		if !p.Finite() {
			continue
		}
		cx, cy := f.r.layout.ToCanvas(p)
		// the marker tip sits on the order position
		box := Box{X: cx - OrderIconSize/2, Y: cy - OrderIconSize, Size: OrderIconSize}
		if f.focused(EntityOrder, o.ID) {
			f.glow(cx, cy-OrderIconSize/2, OrderIconSize, ColorOrderFocus)
			f.dc.DrawImage(f.r.icons.Get(KindMarker, ColorOrderFocus, IconSize), int(math.Round(box.X-4)), int(math.Round(box.Y-4)))
		} else {
			f.dc.DrawImage(f.r.icons.Get(KindMarker, ColorOrder, OrderIconSize), int(math.Round(box.X)), int(math.Round(box.Y)))
		}
		f.label(fmt.Sprintf("GLP: %g", o.GLP), box.X+2, box.Y+40)
		f.hb.Orders = append(f.hb.Orders, Hit{Kind: EntityOrder, ID: o.ID, Label: fmt.Sprintf("#%d", o.ID), Box: box, Ref: o})
	}
}

func (f *frame) vehicles(snap *protocol.Snapshot) {
	var main *protocol.Position
	if f.r.opts.HideParkedAtMain {
		if w := snap.MainWarehouse(); w != nil {
			main = w.Position
		}
	}
	for i := range snap.Vehicles {
		v := &snap.Vehicles[i]
		pos := v.Position()
		if !pos.Finite() {
			continue
		}
		if main != nil && pos == *main {
			continue
		}
		cx, cy := f.r.layout.ToCanvas(pos)

		if len(v.Route) >= 2 && v.Status != protocol.VehicleStuck {
			f.route(v.Route)
		}
		if f.focused(EntityVehicle, v.ID) {
			f.ring(cx, cy)
		}

		icon := f.r.icons.Get(KindTruck, VehicleColor(v.Status), IconSize)
		f.dc.Push()
		f.dc.Translate(cx, cy)
		switch VehicleHeading(f.r.layout, v) {
		case HeadingLeft:
			f.dc.Scale(-1, 1)
		case HeadingUp:
			f.dc.Rotate(-math.Pi / 2)
		case HeadingDown:
			f.dc.Rotate(math.Pi / 2)
		}
		f.dc.DrawImage(icon, -IconSize/2, -IconSize/2)
		f.dc.Pop()

		label := v.Label()
		f.label(label, cx-IconSize/2, cy-IconSize/2-5)
		box := Box{X: cx - IconSize/2, Y: cy - IconSize/2, Size: IconSize}
		f.hb.Vehicles = append(f.hb.Vehicles, Hit{Kind: EntityVehicle, ID: v.ID, Label: label, Box: box, Ref: v})
	}
}

func (f *frame) route(points []protocol.Position) {
	f.dc.SetHexColor(ColorRoute)
	f.lineWidth(2)
	for k, p := range points {
		x, y := f.r.layout.ToCanvas(p)
		if k == 0 {
			f.dc.MoveTo(x, y)
		} else {
			f.dc.LineTo(x, y)
		}
	}
	f.dc.Stroke()
}

func (f *frame) label(text string, x, y float64) {
	if text == "" {
		return
	}
	f.dc.SetHexColor(ColorLabel)
	f.dc.DrawString(text, x, y)
}

// ring draws the focus ring with a soft halo around (x, y).
func (f *frame) ring(x, y float64) {
	f.glow(x, y, 24, ColorFocusRing)
	f.dc.SetHexColor(ColorFocusRing)
	f.lineWidth(5)
	f.dc.DrawCircle(x, y, 24)
	f.dc.Stroke()
}

func (f *frame) glow(x, y, radius float64, hex string) {
	r, g, b := hexRGB(hex)
	for k := 3; k >= 1; k-- {
		f.dc.SetRGBA255(r, g, b, 40)
		f.lineWidth(5 + float64(k)*4)
		f.dc.DrawCircle(x, y, radius)
		f.dc.Stroke()
	}
}

func hexRGB(hex string) (r, g, b int) {
	fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	return r, g, b
}

// Heading is the direction a vehicle icon faces.
type Heading int

const (
	HeadingRight Heading = iota
	HeadingLeft
	HeadingUp
	HeadingDown
)

// VehicleHeading infers the direction of travel from the next waypoint,
// skipping a first waypoint equal to the current position. The dominant
// on-screen axis wins; ties and vehicles without a route face right.
func VehicleHeading(l Layout, v *protocol.Vehicle) Heading {
	pos := v.Position()
	var target *protocol.Position
	for i := range v.Route {
		if i > 1 {
			break
		}
		if v.Route[i] != pos {
			target = &v.Route[i]
			break
		}
	}
	if target == nil {
		return HeadingRight
	}
	x0, y0 := l.ToCanvas(pos)
	x1, y1 := l.ToCanvas(*target)
	dx, dy := x1-x0, y1-y0
	switch {
	case math.Abs(dx) > math.Abs(dy):
		if dx < 0 {
			return HeadingLeft
		}
		return HeadingRight
	case dy < 0:
		return HeadingUp
	case dy > 0:
		return HeadingDown
	}
	return HeadingRight
}
