package scene

import (
	"fleetview/config"
	"fleetview/protocol"
)

// Layout maps the logical simulation grid onto a fixed-size canvas.
type Layout struct {
	GridLength int
	GridWidth  int
	Width      int
	Height     int
	Margin     float64
	// InvertY puts grid row 0 at the bottom of the canvas.
	InvertY bool
}

// Scale is the per-axis pixel size of one grid unit.
type Scale struct {
	Margin float64 `json:"margin"`
	X      float64 `json:"scaleX"`
	Y      float64 `json:"scaleY"`
}

func NewLayout(cfg *config.MapConfig) Layout {
	return Layout{
		GridLength: cfg.GridLength,
		GridWidth:  cfg.GridWidth,
		Width:      cfg.CanvasWidth,
		Height:     cfg.CanvasHeight,
		Margin:     cfg.Margin,
		InvertY:    cfg.InvertY,
	}
}

func (l Layout) Scale() Scale {
	s := Scale{Margin: l.Margin}
	if l.GridLength > 0 {
		s.X = (float64(l.Width) - 2*l.Margin) / float64(l.GridLength)
	}
	if l.GridWidth > 0 {
		s.Y = (float64(l.Height) - 2*l.Margin) / float64(l.GridWidth)
	}
	return s
}

// ToCanvas converts a grid position to canvas pixels before pan and zoom.
func (l Layout) ToCanvas(p protocol.Position) (x, y float64) {
	s := l.Scale()
	x = l.Margin + p.X*s.X
	if l.InvertY {
		y = l.Margin + (float64(l.GridWidth)-p.Y)*s.Y
	} else {
		y = l.Margin + p.Y*s.Y
	}
	return x, y
}

// ToGrid is the inverse of ToCanvas.
func (l Layout) ToGrid(x, y float64) protocol.Position {
	s := l.Scale()
	var p protocol.Position
	if s.X != 0 {
		p.X = (x - l.Margin) / s.X
	}
	if s.Y != 0 {
		p.Y = (y - l.Margin) / s.Y
		if l.InvertY {
			p.Y = float64(l.GridWidth) - p.Y
		}
	}
	return p
}

// Viewport is the pan offset in canvas pixels and the zoom factor applied
// on top of the layout.
type Viewport struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ToWorld converts a canvas pixel to the pre-pan/zoom space hit-boxes live in.
func (v Viewport) ToWorld(x, y float64) (wx, wy float64) {
	return (x - v.PanX) / v.Zoom, (y - v.PanY) / v.Zoom
}

// ToScreen is the inverse of ToWorld.
func (v Viewport) ToScreen(wx, wy float64) (x, y float64) {
	return wx*v.Zoom + v.PanX, wy*v.Zoom + v.PanY
}

// Display is the size at which the browser shows the canvas. A zero size
// means the canvas is shown at its native resolution.
type Display struct {
	Width  float64 `json:"displayWidth"`
	Height float64 `json:"displayHeight"`
}

// ClientToCanvas converts a pointer position relative to the displayed
// element into canvas pixels.
func ClientToCanvas(clientX, clientY float64, d Display, canvasW, canvasH int) (x, y float64) {
	x, y = clientX, clientY
	if d.Width > 0 {
		x *= float64(canvasW) / d.Width
	}
	if d.Height > 0 {
		y *= float64(canvasH) / d.Height
	}
	return x, y
}
