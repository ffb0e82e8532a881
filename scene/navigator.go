package scene

import "math"

const (
	MinZoom = 0.25
	MaxZoom = 4.0
)

// Navigator owns a viewport and applies wheel and drag gestures to it.
// It is not safe for concurrent use.
type Navigator struct {
	vp        Viewport
	step      float64
	threshold float64

	dragging  bool
	moved     bool
	startX    float64
	startY    float64
	startPanX float64
	startPanY float64
}

// NewNavigator creates a navigator zooming by step per wheel notch. A
// press-release sequence that travels no farther than threshold pixels is
// a click and never pans.
func NewNavigator(step, threshold float64) *Navigator {
	if step <= 1 {
		step = 1.1
	}
	return &Navigator{vp: DefaultViewport(), step: step, threshold: threshold}
}

func (n *Navigator) Viewport() Viewport { return n.vp }

// Reset restores the identity viewport.
func (n *Navigator) Reset() {
	n.vp = DefaultViewport()
	n.dragging = false
}

// Wheel zooms one notch around the canvas point (x, y). A negative deltaY
// zooms in.
func (n *Navigator) Wheel(x, y, deltaY float64) {
	if deltaY == 0 {
		return
	}
	wx, wy := n.vp.ToWorld(x, y)
	zoom := n.vp.Zoom
	if deltaY < 0 {
		zoom *= n.step
	} else {
		zoom /= n.step
	}
	zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
	n.vp.Zoom = zoom
	n.vp.PanX = x - wx*zoom
	n.vp.PanY = y - wy*zoom
}

func (n *Navigator) PointerDown(x, y float64) {
	n.dragging = true
	n.moved = false
	n.startX, n.startY = x, y
	n.startPanX, n.startPanY = n.vp.PanX, n.vp.PanY
}

func (n *Navigator) PointerMove(x, y float64) {
	if !n.dragging {
		return
	}
	dx, dy := x-n.startX, y-n.startY
	if !n.moved && math.Hypot(dx, dy) <= n.threshold {
		return
	}
	n.moved = true
	n.vp.PanX = n.startPanX + dx
	n.vp.PanY = n.startPanY + dy
}

// PointerUp ends the gesture and reports whether it was a click.
func (n *Navigator) PointerUp(x, y float64) bool {
	if !n.dragging {
		return false
	}
	n.PointerMove(x, y)
	n.dragging = false
	return !n.moved
}

func (n *Navigator) Dragging() bool { return n.dragging }
