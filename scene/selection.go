package scene

// Selection is the entity a click picked, plus where its info panel anchors
// in displayed canvas pixels.
type Selection struct {
	Hit
	AnchorX float64 `json:"anchorX"`
	AnchorY float64 `json:"anchorY"`
}

// Selector holds at most one selected entity.
type Selector struct {
	current *Selection
}

// Click resolves a canvas pixel against the hit-boxes of the last frame.
// A hit replaces any previous selection whatever its kind; a miss clears it.
func (s *Selector) Click(x, y float64, vp Viewport, hb *Hitboxes) *Selection {
	wx, wy := vp.ToWorld(x, y)
	hit, ok := hb.Resolve(wx, wy)
	if !ok {
		s.current = nil
		return nil
	}
	s.current = anchored(hit, vp)
	return s.current
}

// Refresh re-resolves the selection against the hit-boxes of a newer frame
// so its entity data and anchor follow the latest snapshot and viewport.
// It reports whether the selection changed: moved, rebound to newer entity
// data, or cleared because the entity disappeared.
func (s *Selector) Refresh(vp Viewport, hb *Hitboxes) (changed bool) {
	if s.current == nil {
		return false
	}
	prev := s.current
	for _, hit := range hb.list(prev.Kind) {
		if hit.ID == prev.ID {
			s.current = anchored(hit, vp)
			return s.current.AnchorX != prev.AnchorX || s.current.AnchorY != prev.AnchorY ||
				s.current.Box != prev.Box || s.current.Ref != prev.Ref
		}
	}
	s.current = nil
	return true
}

func anchored(hit Hit, vp Viewport) *Selection {
	half := hit.Box.Size / 2
	ax, ay := vp.ToScreen(hit.Box.X+half, hit.Box.Y+half)
	return &Selection{Hit: hit, AnchorX: ax, AnchorY: ay}
}

func (s *Selector) Current() *Selection { return s.current }

func (s *Selector) Clear() { s.current = nil }
