package scene

import "time"

// Highlight marks one entity to be drawn emphasized.
type Highlight struct {
	Kind EntityKind `json:"kind"`
	ID   int64      `json:"id"`
}

// Focus is a highlight that expires after a fixed window.
type Focus struct {
	target Highlight
	until  time.Time
}

func (f *Focus) Set(h Highlight, now time.Time, d time.Duration) {
	f.target = h
	f.until = now.Add(d)
}

// Active returns the highlight while its window is open, else nil.
func (f *Focus) Active(now time.Time) *Highlight {
	if !f.Pending(now) {
		return nil
	}
	h := f.target
	return &h
}

func (f *Focus) Pending(now time.Time) bool {
	return !f.until.IsZero() && now.Before(f.until)
}

func (f *Focus) Clear() { f.until = time.Time{} }
