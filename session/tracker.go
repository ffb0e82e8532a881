package session

import (
	"fmt"
	"math"
	"sync"
	"time"

	"fleetview/protocol"
)

const minutesPerDay = 1440

// RunStats is the progress of the current run as seen by the dashboard.
type RunStats struct {
	Minutes       int    `json:"minutes"`
	Day           int    `json:"day"`
	Elapsed       string `json:"elapsed"`
	CurrentMinute string `json:"currentMinute,omitempty"`
	// Arrivals counts warehouse visits per warehouse id and vehicle plate.
	Arrivals map[int64]map[string]int `json:"arrivals"`
}

// Tracker accumulates run statistics from consecutive snapshots.
type Tracker struct {
	mu       sync.Mutex
	minutes  int
	first    time.Time
	last     time.Time
	label    string
	arrivals map[int64]map[string]int
	parkedAt map[string]int64
}

func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// Reset starts a new run.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.minutes = 0
	t.first, t.last = time.Time{}, time.Time{}
	t.label = ""
	t.arrivals = make(map[int64]map[string]int)
	t.parkedAt = make(map[string]int64)
}

// Observe records one snapshot.
func (t *Tracker) Observe(s *protocol.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.minutes++
	t.label = s.Minute
	if ts, err := protocol.ParseMinute(s.Minute); err == nil {
		if t.first.IsZero() {
			t.first = ts
		}
		t.last = ts
	}

	now := make(map[string]int64)
	for i := range s.Vehicles {
		v := &s.Vehicles[i]
		plate := v.Label()
		for j := range s.Warehouses {
			w := &s.Warehouses[j]
			if w.Position == nil || !samePoint(v.Position(), *w.Position) {
				continue
			}
			now[plate] = w.ID
			if prev, ok := t.parkedAt[plate]; ok && prev == w.ID {
				break
			}
			if t.arrivals[w.ID] == nil {
				t.arrivals[w.ID] = make(map[string]int)
			}
			t.arrivals[w.ID][plate]++
			break
		}
	}
	t.parkedAt = now
}

// Stats returns a copy of the current statistics.
func (t *Tracker) Stats() RunStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := RunStats{
		Minutes:       t.minutes,
		Day:           t.minutes/minutesPerDay + 1,
		Elapsed:       FormatElapsed(t.last.Sub(t.first)),
		CurrentMinute: t.label,
		Arrivals:      make(map[int64]map[string]int, len(t.arrivals)),
	}
	for id, perPlate := range t.arrivals {
		cp := make(map[string]int, len(perPlate))
		for plate, n := range perPlate {
			cp[plate] = n
		}
		out.Arrivals[id] = cp
	}
	return out
}

// FormatElapsed renders d as "HH:MM:SS", prefixed with "Nd " past a day.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	hms := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, hms)
	}
	return hms
}

func samePoint(a, b protocol.Position) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}
