package www

import (
	"net/http"

	"fleetview/protocol"
)

func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := h.attach(w, r)
	sess := h.engine.Session()
	cfg := h.engine.AppConfig()

	minute := ""
	var vehicles []protocol.Vehicle
	if snap := sess.Snapshot(); snap != nil {
		minute = snap.Minute
		vehicles = snap.Vehicles
	}

	data := map[string]any{
		"Page":          "dashboard",
		"View":          view,
		"Status":        sess.Status(),
		"Simulating":    sess.Simulating(),
		"Minute":        minute,
		"Run":           sess.Tracker(),
		"Summary":       sess.Summary(),
		"Vehicles":      vehicles,
		"Profile":       cfg.Messaging.Profile,
		"FailureTypes":  []string{protocol.FailureType1, protocol.FailureType2, protocol.FailureType3},
		"FocusSeconds":  cfg.Viewer.FocusDuration.Seconds(),
		"FrameInterval": cfg.Scheduler.FrameInterval.Milliseconds(),
	}
	h.render(w, "dashboard.html", data)
}
