package www

import (
	"errors"
	"fmt"
	"net/http"

	"fleetview/engine"
	"fleetview/scene"
)

// pointerRequest carries a position relative to the displayed canvas
// element plus the size it is displayed at.
type pointerRequest struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
}

func (p pointerRequest) display() scene.Display {
	return scene.Display{Width: p.DisplayWidth, Height: p.DisplayHeight}
}

func (h *Handlers) apiFrame(w http.ResponseWriter, r *http.Request) {
	id := h.viewerID(w, r)
	data, seq, err := h.engine.Frame(id)
	if err != nil {
		h.commandError(w, err)
		return
	}
	etag := fmt.Sprintf(`"%s-%d"`, id, seq)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Frame-Seq", fmt.Sprint(seq))
	w.Write(data)
}

func (h *Handlers) apiViewWheel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		pointerRequest
		DeltaY float64 `json:"deltaY"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	vp, err := h.engine.Wheel(h.viewerID(w, r), req.X, req.Y, req.DeltaY, req.display())
	if err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, vp)
}

func (h *Handlers) apiViewPointer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		pointerRequest
		Phase engine.PointerPhase `json:"phase"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.engine.Pointer(h.viewerID(w, r), req.Phase, req.X, req.Y, req.display())
	if err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, res)
}

func (h *Handlers) apiViewClick(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sel, err := h.engine.Click(h.viewerID(w, r), req.X, req.Y, req.display())
	if err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"selection": sel})
}

func (h *Handlers) apiViewSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := h.engine.Selection(h.viewerID(w, r))
	if err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"selection": sel})
}

func (h *Handlers) apiViewFocus(w http.ResponseWriter, r *http.Request) {
	var req scene.Highlight
	if err := decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.engine.Focus(h.viewerID(w, r), req.Kind, req.ID); err != nil {
		if errors.Is(err, engine.ErrUnknownViewer) {
			h.commandError(w, err)
			return
		}
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.jsonOK(w, map[string]any{"focus": req, "seconds": h.engine.AppConfig().Viewer.FocusDuration.Seconds()})
}

func (h *Handlers) apiViewReset(w http.ResponseWriter, r *http.Request) {
	vp, err := h.engine.ResetView(h.viewerID(w, r))
	if err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, vp)
}

func (h *Handlers) apiViewDetach(w http.ResponseWriter, r *http.Request) {
	id := h.currentViewer(r)
	if id == "" {
		h.jsonError(w, "no viewer", http.StatusNotFound)
		return
	}
	h.forgetViewer(w, r)
	if err := h.engine.DetachView(id); err != nil {
		h.commandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
