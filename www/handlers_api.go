package www

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fleetview/protocol"
	"fleetview/store"
)

const connectTimeout = 15 * time.Second

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Session().Status()
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"messaging": st.State.Online(),
		"database":  h.engine.DB().Ping() == nil,
		"cache":     h.engine.Cache() != nil,
		"viewers":   h.engine.ViewerCount(),
		"sse":       h.eventHub.ClientCount(),
	})
}

func (h *Handlers) apiState(w http.ResponseWriter, r *http.Request) {
	sess := h.engine.Session()
	minute := ""
	if snap := sess.Snapshot(); snap != nil {
		minute = snap.Minute
	}
	h.jsonOK(w, map[string]any{
		"status":     sess.Status(),
		"simulating": sess.Simulating(),
		"minute":     minute,
		"run":        sess.Tracker(),
		"summary":    sess.Summary(),
		"animating":  h.engine.Loop().Ticking(),
		"view":       h.attach(w, r),
	})
}

func (h *Handlers) apiSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Session().Snapshot()
	if snap == nil {
		h.jsonError(w, "no snapshot", http.StatusNotFound)
		return
	}
	h.jsonOK(w, snap)
}

func (h *Handlers) apiSessionConnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), connectTimeout)
	defer cancel()
	if err := h.engine.Session().Connect(ctx); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, h.engine.Session().Status())
}

func (h *Handlers) apiSessionDisconnect(w http.ResponseWriter, r *http.Request) {
	h.engine.Session().Disconnect()
	h.jsonOK(w, h.engine.Session().Status())
}

func (h *Handlers) apiSessionLog(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.DB().ListSessionEvents(r.URL.Query().Get("kind"), queryInt(r, "limit", 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*store.SessionEvent{}
	}
	h.jsonOK(w, events)
}

func (h *Handlers) apiSimInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `json:"start"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := protocol.ParseMinute(req.Start)
	if err != nil {
		h.jsonError(w, "invalid start: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.engine.Session().StartSimulation(start); err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"status": "sent", "start": protocol.TimePartsOf(start)})
}

func (h *Handlers) apiSimStop(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Session().StopSimulation(); err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "sent"})
}

func (h *Handlers) apiSimFailures(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plate string `json:"plate"`
		Type  string `json:"type"`
		Shift string `json:"shift"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.engine.Session().RegisterFailure(req.Plate, req.Type, req.Shift); err != nil {
		h.commandError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "sent"})
}

func (h *Handlers) apiListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.engine.DB().ListRunSummaries(queryInt(r, "limit", 50))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*store.RunSummary{}
	}
	h.jsonOK(w, runs)
}

func (h *Handlers) apiGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	run, err := h.engine.DB().GetRunSummary(id)
	if errors.Is(err, store.ErrNoRows) {
		h.jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, run)
}
