package www

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"fleetview/engine"
	"fleetview/protocol"
	"fleetview/session"
)

const maxBody = 64 << 10

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"statusLabel": func(s protocol.VehicleStatus) string { return s.Label() },
		"indicatorClass": func(ind string) string {
			switch ind {
			case session.IndicatorConnected:
				return "dot-ok"
			case session.IndicatorError:
				return "dot-error"
			}
			return "dot-off"
		},
		"mul100": func(v float64) float64 { return v * 100 },
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
	}
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// commandError maps a command or gesture failure to its HTTP status.
func (h *Handlers) commandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotConnected):
		h.jsonError(w, "not connected", http.StatusConflict)
	case errors.Is(err, engine.ErrUnknownViewer):
		h.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrBadPhase), errors.Is(err, protocol.ErrInvalidCommand):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.jsonError(w, err.Error(), http.StatusBadGateway)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
