package www

import (
	"log"
	"net/http"

	"github.com/gorilla/sessions"

	"fleetview/engine"
)

const (
	sessionName = "fleetview-viewer"
	viewerKey   = "viewer"
)

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "fleetview-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.Path = "/"
	s.Options.HttpOnly = true
	s.Options.Secure = false // served on plain HTTP inside the ops network
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

// attach attaches the browser's viewer, creating one on first contact or
// after the previous one was reaped, and keeps the cookie in step.
func (h *Handlers) attach(w http.ResponseWriter, r *http.Request) engine.ViewState {
	session, _ := h.sessions.Get(r, sessionName)
	prev, _ := session.Values[viewerKey].(string)
	view := h.engine.View(prev)
	if view.ID != prev {
		session.Values[viewerKey] = view.ID
		if err := session.Save(r, w); err != nil {
			log.Printf("www: save viewer cookie: %v", err)
		}
	}
	return view
}

func (h *Handlers) viewerID(w http.ResponseWriter, r *http.Request) string {
	return h.attach(w, r).ID
}

// currentViewer returns the cookie's viewer without creating one.
func (h *Handlers) currentViewer(r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[viewerKey].(string)
	return id
}

func (h *Handlers) forgetViewer(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	delete(session.Values, viewerKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Printf("www: clear viewer cookie: %v", err)
	}
}
