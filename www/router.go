package www

import (
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"fleetview/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	tmpls    map[string]*template.Template
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	pages := []string{"templates/dashboard.html"}
	tmpls := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		t := template.Must(template.New("").Funcs(templateFuncs()).ParseFS(templateFS, p))
		tmpls[p[len("templates/"):]] = t
	}

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		tmpls:    tmpls,
		eventHub: hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(eng.Metrics().Middleware)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/events", h.SSEHandler)
	r.Handle("/metrics", eng.Metrics().Handler())

	r.Get("/", h.handleDashboard)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json"))

		r.Get("/health", h.apiHealthCheck)
		r.Get("/state", h.apiState)
		r.Get("/snapshot", h.apiSnapshot)
		r.Get("/frame.png", h.apiFrame)

		r.Route("/view", func(r chi.Router) {
			r.Post("/wheel", h.apiViewWheel)
			r.Post("/pointer", h.apiViewPointer)
			r.Post("/click", h.apiViewClick)
			r.Get("/selection", h.apiViewSelection)
			r.Post("/focus", h.apiViewFocus)
			r.Post("/reset", h.apiViewReset)
		})
		r.Delete("/view", h.apiViewDetach)

		r.Post("/session/connect", h.apiSessionConnect)
		r.Post("/session/disconnect", h.apiSessionDisconnect)
		r.Get("/session/log", h.apiSessionLog)

		r.Post("/sim/init", h.apiSimInit)
		r.Post("/sim/stop", h.apiSimStop)
		r.Post("/sim/failures", h.apiSimFailures)

		r.Get("/runs", h.apiListRuns)
		r.Get("/runs/{id}", h.apiGetRun)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := h.tmpls[name]
	if !ok {
		log.Printf("render: template %q not found", name)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
