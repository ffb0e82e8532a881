package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"fleetview/config"
	"fleetview/messaging"
	"fleetview/metrics"
	"fleetview/scene"
	"fleetview/scheduler"
	"fleetview/session"
	"fleetview/snapstate"
	"fleetview/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Cache      *snapstate.Cache
	Transport  messaging.Transport
	Metrics    *metrics.Metrics
	LogFunc    LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	cache      *snapstate.Cache
	metrics    *metrics.Metrics
	session    *session.Controller
	layout     scene.Layout
	icons      *scene.IconCache
	renderer   *scene.Renderer
	loop       *scheduler.Loop
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}
	stopOnce   sync.Once
	now        func() time.Time

	// version counts snapshot changes; a viewer redraws when its last
	// frame was drawn from an older one.
	version atomic.Uint64

	mu      sync.RWMutex
	viewers map[string]*viewer
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	m := c.Metrics
	if m == nil {
		m = metrics.New()
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		cache:      c.Cache,
		metrics:    m,
		layout:     scene.NewLayout(&c.AppConfig.Map),
		icons:      scene.NewIconCache(scene.LogFunc(logFn)),
		Events:     NewEventBus(logFn),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
		now:        time.Now,
		viewers:    make(map[string]*viewer),
	}
	e.renderer = scene.NewRenderer(e.layout, e.icons, scene.NewOptions(&c.AppConfig.Map))
	se := &sessionEmitter{bus: e.Events, bump: func() uint64 { return e.version.Add(1) }}
	e.session = session.NewController(c.Transport, &c.AppConfig.Messaging, se, session.LogFunc(logFn))
	e.loop = scheduler.New(c.AppConfig.Scheduler.FrameInterval, e.animating, e.drawAll, scheduler.LogFunc(logFn))
	return e
}

func (e *Engine) Start() {
	e.icons.Preload(scene.DefaultIconSet())

	e.wireEventHandlers()

	// Seed the last known picture so pages show something before the
	// backend sends its first snapshot.
	e.restoreFromCache()

	e.loop.Start()
	go e.reapLoop()

	e.logFn("engine: started (%dx%d canvas, %d icons)", e.layout.Width, e.layout.Height, e.icons.Len())
}

// Stop is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
		e.loop.Stop()
		e.session.Disconnect()
		e.logFn("engine: stopped")
	})
}

// Accessors
func (e *Engine) DB() *store.DB                { return e.db }
func (e *Engine) AppConfig() *config.Config    { return e.cfg }
func (e *Engine) ConfigPath() string           { return e.configPath }
func (e *Engine) Cache() *snapstate.Cache      { return e.cache }
func (e *Engine) Metrics() *metrics.Metrics    { return e.metrics }
func (e *Engine) Session() *session.Controller { return e.session }
func (e *Engine) Layout() scene.Layout         { return e.layout }
func (e *Engine) Loop() *scheduler.Loop        { return e.loop }

func (e *Engine) restoreFromCache() {
	if e.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := e.cache.LoadSnapshot(ctx)
	if err != nil {
		e.logFn("engine: restore snapshot: %v", err)
		return
	}
	sum, err := e.cache.LoadSummary(ctx)
	if err != nil {
		e.logFn("engine: restore summary: %v", err)
	}
	if snap == nil && sum == nil {
		return
	}
	e.session.Restore(snap, sum)
	if snap != nil {
		e.logFn("engine: restored snapshot for minute %s from cache", snap.Minute)
	}
}

// --- viewer gestures ---

// PointerPhase names one step of a press-drag-release gesture.
type PointerPhase string

const (
	PointerDown PointerPhase = "down"
	PointerMove PointerPhase = "move"
	PointerUp   PointerPhase = "up"
)

var ErrBadPhase = errors.New("unknown pointer phase")

// PointerResult is the outcome of one pointer step. Click is set when a
// release ended a gesture that never travelled past the drag threshold;
// Selection then holds what the click picked, nil for a miss.
type PointerResult struct {
	Viewport  scene.Viewport   `json:"viewport"`
	Click     bool             `json:"click"`
	Selection *scene.Selection `json:"selection"`
}

// withViewer runs fn on a locked viewer, marks it seen and, when fn reports
// a visual change, dirty, waking the scheduler.
func (e *Engine) withViewer(id string, fn func(v *viewer) bool) error {
	v, err := e.lookup(id)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.lastSeen = e.now()
	changed := fn(v)
	if changed {
		v.dirty = true
	}
	v.mu.Unlock()
	if changed {
		e.loop.Arm()
	}
	return nil
}

func (e *Engine) toCanvas(x, y float64, d scene.Display) (float64, float64) {
	return scene.ClientToCanvas(x, y, d, e.layout.Width, e.layout.Height)
}

// Wheel zooms one notch around the pointer.
func (e *Engine) Wheel(id string, x, y, deltaY float64, d scene.Display) (scene.Viewport, error) {
	var vp scene.Viewport
	err := e.withViewer(id, func(v *viewer) bool {
		cx, cy := e.toCanvas(x, y, d)
		v.nav.Wheel(cx, cy, deltaY)
		vp = v.nav.Viewport()
		return deltaY != 0
	})
	return vp, err
}

// Pointer feeds one step of a drag gesture. A release that turns out to be
// a click resolves a selection as Click does.
func (e *Engine) Pointer(id string, phase PointerPhase, x, y float64, d scene.Display) (PointerResult, error) {
	switch phase {
	case PointerDown, PointerMove, PointerUp:
	default:
		return PointerResult{}, ErrBadPhase
	}
	var res PointerResult
	var selected bool
	err := e.withViewer(id, func(v *viewer) bool {
		cx, cy := e.toCanvas(x, y, d)
		before := v.nav.Viewport()
		switch phase {
		case PointerDown:
			v.nav.PointerDown(cx, cy)
		case PointerMove:
			v.nav.PointerMove(cx, cy)
		case PointerUp:
			if v.nav.PointerUp(cx, cy) {
				res.Click = true
				res.Selection = copySelection(v.sel.Click(cx, cy, v.nav.Viewport(), &v.hits))
				selected = true
			}
		}
		res.Viewport = v.nav.Viewport()
		return res.Viewport != before
	})
	if selected {
		e.Events.Emit(Event{Type: EventSelectionChanged, Payload: SelectionEvent{ViewerID: id, Selection: res.Selection}})
	}
	return res, err
}

// Click selects the entity under a pointer position, or clears the
// selection on a miss. Hit-tests run against the viewer's last frame.
func (e *Engine) Click(id string, x, y float64, d scene.Display) (*scene.Selection, error) {
	var sel *scene.Selection
	err := e.withViewer(id, func(v *viewer) bool {
		cx, cy := e.toCanvas(x, y, d)
		sel = copySelection(v.sel.Click(cx, cy, v.nav.Viewport(), &v.hits))
		return false
	})
	if err != nil {
		return nil, err
	}
	e.Events.Emit(Event{Type: EventSelectionChanged, Payload: SelectionEvent{ViewerID: id, Selection: sel}})
	return sel, nil
}

func (e *Engine) Selection(id string) (*scene.Selection, error) {
	var sel *scene.Selection
	err := e.withViewer(id, func(v *viewer) bool {
		sel = copySelection(v.sel.Current())
		return false
	})
	return sel, err
}

// Focus highlights an entity for the configured window.
func (e *Engine) Focus(id string, kind scene.EntityKind, entityID int64) error {
	switch kind {
	case scene.EntityVehicle, scene.EntityWarehouse, scene.EntityOrder:
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	return e.withViewer(id, func(v *viewer) bool {
		v.focus.Set(scene.Highlight{Kind: kind, ID: entityID}, e.now(), e.cfg.Viewer.FocusDuration)
		return true
	})
}

// ResetView restores the identity viewport and clears the selection.
func (e *Engine) ResetView(id string) (scene.Viewport, error) {
	var vp scene.Viewport
	err := e.withViewer(id, func(v *viewer) bool {
		v.nav.Reset()
		v.sel.Clear()
		v.focus.Clear()
		vp = v.nav.Viewport()
		return true
	})
	return vp, err
}

func copySelection(s *scene.Selection) *scene.Selection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
