package engine

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetview/protocol"
	"fleetview/scene"
)

var ErrUnknownViewer = errors.New("unknown viewer")

// viewer is one browser's view of the shared session: its own canvas,
// pan/zoom state, last frame's hit-boxes, selection and focus.
type viewer struct {
	id string

	mu       sync.Mutex
	canvas   *scene.Canvas
	nav      *scene.Navigator
	hits     scene.Hitboxes
	sel      scene.Selector
	focus    scene.Focus
	dirty    bool
	rendered uint64 // snapshot version of the last frame
	focused  bool   // last frame carried a highlight
	seq      uint64
	png      []byte
	pngSeq   uint64
	lastSeen time.Time
}

// ViewState is what a page needs to lay out its view.
type ViewState struct {
	ID        string           `json:"id"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Viewport  scene.Viewport   `json:"viewport"`
	Scale     scene.Scale      `json:"scale"`
	Selection *scene.Selection `json:"selection"`
	Frame     uint64           `json:"frame"`
}

func (e *Engine) newViewer(id string, now time.Time) *viewer {
	vc := e.cfg.Viewer
	return &viewer{
		id:       id,
		canvas:   scene.NewCanvas(e.layout.Width, e.layout.Height),
		nav:      scene.NewNavigator(vc.ZoomStep, vc.DragThreshold),
		dirty:    true,
		lastSeen: now,
	}
}

// View attaches a viewer, creating it when id is empty or unknown, and
// returns its current state. The returned ID is the one to use afterwards.
func (e *Engine) View(id string) ViewState {
	now := e.now()
	e.mu.Lock()
	v, ok := e.viewers[id]
	if !ok {
		if id == "" {
			id = uuid.NewString()
		}
		v = e.newViewer(id, now)
		e.viewers[id] = v
	}
	n := len(e.viewers)
	e.mu.Unlock()

	if !ok {
		e.metrics.SetViewers(n)
		e.logFn("engine: viewer %s attached (%d active)", id, n)
		e.Events.Emit(Event{Type: EventViewerAttached, Payload: ViewerEvent{ViewerID: id}})
		e.loop.Arm()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastSeen = now
	return e.stateLocked(v)
}

// DetachView drops a viewer and the canvas it holds.
func (e *Engine) DetachView(id string) error {
	if !e.detach(id, "detached") {
		return ErrUnknownViewer
	}
	return nil
}

func (e *Engine) detach(id, reason string) bool {
	e.mu.Lock()
	_, ok := e.viewers[id]
	delete(e.viewers, id)
	n := len(e.viewers)
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.metrics.SetViewers(n)
	e.logFn("engine: viewer %s %s (%d active)", id, reason, n)
	e.Events.Emit(Event{Type: EventViewerDetached, Payload: ViewerEvent{ViewerID: id, Reason: reason}})
	return true
}

// ViewerCount returns the number of attached viewers.
func (e *Engine) ViewerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.viewers)
}

func (e *Engine) lookup(id string) (*viewer, error) {
	e.mu.RLock()
	v, ok := e.viewers[id]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownViewer
	}
	return v, nil
}

func (e *Engine) snapshotViewers() []*viewer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*viewer, 0, len(e.viewers))
	for _, v := range e.viewers {
		out = append(out, v)
	}
	return out
}

// reapIdle detaches every viewer not seen since the idle timeout.
func (e *Engine) reapIdle(now time.Time) int {
	timeout := e.cfg.Viewer.IdleTimeout
	if timeout <= 0 {
		return 0
	}
	var idle []string
	for _, v := range e.snapshotViewers() {
		v.mu.Lock()
		if now.Sub(v.lastSeen) >= timeout {
			idle = append(idle, v.id)
		}
		v.mu.Unlock()
	}
	for _, id := range idle {
		e.detach(id, "idle")
	}
	return len(idle)
}

func (e *Engine) reapLoop() {
	every := e.cfg.Viewer.IdleTimeout / 2
	if every <= 0 {
		return
	}
	if every > time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.reapIdle(e.now())
		}
	}
}

// --- rendering ---

// drawLocked renders the viewer when something it shows changed: its own
// viewport, the shared snapshot, or a highlight that is running or just
// expired. It reports whether a frame was drawn and, when the new frame
// moved, rebound or dropped the selection, the event to emit once the
// viewer is unlocked.
func (e *Engine) drawLocked(v *viewer, snap *protocol.Snapshot, version uint64, now time.Time) (bool, *SelectionEvent) {
	hl := v.focus.Active(now)
	if !v.dirty && v.rendered == version && hl == nil && !v.focused {
		return false, nil
	}
	start := time.Now()
	vp := v.nav.Viewport()
	e.renderer.Render(v.canvas, snap, vp, hl, &v.hits)
	e.metrics.RecordFrame(time.Since(start))

	v.dirty = false
	v.rendered = version
	v.focused = hl != nil
	v.seq++
	if v.sel.Refresh(vp, &v.hits) {
		return true, &SelectionEvent{ViewerID: v.id, Selection: copySelection(v.sel.Current())}
	}
	return true, nil
}

func (e *Engine) emitSelection(ev *SelectionEvent) {
	if ev != nil {
		e.Events.Emit(Event{Type: EventSelectionChanged, Payload: *ev})
	}
}

// drawAll is the scheduler callback.
func (e *Engine) drawAll() {
	version := e.version.Load()
	snap := e.session.Snapshot()
	now := e.now()
	for _, v := range e.snapshotViewers() {
		v.mu.Lock()
		drawn, selEv := e.drawLocked(v, snap, version, now)
		seq := v.seq
		v.mu.Unlock()
		e.emitSelection(selEv)
		if drawn {
			e.Events.Emit(Event{Type: EventFrameRendered, Payload: FrameEvent{ViewerID: v.id, Seq: seq}})
		}
	}
}

// animating keeps the scheduler ticking while a run is live or any viewer
// has a highlight pending.
func (e *Engine) animating() bool {
	if e.session.Simulating() {
		return true
	}
	now := e.now()
	for _, v := range e.snapshotViewers() {
		v.mu.Lock()
		pending := v.focus.Pending(now) || v.focused
		v.mu.Unlock()
		if pending {
			return true
		}
	}
	return false
}

// Frame returns the viewer's latest frame as PNG, drawing it first when it
// is stale. The returned slice must not be modified.
func (e *Engine) Frame(id string) ([]byte, uint64, error) {
	v, err := e.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	version := e.version.Load()
	snap := e.session.Snapshot()
	now := e.now()

	v.mu.Lock()
	v.lastSeen = now
	_, selEv := e.drawLocked(v, snap, version, now)
	png, seq, err := e.encodeLocked(v)
	v.mu.Unlock()
	e.emitSelection(selEv)
	return png, seq, err
}

func (e *Engine) encodeLocked(v *viewer) ([]byte, uint64, error) {
	if v.png == nil || v.pngSeq != v.seq {
		var buf bytes.Buffer
		if err := v.canvas.EncodePNG(&buf); err != nil {
			return nil, 0, err
		}
		v.png = buf.Bytes()
		v.pngSeq = v.seq
	}
	return v.png, v.seq, nil
}

func (e *Engine) stateLocked(v *viewer) ViewState {
	st := ViewState{
		ID:       v.id,
		Width:    e.layout.Width,
		Height:   e.layout.Height,
		Viewport: v.nav.Viewport(),
		Scale:    e.layout.Scale(),
		Frame:    v.seq,
	}
	if cur := v.sel.Current(); cur != nil {
		c := *cur
		st.Selection = &c
	}
	return st
}
