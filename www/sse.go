package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"fleetview/engine"
)

// SSEEvent is one server-sent event. A non-empty Viewer limits delivery to
// the stream opened by that viewer.
type SSEEvent struct {
	Event  string
	Data   string
	Viewer string
}

type sseClient struct {
	viewer string
	ch     chan SSEEvent
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[*sseClient]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
	stopOnce  sync.Once
	keepalive time.Duration
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[*sseClient]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
		keepalive: 30 * time.Second,
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.fanOut(evt)
		case <-keepalive.C:
			h.fanOut(SSEEvent{Event: "keepalive", Data: "ping"})
		}
	}
}

func (h *EventHub) fanOut(evt SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if evt.Viewer != "" && evt.Viewer != c.viewer {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// slow client: drop
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	h.send(SSEEvent{Event: event, Data: data})
}

// BroadcastJSON encodes v and sends it to every client, or to one viewer's
// streams when viewer is set.
func (h *EventHub) BroadcastJSON(event, viewer string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse: encode %s: %v", event, err)
		return
	}
	h.send(SSEEvent{Event: event, Data: string(data), Viewer: viewer})
}

func (h *EventHub) send(evt SSEEvent) {
	select {
	case h.broadcast <- evt:
	default:
	}
}

func (h *EventHub) AddClient(viewer string) *sseClient {
	c := &sseClient{viewer: viewer, ch: make(chan SSEEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *EventHub) RemoveClient(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.StateChangedEvent)
		h.BroadcastJSON("session-state", "", ev.New)
	}, engine.EventSessionStateChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SnapshotAppliedEvent)
		minute := ""
		if ev.Snapshot != nil {
			minute = ev.Snapshot.Minute
		}
		h.BroadcastJSON("snapshot", "", map[string]any{
			"minute":  minute,
			"version": ev.Version,
			"run":     eng.Session().Tracker(),
		})
	}, engine.EventSnapshotApplied)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.CanvasClearedEvent)
		h.BroadcastJSON("canvas-cleared", "", map[string]any{"version": ev.Version})
	}, engine.EventCanvasCleared)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.BroadcastJSON("summary", "", evt.Payload.(engine.SummaryEvent).Summary)
	}, engine.EventSummaryReceived)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.BroadcastJSON("notice", "", evt.Payload.(engine.NoticeEvent))
	}, engine.EventNotice)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FrameEvent)
		h.BroadcastJSON("frame", ev.ViewerID, ev)
	}, engine.EventFrameRendered)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.SelectionEvent)
		h.BroadcastJSON("selection", ev.ViewerID, ev)
	}, engine.EventSelectionChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.ViewerEvent)
		h.BroadcastJSON("viewer-detached", ev.ViewerID, ev)
	}, engine.EventViewerDetached)
}

// SSEHandler serves the SSE endpoint for the requesting viewer.
func (h *Handlers) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	viewer := h.viewerID(w, r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := h.eventHub.AddClient(viewer)
	defer h.eventHub.RemoveClient(c)

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.eventHub.stopChan:
			return
		case evt := <-c.ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
