package engine

import (
	"context"
	"errors"
	"time"

	"fleetview/protocol"
	"fleetview/session"
	"fleetview/snapstate"
	"fleetview/store"
)

// cacheTimeout bounds every redis write made on the ingest path.
const cacheTimeout = time.Second

func (e *Engine) wireEventHandlers() {
	// State transitions: log, persist, mirror to the cache and wake the loop
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StateChangedEvent)
		e.logFn("engine: session %s -> %s", ev.Old.State, ev.New.State)
		level := "info"
		if ev.New.Err != "" {
			level = "error"
		}
		e.appendEvent(&store.SessionEvent{
			Kind:    store.EventState,
			State:   ev.New.State.String(),
			Level:   level,
			Message: stateMessage(ev.New),
			Detail:  ev.New.Detail,
		})
		e.withCache(func(ctx context.Context) error {
			return e.cache.SaveStatus(ctx, snapstate.StatusRecord{
				State:     ev.New.State.String(),
				Indicator: ev.New.Indicator,
				Err:       ev.New.Err,
				Detail:    ev.New.Detail,
				UpdatedAt: evt.Timestamp,
			})
		})
		e.metrics.SetSessionState(int(ev.New.State))
		e.loop.Arm()
	}, EventSessionStateChanged)

	// New snapshot: every viewer is now stale
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SnapshotAppliedEvent)
		e.withCache(func(ctx context.Context) error {
			return e.cache.SaveSnapshot(ctx, ev.Snapshot)
		})
		e.loop.Arm()
	}, EventSnapshotApplied)

	e.Events.SubscribeTypes(func(evt Event) {
		e.withCache(func(ctx context.Context) error {
			return e.cache.SaveSnapshot(ctx, nil)
		})
		e.loop.Arm()
	}, EventCanvasCleared)

	// Run summaries are kept
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SummaryEvent)
		if ev.Summary == nil {
			return
		}
		if id, err := e.db.SaveRunSummary(ev.Summary); err != nil {
			e.logFn("engine: save run summary: %v", err)
		} else {
			e.logFn("engine: run summary %d saved (%d orders delivered)", id, ev.Summary.DeliveredOrders)
		}
		e.withCache(func(ctx context.Context) error {
			return e.cache.SaveSummary(ctx, ev.Summary)
		})
	}, EventSummaryReceived)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(NoticeEvent)
		e.appendEvent(&store.SessionEvent{Kind: store.EventNotice, Level: ev.Level, Message: ev.Message})
	}, EventNotice)

	// Inbound traffic: count everything, keep a trail of what was discarded
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MessageEvent)
		if ev.Err == nil {
			e.metrics.RecordMessage(ev.Type)
			return
		}
		reason := dropReason(ev.Err)
		e.metrics.RecordDropped(reason)
		e.appendEvent(&store.SessionEvent{Kind: store.EventDropped, Level: "warning", Message: reason, Detail: ev.Err.Error()})
	}, EventMessageReceived)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(CommandEvent)
		e.metrics.RecordCommand(ev.Command, ev.Err)
		se := &store.SessionEvent{Kind: store.EventCommand, Level: "info", Message: ev.Command}
		if ev.Err != nil {
			se.Level = "error"
			se.Detail = ev.Err.Error()
		}
		e.appendEvent(se)
	}, EventCommandPublished)
}

func (e *Engine) appendEvent(se *store.SessionEvent) {
	if err := e.db.AppendSessionEvent(se); err != nil {
		e.logFn("engine: append session event: %v", err)
	}
}

func (e *Engine) withCache(fn func(ctx context.Context) error) {
	if e.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.logFn("engine: cache: %v", err)
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrInvalidSnapshot):
		return "invalid_snapshot"
	case errors.Is(err, protocol.ErrUnknownType):
		return "unknown_type"
	}
	return "malformed"
}

func stateMessage(s session.Status) string {
	if s.Err != "" {
		return s.Err
	}
	return s.State.String()
}
