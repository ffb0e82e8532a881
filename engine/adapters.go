package engine

import (
	"fleetview/protocol"
	"fleetview/session"
)

// sessionEmitter bridges the session controller's emitter interface to the EventBus.
type sessionEmitter struct {
	bus  *EventBus
	bump func() uint64
}

func (e *sessionEmitter) EmitStateChanged(old, cur session.Status) {
	e.bus.Emit(Event{Type: EventSessionStateChanged, Payload: StateChangedEvent{Old: old, New: cur}})
}

func (e *sessionEmitter) EmitSnapshotApplied(snap *protocol.Snapshot) {
	e.bus.Emit(Event{Type: EventSnapshotApplied, Payload: SnapshotAppliedEvent{Snapshot: snap, Version: e.bump()}})
}

func (e *sessionEmitter) EmitCanvasCleared() {
	e.bus.Emit(Event{Type: EventCanvasCleared, Payload: CanvasClearedEvent{Version: e.bump()}})
}

func (e *sessionEmitter) EmitSummary(sum *protocol.Summary) {
	e.bus.Emit(Event{Type: EventSummaryReceived, Payload: SummaryEvent{Summary: sum}})
}

func (e *sessionEmitter) EmitNotice(level, message string) {
	e.bus.Emit(Event{Type: EventNotice, Payload: NoticeEvent{Level: level, Message: message}})
}

func (e *sessionEmitter) EmitMessage(msgType string, err error) {
	e.bus.Emit(Event{Type: EventMessageReceived, Payload: MessageEvent{Type: msgType, Err: err}})
}

func (e *sessionEmitter) EmitCommand(command string, err error) {
	e.bus.Emit(Event{Type: EventCommandPublished, Payload: CommandEvent{Command: command, Err: err}})
}

var _ session.Emitter = (*sessionEmitter)(nil)
