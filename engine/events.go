package engine

import (
	"fleetview/protocol"
	"fleetview/scene"
	"fleetview/session"
)

const (
	EventSessionStateChanged EventType = iota + 1
	EventSnapshotApplied
	EventCanvasCleared
	EventSummaryReceived
	EventNotice
	EventMessageReceived
	EventCommandPublished
	EventFrameRendered
	EventViewerAttached
	EventViewerDetached
	EventSelectionChanged
)

func (t EventType) String() string {
	switch t {
	case EventSessionStateChanged:
		return "session-state"
	case EventSnapshotApplied:
		return "snapshot"
	case EventCanvasCleared:
		return "canvas-cleared"
	case EventSummaryReceived:
		return "summary"
	case EventNotice:
		return "notice"
	case EventMessageReceived:
		return "message"
	case EventCommandPublished:
		return "command"
	case EventFrameRendered:
		return "frame"
	case EventViewerAttached:
		return "viewer-attached"
	case EventViewerDetached:
		return "viewer-detached"
	case EventSelectionChanged:
		return "selection"
	}
	return "unknown"
}

// --- Event payloads ---

type StateChangedEvent struct {
	Old session.Status
	New session.Status
}

type SnapshotAppliedEvent struct {
	Snapshot *protocol.Snapshot
	Version  uint64
}

type CanvasClearedEvent struct {
	Version uint64
}

type SummaryEvent struct {
	Summary *protocol.Summary
}

type NoticeEvent struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type MessageEvent struct {
	Type string
	Err  error
}

type CommandEvent struct {
	Command string
	Err     error
}

type FrameEvent struct {
	ViewerID string `json:"viewer"`
	Seq      uint64 `json:"seq"`
}

type ViewerEvent struct {
	ViewerID string `json:"viewer"`
	Reason   string `json:"reason,omitempty"` // "detached", "idle"
}

type SelectionEvent struct {
	ViewerID  string           `json:"viewer"`
	Selection *scene.Selection `json:"selection"`
}
