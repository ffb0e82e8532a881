package session

import "fleetview/protocol"

// Emitter is the interface adapters must satisfy to bridge session events to the engine.
type Emitter interface {
	EmitStateChanged(old, new Status)
	EmitSnapshotApplied(snap *protocol.Snapshot)
	EmitCanvasCleared()
	EmitSummary(sum *protocol.Summary)
	// EmitNotice surfaces a user-visible message; level is "info", "warning" or "error".
	EmitNotice(level, message string)
	// EmitMessage reports every inbound message; err is set when it was discarded.
	EmitMessage(msgType string, err error)
	EmitCommand(command string, err error)
}
