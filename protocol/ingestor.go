package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
)

// LogFunc receives ingestion diagnostics.
type LogFunc func(format string, args ...any)

// Handler defines callbacks for every inbound message type.
// Embed NoOpHandler and override only the methods you need.
type Handler interface {
	HandleLoading(status string)
	HandleStarted(status string)
	HandleError(message string)
	HandleStopped(status string)
	HandleUpdate(snap *Snapshot)
	// SIMULATION_STATE carries either a running flag or a full snapshot.
	HandleStateFlag(simulating bool)
	HandleStateSnapshot(snap *Snapshot)
	HandleSummary(sum *Summary)
}

// Ingestor performs two-phase decode and dispatches to a Handler.
type Ingestor struct {
	handler Handler
	logFn   LogFunc
}

// NewIngestor creates an ingestor. A nil logFn logs through the standard logger.
func NewIngestor(handler Handler, logFn LogFunc) *Ingestor {
	if logFn == nil {
		logFn = log.Printf
	}
	return &Ingestor{handler: handler, logFn: logFn}
}

// HandleRaw is the entry point for raw message bytes from the transport.
// A message that cannot be decoded is logged once and discarded; the
// returned error only reports what happened.
func (ing *Ingestor) HandleRaw(data []byte) error {
	if err := ing.dispatch(data); err != nil {
		ing.logFn("protocol: discarding message: %v", err)
		return err
	}
	return nil
}

func (ing *Ingestor) dispatch(data []byte) error {
	// Phase 1: envelope only
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("envelope decode: %w", err)
	}
	if env.Type == "" {
		return fmt.Errorf("envelope without type")
	}

	// Phase 2: payload by type
	switch env.Type {
	case TypeSimulationLoading:
		return decodeString(ing.handler.HandleLoading, &env)
	case TypeSimulationStarted:
		return decodeString(ing.handler.HandleStarted, &env)
	case TypeSimulationError:
		return decodeString(ing.handler.HandleError, &env)
	case TypeSimulationStopped:
		return decodeString(ing.handler.HandleStopped, &env)
	case TypeSimulationUpdate:
		snap, err := decodeSnapshot(&env)
		if err != nil {
			return err
		}
		ing.handler.HandleUpdate(snap)
		return nil
	case TypeSimulationState:
		if emptyData(env.Data) {
			return fmt.Errorf("payload decode for %s: empty data", env.Type)
		}
		var flag bool
		if err := json.Unmarshal(env.Data, &flag); err == nil {
			ing.handler.HandleStateFlag(flag)
			return nil
		}
		snap, err := decodeSnapshot(&env)
		if err != nil {
			return err
		}
		ing.handler.HandleStateSnapshot(snap)
		return nil
	case TypeSimulationSummary:
		var sum Summary
		if err := env.DecodePayload(&sum); err != nil {
			return fmt.Errorf("payload decode for %s: %w", env.Type, err)
		}
		ing.handler.HandleSummary(&sum)
		return nil
	case TypeStateUpdated:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
}

func decodeString(fn func(string), env *Envelope) error {
	var s string
	if err := env.DecodePayload(&s); err != nil {
		return fmt.Errorf("payload decode for %s: %w", env.Type, err)
	}
	fn(s)
	return nil
}

func decodeSnapshot(env *Envelope) (*Snapshot, error) {
	if emptyData(env.Data) {
		return nil, fmt.Errorf("payload decode for %s: %w: empty data", env.Type, ErrInvalidSnapshot)
	}
	var snap Snapshot
	if err := env.DecodePayload(&snap); err != nil {
		return nil, fmt.Errorf("payload decode for %s: %w", env.Type, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Type, err)
	}
	return &snap, nil
}

// emptyData reports a missing or null payload, which json.Unmarshal would
// otherwise accept as a zero value.
func emptyData(data json.RawMessage) bool {
	d := bytes.TrimSpace(data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}
