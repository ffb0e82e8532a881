package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fleetview/config"
	"fleetview/messaging"
	"fleetview/protocol"
)

// ErrNotConnected is returned by commands issued while the transport is down.
var ErrNotConnected = messaging.ErrNotConnected

// Command names reported through EmitCommand.
const (
	CommandInit     = "init"
	CommandStop     = "stop"
	CommandFailures = "update-failures"
	CommandResync   = "resync"
)

type LogFunc func(format string, args ...any)

// Controller owns one logical connection to the simulation backend: its
// lifecycle state, the latest snapshot and the last run summary.
type Controller struct {
	transport messaging.Transport
	cfg       *config.MessagingConfig
	emitter   Emitter
	logFn     LogFunc
	ingestor  *protocol.Ingestor
	tracker   *Tracker

	mu      sync.RWMutex
	state   State
	errMsg  string
	detail  string
	snap    *protocol.Snapshot
	summary *protocol.Summary
}

// NewController wires a controller to its transport. It subscribes the
// snapshot topic immediately; the transport delivers once connected.
func NewController(transport messaging.Transport, cfg *config.MessagingConfig, emitter Emitter, logFn LogFunc) *Controller {
	if logFn == nil {
		logFn = log.Printf
	}
	c := &Controller{
		transport: transport,
		cfg:       cfg,
		emitter:   emitter,
		logFn:     logFn,
		tracker:   NewTracker(),
	}
	c.ingestor = protocol.NewIngestor(&inbound{c: c}, protocol.LogFunc(logFn))
	transport.SetStatusHandler(c.onTransportStatus)
	return c
}

// Connect opens the transport. On failure the session stays DISCONNECTED
// with the cause recorded; nothing is retried.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Online() || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	c.transition(StateConnecting, "", "connecting")

	if err := c.transport.Subscribe(c.cfg.Topic, c.HandleRaw); err != nil {
		return c.connectFailed(err)
	}
	if err := c.transport.Connect(ctx); err != nil {
		return c.connectFailed(err)
	}
	c.markConnected()
	return nil
}

func (c *Controller) connectFailed(err error) error {
	c.transport.Close()
	c.logFn("session: connect failed: %v", err)
	c.transition(StateDisconnected, err.Error(), "connect failed")
	return fmt.Errorf("connect: %w", err)
}

// markConnected moves a connecting session online. It is idempotent so the
// transport's own status callback and Connect may both call it.
func (c *Controller) markConnected() {
	c.mu.Lock()
	if c.state != StateConnecting && c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	old := c.statusLocked()
	c.state, c.errMsg, c.detail = StateConnected, "", "subscribed to "+c.cfg.Topic
	cur := c.statusLocked()
	c.mu.Unlock()
	c.emitter.EmitStateChanged(old, cur)

	if c.cfg.Commands.Resync != "" {
		err := c.transport.Publish(c.cfg.Commands.Resync, []byte(`{}`))
		c.emitter.EmitCommand(CommandResync, err)
		if err != nil {
			c.logFn("session: resync: %v", err)
		}
	}
}

func (c *Controller) onTransportStatus(connected bool, err error) {
	if connected {
		c.mu.RLock()
		pending := c.state == StateConnecting
		c.mu.RUnlock()
		if pending {
			c.markConnected()
		}
		return
	}
	if err == nil {
		return
	}
	c.mu.RLock()
	online := c.state.Online()
	c.mu.RUnlock()
	if online {
		c.transition(StateConnecting, "connection lost: "+err.Error(), "reconnecting")
	}
}

// Disconnect tears the transport down from any state.
func (c *Controller) Disconnect() {
	c.transport.Close()
	c.transition(StateDisconnected, "", "disconnected")
}

// HandleRaw feeds one raw message from the snapshot topic.
func (c *Controller) HandleRaw(data []byte) {
	if err := c.ingestor.HandleRaw(data); err != nil {
		c.emitter.EmitMessage("", err)
	}
}

// StartSimulation publishes the init command for a run beginning at start.
func (c *Controller) StartSimulation(start time.Time) error {
	return c.publish(CommandInit, c.cfg.Commands.Init, protocol.InitCommand{InitialTime: protocol.TimePartsOf(start)})
}

// StopSimulation requests a graceful stop.
func (c *Controller) StopSimulation() error {
	return c.publish(CommandStop, c.cfg.Commands.Stop, protocol.StopCommand{})
}

// RegisterFailure reports a vehicle breakdown. An empty shift is derived
// from the current snapshot minute.
func (c *Controller) RegisterFailure(plate, kind, shift string) error {
	if shift == "" {
		c.mu.RLock()
		snap := c.snap
		c.mu.RUnlock()
		if snap == nil {
			return fmt.Errorf("%w: shift is required while no snapshot is loaded", protocol.ErrInvalidCommand)
		}
		t, err := protocol.ParseMinute(snap.Minute)
		if err != nil {
			return fmt.Errorf("%w: derive shift: %v", protocol.ErrInvalidCommand, err)
		}
		shift = protocol.ShiftFor(t.Hour())
	}
	cmd := protocol.FailureCommand{VehiclePlaque: plate, Type: kind, ShiftOccurredOn: shift}
	if err := cmd.Validate(); err != nil {
		return err
	}
	return c.publish(CommandFailures, c.cfg.Commands.Failures, cmd)
}

func (c *Controller) publish(name, dest string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	err = c.transport.Publish(dest, data)
	c.emitter.EmitCommand(name, err)
	if errors.Is(err, messaging.ErrNotConnected) {
		c.emitter.EmitNotice("warning", "not connected")
		return ErrNotConnected
	}
	if err != nil {
		c.logFn("session: publish %s: %v", name, err)
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// Snapshot returns the latest applied snapshot, or nil.
func (c *Controller) Snapshot() *protocol.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Summary returns the summary of the last finished run, or nil.
func (c *Controller) Summary() *protocol.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

// Simulating reports whether a run is in progress.
func (c *Controller) Simulating() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateSimulating
}

// Tracker returns the statistics of the current run.
func (c *Controller) Tracker() RunStats {
	return c.tracker.Stats()
}

func (c *Controller) statusLocked() Status {
	return newStatus(c.state, c.errMsg, c.detail)
}

func (c *Controller) transition(state State, errMsg, detail string) {
	c.mu.Lock()
	old := c.statusLocked()
	c.state, c.errMsg, c.detail = state, errMsg, detail
	cur := c.statusLocked()
	c.mu.Unlock()
	if old != cur {
		c.emitter.EmitStateChanged(old, cur)
	}
}

// runTransition changes the run state only while the transport is online.
func (c *Controller) runTransition(state State, errMsg, detail string) {
	c.mu.RLock()
	online := c.state.Online()
	c.mu.RUnlock()
	if online {
		c.transition(state, errMsg, detail)
	}
}

func (c *Controller) apply(snap *protocol.Snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	c.tracker.Observe(snap)
	c.emitter.EmitSnapshotApplied(snap)
}

// Restore seeds the latest snapshot and summary from a cache before the
// backend has sent anything. It leaves the state and the run tracker alone
// and is ignored once a snapshot has been received.
func (c *Controller) Restore(snap *protocol.Snapshot, sum *protocol.Summary) {
	c.mu.Lock()
	if c.snap != nil {
		c.mu.Unlock()
		return
	}
	c.snap = snap
	if c.summary == nil {
		c.summary = sum
	}
	c.mu.Unlock()
	if snap != nil {
		c.emitter.EmitSnapshotApplied(snap)
	}
}

// inbound receives decoded messages from the ingestor.
type inbound struct {
	c *Controller
}

func (h *inbound) HandleLoading(status string) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationLoading, nil)
	h.c.runTransition(StateSimulating, "", status)
}

func (h *inbound) HandleStarted(status string) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationStarted, nil)
	h.c.tracker.Reset()
	h.c.mu.Lock()
	h.c.summary = nil
	h.c.mu.Unlock()
	h.c.runTransition(StateSimulating, "", status)
}

func (h *inbound) HandleError(message string) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationError, nil)
	h.c.logFn("session: simulation error: %s", message)
	h.c.runTransition(StatePaused, message, "simulation error")
	h.c.emitter.EmitNotice("error", message)
}

func (h *inbound) HandleStopped(status string) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationStopped, nil)
	h.c.mu.Lock()
	h.c.snap = nil
	h.c.mu.Unlock()
	h.c.runTransition(StatePaused, "", status)
	h.c.emitter.EmitCanvasCleared()
}

func (h *inbound) HandleUpdate(snap *protocol.Snapshot) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationUpdate, nil)
	h.c.apply(snap)
}

func (h *inbound) HandleStateFlag(simulating bool) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationState, nil)
	if simulating {
		h.c.runTransition(StateSimulating, "", "resynced: running")
		return
	}
	if h.c.Simulating() {
		h.c.runTransition(StatePaused, "", "resynced: idle")
	}
}

func (h *inbound) HandleStateSnapshot(snap *protocol.Snapshot) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationState, nil)
	h.c.apply(snap)
}

func (h *inbound) HandleSummary(sum *protocol.Summary) {
	h.c.emitter.EmitMessage(protocol.TypeSimulationSummary, nil)
	h.c.mu.Lock()
	h.c.summary = sum
	h.c.mu.Unlock()
	h.c.runTransition(StatePaused, "", "run finished")
	h.c.emitter.EmitSummary(sum)
}
