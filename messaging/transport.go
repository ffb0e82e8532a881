package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fleetview/config"
)

// ErrNotConnected is returned by Publish when no connection is established.
var ErrNotConnected = errors.New("not connected")

// LogFunc receives transport diagnostics.
type LogFunc func(format string, args ...any)

// StatusFunc is called whenever the transport gains or loses its connection.
// err is nil for an orderly transition.
type StatusFunc func(connected bool, err error)

// Transport is the publish/subscribe channel to the simulation backend.
type Transport interface {
	// Connect opens the connection and restores every registered subscription.
	Connect(ctx context.Context) error
	// Subscribe registers handler for dest. Registrations survive reconnects.
	Subscribe(dest string, handler func(payload []byte)) error
	// Publish sends payload to dest, or returns ErrNotConnected.
	Publish(dest string, payload []byte) error
	IsConnected() bool
	SetStatusHandler(fn StatusFunc)
	// Close tears the connection down from any state. It is safe to call
	// more than once, and Connect may be called again afterwards.
	Close()
}

// NewTransport creates the transport selected by cfg.Backend.
func NewTransport(cfg *config.MessagingConfig, logFn LogFunc) (Transport, error) {
	if logFn == nil {
		logFn = log.Printf
	}
	switch cfg.Backend {
	case "", "stomp":
		return NewSTOMPTransport(&cfg.STOMP, logFn), nil
	case "mqtt", "kafka":
		return NewBrokerTransport(cfg, logFn), nil
	default:
		return nil, fmt.Errorf("unknown messaging backend: %s", cfg.Backend)
	}
}
