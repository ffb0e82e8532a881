package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleetview/config"

	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
)

var errClosed = errors.New("transport closed")

// STOMPTransport speaks STOMP over a WebSocket. After an established
// connection drops it redials every ReconnectDelay and restores all
// subscriptions; a failed initial Connect is reported to the caller instead.
type STOMPTransport struct {
	cfg    *config.STOMPConfig
	logFn  LogFunc
	dialer *websocket.Dialer

	mu       sync.RWMutex
	conn     *stomp.Conn
	rw       *wsConn
	gen      int
	handlers map[string]func([]byte)
	subs     map[string]*stomp.Subscription
	status   StatusFunc
	closed   bool
	done     chan struct{}
}

// NewSTOMPTransport creates a transport for the given endpoint settings.
func NewSTOMPTransport(cfg *config.STOMPConfig, logFn LogFunc) *STOMPTransport {
	return &STOMPTransport{
		cfg:   cfg,
		logFn: logFn,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{"v12.stomp", "v11.stomp", "v10.stomp"},
		},
		handlers: make(map[string]func([]byte)),
		subs:     make(map[string]*stomp.Subscription),
		done:     make(chan struct{}),
	}
}

func (t *STOMPTransport) SetStatusHandler(fn StatusFunc) {
	t.mu.Lock()
	t.status = fn
	t.mu.Unlock()
}

func (t *STOMPTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn != nil
}

func (t *STOMPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	if t.closed {
		t.closed = false
		t.done = make(chan struct{})
	}
	done := t.done
	t.mu.Unlock()
	return t.dial(ctx, done)
}

func (t *STOMPTransport) dial(ctx context.Context, done chan struct{}) error {
	ws, _, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("stomp dial %s: %w", t.cfg.URL, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		ws.SetReadDeadline(dl)
		ws.SetWriteDeadline(dl)
	}
	rw := newWSConn(ws)
	conn, err := stomp.Connect(rw, t.options()...)
	if err != nil {
		rw.Close()
		return fmt.Errorf("stomp connect: %w", err)
	}
	ws.SetReadDeadline(time.Time{})
	ws.SetWriteDeadline(time.Time{})

	t.mu.Lock()
	if t.closed || t.done != done || t.conn != nil {
		superseded := t.conn != nil && !t.closed
		t.mu.Unlock()
		conn.MustDisconnect()
		rw.Close()
		if superseded {
			return nil
		}
		return errClosed
	}
	t.conn, t.rw = conn, rw
	t.gen++
	gen := t.gen
	var subErr error
	for dest, h := range t.handlers {
		if subErr = t.subscribeLocked(gen, dest, h); subErr != nil {
			break
		}
	}
	if subErr != nil {
		t.teardownLocked()
		t.mu.Unlock()
		return subErr
	}
	t.mu.Unlock()

	t.logFn("messaging: stomp connected to %s", t.cfg.URL)
	t.notify(true, nil)
	return nil
}

func (t *STOMPTransport) options() []func(*stomp.Conn) error {
	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.HeartBeat(t.cfg.Heartbeat, t.cfg.Heartbeat),
	}
	if t.cfg.Host != "" {
		opts = append(opts, stomp.ConnOpt.Host(t.cfg.Host))
	}
	if t.cfg.Login != "" {
		opts = append(opts, stomp.ConnOpt.Login(t.cfg.Login, t.cfg.Passcode))
	}
	return opts
}

func (t *STOMPTransport) Subscribe(dest string, handler func([]byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[dest] = handler
	if t.conn == nil {
		return nil
	}
	if old, ok := t.subs[dest]; ok {
		delete(t.subs, dest)
		old.Unsubscribe()
	}
	return t.subscribeLocked(t.gen, dest, handler)
}

func (t *STOMPTransport) subscribeLocked(gen int, dest string, handler func([]byte)) error {
	sub, err := t.conn.Subscribe(dest, stomp.AckAuto)
	if err != nil {
		return fmt.Errorf("stomp subscribe %s: %w", dest, err)
	}
	t.subs[dest] = sub
	go t.pump(gen, dest, sub, handler)
	return nil
}

func (t *STOMPTransport) pump(gen int, dest string, sub *stomp.Subscription, handler func([]byte)) {
	for msg := range sub.C {
		if msg.Err != nil {
			t.lost(gen, dest, sub, msg.Err)
			return
		}
		handler(msg.Body)
	}
	t.lost(gen, dest, sub, errors.New("subscription closed by server"))
}

// lost handles an unexpected end of the connection observed by one of its
// subscriptions.
func (t *STOMPTransport) lost(gen int, dest string, sub *stomp.Subscription, cause error) {
	t.mu.Lock()
	if t.closed || gen != t.gen || t.conn == nil || t.subs[dest] != sub {
		t.mu.Unlock()
		return
	}
	t.teardownLocked()
	done := t.done
	t.mu.Unlock()

	t.logFn("messaging: stomp connection lost: %v", cause)
	t.notify(false, cause)
	go t.reconnect(done)
}

func (t *STOMPTransport) reconnect(done chan struct{}) {
	delay := t.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-done:
			return
		case <-timer.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*delay)
		err := t.dial(ctx, done)
		cancel()
		if err == nil || errors.Is(err, errClosed) {
			return
		}
		t.logFn("messaging: stomp reconnect: %v", err)
		timer.Reset(delay)
	}
}

func (t *STOMPTransport) teardownLocked() {
	if t.conn != nil {
		t.conn.MustDisconnect()
		t.conn = nil
	}
	if t.rw != nil {
		t.rw.Close()
		t.rw = nil
	}
	t.subs = make(map[string]*stomp.Subscription)
}

func (t *STOMPTransport) Publish(dest string, payload []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.Send(dest, "application/json", payload); err != nil {
		return fmt.Errorf("stomp send %s: %w", dest, err)
	}
	return nil
}

func (t *STOMPTransport) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	conn, rw := t.conn, t.rw
	t.conn, t.rw = nil, nil
	t.subs = make(map[string]*stomp.Subscription)
	t.mu.Unlock()

	if conn == nil {
		return
	}
	disconnected := make(chan struct{})
	go func() {
		conn.Disconnect()
		close(disconnected)
	}()
	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		conn.MustDisconnect()
	}
	rw.Close()
	t.logFn("messaging: stomp disconnected")
	t.notify(false, nil)
}

func (t *STOMPTransport) notify(connected bool, err error) {
	t.mu.RLock()
	fn := t.status
	t.mu.RUnlock()
	if fn != nil {
		fn(connected, err)
	}
}
