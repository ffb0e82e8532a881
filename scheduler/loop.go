package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

type LogFunc func(format string, args ...any)

// Loop redraws at a fixed interval for as long as active reports true. When
// active turns false the loop draws one last frame and parks until Arm is
// called again, so an idle session costs nothing.
type Loop struct {
	interval time.Duration
	active   func() bool
	draw     func()
	logFn    LogFunc

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	arm    chan struct{}

	ticking atomic.Bool
	frames  atomic.Uint64
}

func New(interval time.Duration, active func() bool, draw func(), logFn LogFunc) *Loop {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if logFn == nil {
		logFn = log.Printf
	}
	return &Loop{
		interval: interval,
		active:   active,
		draw:     draw,
		logFn:    logFn,
		arm:      make(chan struct{}, 1),
	}
}

// Start launches the loop and draws a first frame. Calling Start on a
// running loop does nothing.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopCh != nil {
		return
	}
	l.stopCh = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stopCh, l.done)
	l.Arm()
}

// Stop cancels any pending frame and waits for the loop goroutine to exit.
// No draw happens after Stop returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	stopCh, done := l.stopCh, l.done
	l.stopCh, l.done = nil, nil
	l.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
	// a stale wake-up must not survive into the next Start
	select {
	case <-l.arm:
	default:
	}
}

// Arm wakes a parked loop. It never blocks; arming a loop that is already
// ticking is harmless.
func (l *Loop) Arm() {
	select {
	case l.arm <- struct{}{}:
	default:
	}
}

// Running reports whether the loop goroutine exists, ticking or parked.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopCh != nil
}

// Ticking reports whether the loop is drawing on every interval.
func (l *Loop) Ticking() bool { return l.ticking.Load() }

// Frames returns the number of frames drawn since construction.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

func (l *Loop) run(stopCh, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stopCh:
			return
		case <-l.arm:
		}
		if !l.spin(stopCh) {
			return
		}
	}
}

// spin draws immediately, then on every tick until active turns false. It
// returns false when the loop was stopped.
func (l *Loop) spin(stopCh chan struct{}) bool {
	l.frame()
	if !l.active() {
		return true
	}

	l.ticking.Store(true)
	defer l.ticking.Store(false)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return false
		case <-ticker.C:
		}
		l.frame()
		if !l.active() {
			return true
		}
	}
}

func (l *Loop) frame() {
	defer func() {
		if r := recover(); r != nil {
			l.logFn("scheduler: frame panic: %v", r)
		}
	}()
	l.draw()
	l.frames.Add(1)
}
