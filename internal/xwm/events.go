package xwm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/xdispatch"
)

// Loop is the single event-loop goroutine everything in this package runs
// on. Display events and deferred calls are serialized through it, so the
// models never need locks.
type Loop struct {
	conn   *xgb.Conn
	router *xdispatch.Router
	log    *slog.Logger

	calls chan func()
	time  xproto.Timestamp
}

func NewLoop(conn *xgb.Conn, router *xdispatch.Router, log *slog.Logger) *Loop {
	return &Loop{
		conn:   conn,
		router: router,
		log:    log.With("component", "loop"),
		calls:  make(chan func(), 64),
	}
}

// Timestamp is the most recent server time seen on the wire. Only valid on
// the loop goroutine.
func (l *Loop) Timestamp() xproto.Timestamp { return l.time }

// SeedTimestamp primes the clock before the loop starts.
func (l *Loop) SeedTimestamp(t xproto.Timestamp) { l.time = t }

// Call queues fn onto the loop goroutine and returns immediately.
func (l *Loop) Call(fn func()) {
	l.calls <- fn
}

// CallWait runs fn on the loop goroutine and waits for it to finish; this
// is how other goroutines, the session API in particular, touch the models.
func (l *Loop) CallWait(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case l.calls <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule runs fn on the loop goroutine after d. The returned cancel is
// best-effort: a callback already queued still runs.
func (l *Loop) Schedule(d time.Duration, fn func()) (cancel func()) {
	timer := time.AfterFunc(d, func() {
		l.Call(fn)
	})
	return func() { timer.Stop() }
}

// Serve pumps display events into the dispatch router until the context is
// canceled or the connection drops.
func (l *Loop) Serve(ctx context.Context) error {
	events := make(chan xgb.Event)
	go l.receive(ctx, events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errors.New("display connection closed")
			}
			l.observeTimestamp(ev)
			l.router.Dispatch(ev)
		case fn := <-l.calls:
			fn()
		}
	}
}

func (l *Loop) receive(ctx context.Context, events chan<- xgb.Event) {
	defer close(events)
	for {
		ev, err := l.conn.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		if err != nil {
			// errors from unchecked requests surface here
			l.log.Warn("Display error", "error", err)
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// observeTimestamp keeps the server clock current from events that carry
// one; CurrentTime must never leak onto the wire in its place.
func (l *Loop) observeTimestamp(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		l.time = e.Time
	case xproto.SelectionClearEvent:
		l.time = e.Time
	case xproto.SelectionRequestEvent:
		l.time = e.Time
	}
}
