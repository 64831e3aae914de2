// Package xtrap scopes batches of display-server requests so their failures
// are inspected exactly once, at scope exit. Scopes nest through a depth
// counter; only the outermost exit walks the accumulated checks, which is
// what forces the server round trip.
package xtrap

import (
	"fmt"
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// ProtocolError is a display-server failure reported inside a Sync scope,
// carrying the server's symbolic error name.
type ProtocolError struct {
	Op   string
	Name string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Name, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// errorName maps an xgb error to its protocol name ("BadWindow" etc).
func errorName(err error) string {
	switch e := err.(type) {
	case xproto.WindowError:
		return "BadWindow"
	case xproto.DrawableError:
		return "BadDrawable"
	case xproto.MatchError:
		return "BadMatch"
	case xproto.AccessError:
		return "BadAccess"
	case xproto.ValueError:
		return "BadValue"
	case xproto.AtomError:
		return "BadAtom"
	case xproto.PixmapError:
		return "BadPixmap"
	case xproto.AllocError:
		return "BadAlloc"
	case xgb.Error:
		return fmt.Sprintf("X error %d", e.SequenceId())
	default:
		return "unknown"
	}
}

// IsBadWindow reports whether err means the window no longer exists, which
// teardown paths treat as data rather than failure.
func IsBadWindow(err error) bool {
	for err != nil {
		switch err.(type) {
		case xproto.WindowError, xproto.DrawableError:
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

type pendingCheck struct {
	op    string
	check func() error
}

// Trap owns the pending checks of the current transaction stack. It lives on
// the event-loop goroutine and must not be shared.
type Trap struct {
	log     *slog.Logger
	depth   int
	pending []pendingCheck
}

func New(log *slog.Logger) *Trap {
	return &Trap{log: log}
}

// Add parks a cookie check to be inspected when the outermost scope exits.
// Outside any scope the check runs immediately under the Log policy.
func (t *Trap) Add(op string, check func() error) {
	if t.depth == 0 {
		if err := check(); err != nil {
			t.log.Warn("Unscoped request failed", "op", op, "error", err)
		}
		return
	}
	t.pending = append(t.pending, pendingCheck{op, check})
}

func (t *Trap) push() {
	t.depth++
}

// pop drains the pending checks at the outermost exit and hands each failure
// to report. Inner exits return immediately, keeping nesting round-trip-free.
func (t *Trap) pop(report func(op string, err error) bool) error {
	t.depth--
	if t.depth > 0 {
		return nil
	}
	pending := t.pending
	t.pending = nil
	for _, p := range pending {
		if err := p.check(); err != nil {
			if !report(p.op, err) {
				return &ProtocolError{Op: p.op, Name: errorName(err), Err: err}
			}
		}
	}
	return nil
}

// Sync runs fn in a scope whose first failure aborts with a ProtocolError.
func (t *Trap) Sync(fn func() error) error {
	t.push()
	if err := fn(); err != nil {
		t.pop(func(op string, perr error) bool {
			t.log.Debug("Aborted scope had pending failure", "op", op, "error", perr)
			return true
		})
		return err
	}
	return t.pop(func(op string, err error) bool { return false })
}

// Swallow runs fn best-effort; failures are logged at debug and dropped.
// A vanished window must never crash the manager.
func (t *Trap) Swallow(fn func()) {
	t.push()
	fn()
	t.pop(func(op string, err error) bool {
		t.log.Debug("Swallowed request failure", "op", op, "error", err)
		return true
	})
}

// Log runs fn and logs failures at warn, continuing past each.
func (t *Trap) Log(fn func()) {
	t.push()
	fn()
	t.pop(func(op string, err error) bool {
		t.log.Warn("Request failed", "op", op, "error", err)
		return true
	})
}
