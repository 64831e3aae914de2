package xwm

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/xprop"
)

// ErrSelectionOwned reports that another window manager holds the screen
// selection and a forced takeover was not requested.
var ErrSelectionOwned = errors.New("another window manager is already active")

const (
	// how long a previous owner gets to destroy its selection window
	takeoverTimeout  = 5 * time.Second
	takeoverInterval = 50 * time.Millisecond
)

// Selection owns the WM_Sn manager selection per ICCCM 2.8. Acquiring it is
// what makes this process *the* window manager for the screen.
type Selection struct {
	conn  *xgb.Conn
	props *xprop.Client
	log   *slog.Logger

	name   string
	atom   xproto.Atom
	window xproto.Window
	time   xproto.Timestamp
}

func NewSelection(conn *xgb.Conn, props *xprop.Client, log *slog.Logger, name string) *Selection {
	return &Selection{conn: conn, props: props, log: log, name: name}
}

func (s *Selection) Atom() xproto.Atom { return s.atom }

func (s *Selection) Window() xproto.Window { return s.window }

// Timestamp is the server time at which the selection was acquired.
func (s *Selection) Timestamp() xproto.Timestamp { return s.time }

// Owns reports whether a SelectionClear event revokes our ownership.
func (s *Selection) Owns(ev xproto.SelectionClearEvent) bool {
	return ev.Selection == s.atom && ev.Owner == s.window
}

// Acquire claims the selection. With replace it waits for the previous
// owner's selection window to be destroyed, under a hard timeout; without,
// a held selection is an error. Must run before the event dispatch loop:
// it reads events off the connection directly.
func (s *Selection) Acquire(root xproto.Window, replace bool) error {
	atom, err := s.props.Atoms().Intern(s.name)
	if err != nil {
		return fmt.Errorf("intern %s: %w", s.name, err)
	}
	s.atom = atom

	prior, err := xproto.GetSelectionOwner(s.conn, atom).Reply()
	if err != nil {
		return fmt.Errorf("get selection owner: %w", err)
	}
	if prior.Owner != xproto.WindowNone && !replace {
		return fmt.Errorf("%s is owned by %#x: %w", s.name, prior.Owner, ErrSelectionOwned)
	}

	window, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return err
	}
	if err := xproto.CreateWindowChecked(s.conn, 0, window, root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, 0,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		return fmt.Errorf("create selection window: %w", err)
	}
	s.window = window

	ts, err := s.serverTimestamp()
	if err != nil {
		return err
	}
	s.time = ts

	// CurrentTime is forbidden here: a stale SetSelectionOwner must lose
	if err := xproto.SetSelectionOwnerChecked(s.conn, window, atom, ts).Check(); err != nil {
		return fmt.Errorf("set selection owner: %w", err)
	}
	check, err := xproto.GetSelectionOwner(s.conn, atom).Reply()
	if err != nil {
		return fmt.Errorf("verify selection owner: %w", err)
	}
	if check.Owner != window {
		return fmt.Errorf("failed to acquire %s, owner is %#x", s.name, check.Owner)
	}

	if prior.Owner != xproto.WindowNone {
		if err := s.awaitPriorOwnerGone(prior.Owner); err != nil {
			return err
		}
	}

	return s.announce(root)
}

// serverTimestamp fetches a real server timestamp by appending to a property
// on our own window and reading the resulting PropertyNotify.
func (s *Selection) serverTimestamp() (xproto.Timestamp, error) {
	stamp := s.props.Atoms().MustIntern("_TIMESTAMP_PROP")
	if err := xproto.ChangePropertyChecked(s.conn, xproto.PropModeAppend, s.window,
		stamp, xproto.AtomInteger, 8, 0, nil).Check(); err != nil {
		return 0, fmt.Errorf("timestamp property: %w", err)
	}
	for {
		ev, err := s.conn.WaitForEvent()
		if err != nil {
			continue
		}
		if ev == nil {
			return 0, errors.New("connection closed while waiting for timestamp")
		}
		if pn, ok := ev.(xproto.PropertyNotifyEvent); ok && pn.Window == s.window && pn.Atom == stamp {
			return pn.Time, nil
		}
		s.log.Debug("Discarding event while waiting for timestamp", "event", ev)
	}
}

// awaitPriorOwnerGone polls the previous owner's selection window until the
// server says it no longer exists.
func (s *Selection) awaitPriorOwnerGone(owner xproto.Window) error {
	s.log.Info("Waiting for previous window manager to exit", "owner", uint32(owner))
	deadline := time.Now().Add(takeoverTimeout)
	for {
		_, err := xproto.GetGeometry(s.conn, xproto.Drawable(owner)).Reply()
		if err != nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for the previous owner of %s to exit", s.name)
		}
		time.Sleep(takeoverInterval)
	}
}

// announce broadcasts the MANAGER client message on the root window so
// clients learn about the new selection owner (ICCCM 2.8).
func (s *Selection) announce(root xproto.Window) error {
	manager := s.props.Atoms().MustIntern("MANAGER")
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: root,
		Type:   manager,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(s.time), uint32(s.atom), uint32(s.window), 0, 0,
		}),
	}
	return xproto.SendEventChecked(s.conn, false, root,
		xproto.EventMaskStructureNotify, string(ev.Bytes())).Check()
}

// Release gives the selection up and destroys the selection window.
func (s *Selection) Release() {
	if s.window == 0 {
		return
	}
	xproto.SetSelectionOwner(s.conn, xproto.WindowNone, s.atom, s.time)
	xproto.DestroyWindow(s.conn, s.window)
	s.window = 0
}
