// Package bus carries change notifications from the window manager core up
// to the session layer. It is an explicit object passed to constructors, not
// process-wide state, so tests can run with their own instance.
package bus

import (
	"sync"
)

type WindowManaged struct {
	UUID string
	XID  uint32
}

type WindowUnmanaged struct {
	UUID string
	XID  uint32
}

// WindowChanged names one exposed dynamic property whose value changed.
type WindowChanged struct {
	UUID     string
	XID      uint32
	Property string
}

type ShowDesktop struct {
	Show bool
}

// WindowRestack asks the session layer to restack a window; Detail is the
// X11 stack mode, Sibling the reference window (0 for none).
type WindowRestack struct {
	UUID    string
	XID     uint32
	Detail  uint32
	Sibling uint32
}

// WindowMoveResize reports a client-initiated interactive move/resize.
type WindowMoveResize struct {
	UUID      string
	XID       uint32
	XRoot     int
	YRoot     int
	Direction uint32
}

type Bus struct {
	WindowManaged    *Hub[WindowManaged]
	WindowUnmanaged  *Hub[WindowUnmanaged]
	WindowChanged    *Hub[WindowChanged]
	WindowRestack    *Hub[WindowRestack]
	WindowMoveResize *Hub[WindowMoveResize]
	ShowDesktop      *Hub[ShowDesktop]
}

func New() *Bus {
	return &Bus{
		WindowManaged:    NewHub[WindowManaged](),
		WindowUnmanaged:  NewHub[WindowUnmanaged](),
		WindowChanged:    NewHub[WindowChanged](),
		WindowRestack:    NewHub[WindowRestack](),
		WindowMoveResize: NewHub[WindowMoveResize](),
		ShowDesktop:      NewHub[ShowDesktop](),
	}
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		mu:   sync.Mutex{},
		subs: make(map[*chan T]struct{}),
	}
}

type Hub[T any] struct {
	mu   sync.Mutex
	subs map[*chan T]struct{}
}

// Publish never blocks; subscribers that are not draining miss the event.
func (h *Hub[T]) Publish(event T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case *sub <- event:
		default:
		}
	}
}

func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	c := make(chan T, 16)

	key := &c
	h.subs[key] = struct{}{}
	h.mu.Unlock()

	return c, func() {
		h.mu.Lock()
		delete(h.subs, key)
		h.mu.Unlock()
	}
}
