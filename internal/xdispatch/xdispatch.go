// Package xdispatch routes raw display events to registered receivers keyed
// by window id, with per-event-kind fallback lists and a catch-all list. The
// router is owned by the root controller and passed to model constructors;
// it is only touched from the event-loop goroutine.
package xdispatch

import (
	"log/slog"
	"reflect"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xproto"
)

type Handler func(ev xgb.Event)

type Router struct {
	log      *slog.Logger
	byWindow map[xproto.Window][]*registration
	fallback map[reflect.Type][]*registration
	catchAll []*registration
}

type registration struct {
	handler Handler
	removed bool
}

func NewRouter(log *slog.Logger) *Router {
	return &Router{
		log:      log,
		byWindow: make(map[xproto.Window][]*registration),
		fallback: make(map[reflect.Type][]*registration),
	}
}

// Target extracts the window a routed event is about. Substructure events
// carry both the selecting window and the affected child; routing always
// keys on the affected child.
func Target(ev xgb.Event) (xproto.Window, bool) {
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		return e.Window, true
	case xproto.ClientMessageEvent:
		return e.Window, true
	case xproto.ConfigureNotifyEvent:
		return e.Window, true
	case xproto.ConfigureRequestEvent:
		return e.Window, true
	case xproto.MapRequestEvent:
		return e.Window, true
	case xproto.MapNotifyEvent:
		return e.Window, true
	case xproto.UnmapNotifyEvent:
		return e.Window, true
	case xproto.DestroyNotifyEvent:
		return e.Window, true
	case xproto.CreateNotifyEvent:
		return e.Window, true
	case xproto.ReparentNotifyEvent:
		return e.Window, true
	case xproto.CirculateRequestEvent:
		return e.Window, true
	case xproto.FocusInEvent:
		return e.Event, true
	case xproto.FocusOutEvent:
		return e.Event, true
	case shape.NotifyEvent:
		return xproto.Window(e.AffectedWindow), true
	default:
		return 0, false
	}
}

// Register delivers events targeting win to handler until the returned
// remove function is called. Remove is safe to call during dispatch.
func (r *Router) Register(win xproto.Window, handler Handler) (remove func()) {
	reg := &registration{handler: handler}
	r.byWindow[win] = append(r.byWindow[win], reg)
	return func() {
		reg.removed = true
		r.byWindow[win] = withoutRemoved(r.byWindow[win])
		if len(r.byWindow[win]) == 0 {
			delete(r.byWindow, win)
		}
	}
}

// RegisterFallback delivers events of sample's kind that no window receiver
// claimed.
func (r *Router) RegisterFallback(sample xgb.Event, handler Handler) (remove func()) {
	key := reflect.TypeOf(sample)
	reg := &registration{handler: handler}
	r.fallback[key] = append(r.fallback[key], reg)
	return func() {
		reg.removed = true
		r.fallback[key] = withoutRemoved(r.fallback[key])
	}
}

// RegisterCatchAll delivers every event, after window and fallback delivery.
func (r *Router) RegisterCatchAll(handler Handler) (remove func()) {
	reg := &registration{handler: handler}
	r.catchAll = append(r.catchAll, reg)
	return func() {
		reg.removed = true
		r.catchAll = withoutRemoved(r.catchAll)
	}
}

func withoutRemoved(regs []*registration) []*registration {
	out := regs[:0]
	for _, reg := range regs {
		if !reg.removed {
			out = append(out, reg)
		}
	}
	return out
}

// Dispatch fans ev out. Handlers may register and unregister receivers while
// running, so every list is snapshotted first.
func (r *Router) Dispatch(ev xgb.Event) {
	claimed := false
	if win, ok := Target(ev); ok {
		if regs := r.byWindow[win]; len(regs) > 0 {
			claimed = true
			for _, reg := range snapshot(regs) {
				if !reg.removed {
					reg.handler(ev)
				}
			}
		}
	}
	if !claimed {
		if regs := r.fallback[reflect.TypeOf(ev)]; len(regs) > 0 {
			for _, reg := range snapshot(regs) {
				if !reg.removed {
					reg.handler(ev)
				}
			}
		} else if len(r.catchAll) == 0 {
			r.log.Debug("Unrouted event", "event", ev)
		}
	}
	for _, reg := range snapshot(r.catchAll) {
		if !reg.removed {
			reg.handler(ev)
		}
	}
}

func snapshot(regs []*registration) []*registration {
	out := make([]*registration, len(regs))
	copy(out, regs)
	return out
}
