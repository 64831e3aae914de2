package xwm

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/bus"
)

// OverrideWindow tracks an override-redirect window. These bypass the
// manage protocol entirely: no corral, no reparenting, no geometry
// negotiation, just passive property and geometry tracking.
type OverrideWindow struct {
	*Model

	savedEventMask uint32
}

// ManageOverrideRedirect brings an override-redirect window under passive
// tracking. An unmapped override-redirect window is by definition invisible
// and will never be shown again, so it is rejected outright.
func ManageOverrideRedirect(d Deps, xid xproto.Window) (*OverrideWindow, error) {
	return manageTracked(d, xid, KindOverrideRedirect)
}

func manageTracked(d Deps, xid xproto.Window, kind Kind) (*OverrideWindow, error) {
	w := &OverrideWindow{Model: newModel(d, xid, kind)}
	w.lifecycle = Managing
	if err := w.setup(); err != nil {
		w.Unmanage(false)
		if u, ok := err.(*Unmanageable); ok {
			return nil, u
		}
		return nil, unmanageable(xid, "setup failed", err)
	}
	w.lifecycle = LifecycleManaged
	w.setupDone = true
	w.bus.WindowManaged.Publish(bus.WindowManaged{UUID: w.UUID, XID: uint32(w.xid)})
	return w, nil
}

func (w *OverrideWindow) setup() error {
	err := w.trap.Sync(func() error {
		attr, err := xproto.GetWindowAttributes(w.conn, w.xid).Reply()
		if err != nil {
			return unmanageable(w.xid, "window disappeared already", err)
		}
		if attr.MapState == xproto.MapStateUnmapped {
			return unmanageable(w.xid, "window already unmapped", nil)
		}
		w.savedEventMask = attr.YourEventMask
		geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.xid)).Reply()
		if err != nil {
			return unmanageable(w.xid, "window disappeared already", err)
		}
		w.values["geometry"] = Geometry{X: int(geom.X), Y: int(geom.Y), W: int(geom.Width), H: int(geom.Height)}

		ev := xproto.ChangeWindowAttributesChecked(w.conn, w.xid, xproto.CwEventMask,
			[]uint32{w.savedEventMask | xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify})
		w.trap.Add("select events", ev.Check)
		w.selectShapeInput()
		return nil
	})
	if err != nil {
		return err
	}
	w.removeRouter = w.Router.Register(w.xid, w.routeEvent)
	return w.trap.Sync(w.readInitialProps)
}

func (w *OverrideWindow) routeEvent(ev xgb.Event) {
	if w.lifecycle != LifecycleManaged && w.lifecycle != Managing {
		return
	}
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		w.handlePropertyChange(w.atomName(e.Atom))
	case xproto.ConfigureNotifyEvent:
		if e.Window == w.xid {
			w.updateProp("geometry", Geometry{X: int(e.X), Y: int(e.Y), W: int(e.Width), H: int(e.Height)})
		}
	case xproto.UnmapNotifyEvent:
		w.Unmanage(false)
	case xproto.DestroyNotifyEvent:
		w.Unmanage(false)
	case xproto.ClientMessageEvent:
		if e.Format != 32 {
			return
		}
		var data [5]uint32
		copy(data[:], e.Data.Data32)
		w.handleClientMessage(w.atomName(e.Type), data, uint32(e.Sequence))
	case shape.NotifyEvent:
		w.handleShapeEvent(uint32(e.Sequence), e.Shaped)
	}
}

// Unmanage stops tracking. There is nothing to reverse beyond the event
// mask; the window was never touched.
func (w *OverrideWindow) Unmanage(wmExiting bool) {
	proceed, wasManaged := w.beginUnmanage()
	if !proceed {
		return
	}
	w.trap.Swallow(func() {
		ev := xproto.ChangeWindowAttributesChecked(w.conn, w.xid, xproto.CwEventMask,
			[]uint32{w.savedEventMask})
		w.trap.Add("restore event mask", ev.Check)
	})
	w.endUnmanage(wasManaged)
}
