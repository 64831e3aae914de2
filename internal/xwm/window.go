package xwm

import (
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/bus"
	"github.com/svwm/svwm/internal/geometry"
	"github.com/svwm/svwm/internal/xprop"
)

var allowedActionAtoms = []string{
	"_NET_WM_ACTION_CLOSE", "_NET_WM_ACTION_MOVE", "_NET_WM_ACTION_RESIZE",
	"_NET_WM_ACTION_FULLSCREEN", "_NET_WM_ACTION_MINIMIZE", "_NET_WM_ACTION_SHADE",
	"_NET_WM_ACTION_STICK", "_NET_WM_ACTION_MAXIMIZE_HORZ", "_NET_WM_ACTION_MAXIMIZE_VERT",
	"_NET_WM_ACTION_CHANGE_DESKTOP", "_NET_WM_ACTION_ABOVE", "_NET_WM_ACTION_BELOW",
}

// SizeConstraints is the externally imposed size policy folded into every
// window's hints.
type SizeConstraints struct {
	MinWidth, MinHeight int
	MaxWidth, MaxHeight int
}

// Window is an ordinary managed client window. The client is reparented
// into a corral window owned by us, which is how position, size and
// stacking are controlled without client cooperation.
type Window struct {
	*Model

	corral       xproto.Window
	constraints  SizeConstraints
	clampOverlap int

	savedEventMask uint32
	inSaveSet      bool
	reparented     bool
	shown          bool

	clientHints xprop.SizeHints
	decorations int // -1 until _MOTIF_WM_HINTS supplies a value
}

// ManageWindow runs the manage protocol on a top-level client window.
// Any failed step tears down partial state and reports Unmanageable.
func ManageWindow(d Deps, xid xproto.Window, constraints SizeConstraints, clampOverlap int) (*Window, error) {
	w := &Window{
		Model:        newModel(d, xid, KindWindow),
		constraints:  constraints,
		clampOverlap: clampOverlap,
		decorations:  -1,
	}
	w.bindWindow()
	w.lifecycle = Managing
	if err := w.setup(); err != nil {
		w.setupFailed()
		if u, ok := err.(*Unmanageable); ok {
			return nil, u
		}
		return nil, unmanageable(xid, "setup failed", err)
	}
	w.lifecycle = LifecycleManaged
	w.setupDone = true
	w.initialWrites()
	if w.Iconic() {
		// WM_HINTS asked for an iconic start, or the previous window
		// manager left the window iconified
		w.Hide()
	}
	return w, nil
}

func (w *Window) bindWindow() {
	w.bindInitial("WM_NORMAL_HINTS", w.handleNormalHintsChange)
	// decorations affect minimum-size enforcement, so motif hints are read
	// after the normal hints and re-run them on change
	w.bindInitial("_MOTIF_WM_HINTS", w.handleMotifHintsChange)
	w.bindInitial("WM_ICON_NAME", w.handleIconTitleChange)
	w.bindWire("_NET_WM_ICON_NAME", w.handleIconTitleChange)
	w.bindInitial("_NET_WM_ICON", w.handleIconsChange)
	w.bindInitial("WM_STATE", w.handleWMStateChange)

	for _, attr := range []string{"size-hints", "icon-title", "icons", "decorations", "modal", "children"} {
		w.expose(attr, ExposedDynamic)
	}
}

// handleWMStateChange inherits the iconic state a previous window manager
// left behind in WM_STATE. After setup the property is ours to write, so
// changes are not read back.
func (w *Window) handleWMStateChange() error {
	state, ok, err := w.props.GetWMState(w.xid)
	if err != nil || !ok {
		return err
	}
	if !w.setupDone && state == xprop.IconicState {
		w.updateProp("iconic", true)
		w.state.Update(StateHidden, StateFocused)
	}
	return nil
}

// setup is the manage protocol proper; every step runs inside error-trapped
// transactions that propagate, failing the whole attempt.
func (w *Window) setup() error {
	var initial Geometry
	var depth byte
	var visual xproto.Visualid
	err := w.trap.Sync(func() error {
		geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.xid)).Reply()
		if err != nil {
			return unmanageable(w.xid, "window disappeared already", err)
		}
		initial = Geometry{X: int(geom.X), Y: int(geom.Y), W: int(geom.Width), H: int(geom.Height)}
		depth = geom.Depth
		attr, err := xproto.GetWindowAttributes(w.conn, w.xid).Reply()
		if err != nil {
			return unmanageable(w.xid, "window disappeared already", err)
		}
		visual = attr.Visual
		w.savedEventMask = attr.YourEventMask
		return nil
	})
	if err != nil {
		return err
	}

	w.values["geometry"] = initial
	w.removeRouter = w.Router.Register(w.xid, w.routeEvent)

	if err := w.trap.Sync(func() error {
		return w.setupCorral(initial, depth, visual)
	}); err != nil {
		return err
	}

	// one transaction for the whole initial property read
	if err := w.trap.Sync(w.readInitialProps); err != nil {
		return err
	}

	return w.trap.Sync(func() error {
		return w.placeClient(initial)
	})
}

func (w *Window) setupCorral(g Geometry, depth byte, visual xproto.Visualid) error {
	corral, err := xproto.NewWindowId(w.conn)
	if err != nil {
		return err
	}
	w.corral = corral

	// position the corral from a desktop-clamped copy of the client geometry
	dw, dh := w.DesktopGeometry()
	x, y := geometry.ClampToDesktop(g.X, g.Y, g.W, g.H, dw, dh, w.clampOverlap)

	cookie := xproto.CreateWindowChecked(w.conn, depth, corral, w.Root,
		int16(x), int16(y), uint16(g.W), uint16(g.H), 0,
		xproto.WindowClassInputOutput, visual,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify})
	w.trap.Add("create corral", cookie.Check)
	w.props.SetUTF8(w.trap, corral, "_NET_WM_NAME", "svwm-corral")

	// listen on the client before touching it, so nothing is missed
	ev := xproto.ChangeWindowAttributesChecked(w.conn, w.xid, xproto.CwEventMask,
		[]uint32{uint32(w.savedEventMask) | xproto.EventMaskPropertyChange |
			xproto.EventMaskStructureNotify | xproto.EventMaskFocusChange})
	w.trap.Add("select client events", ev.Check)
	w.selectShapeInput()

	// the child might already be mapped if inherited from a previous window
	// manager; unmap it and remember the request serial so the resulting
	// UnmapNotify is not mistaken for a client withdrawal
	attr, err := xproto.GetWindowAttributes(w.conn, w.xid).Reply()
	if err != nil {
		return unmanageable(w.xid, "window disappeared already", err)
	}
	if attr.MapState != xproto.MapStateUnmapped {
		unmap := xproto.UnmapWindowChecked(w.conn, w.xid)
		w.lastUnmapSerial = uint32(unmap.Sequence)
		w.trap.Add("hide inherited window", unmap.Check)
	}

	// save-set membership keeps the client alive if this process dies
	save := xproto.ChangeSaveSetChecked(w.conn, xproto.SetModeInsert, w.xid)
	w.trap.Add("add to save set", save.Check)
	w.inSaveSet = true

	rep := xproto.ReparentWindowChecked(w.conn, w.xid, corral, 0, 0)
	w.trap.Add("reparent", rep.Check)
	w.reparented = true
	return nil
}

// placeClient constrains the initial geometry and moves everything into
// place, mapping the client if needed.
func (w *Window) placeClient(initial Geometry) error {
	geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.xid)).Reply()
	if err != nil {
		return unmanageable(w.xid, "window disappeared already", err)
	}
	dw, dh := w.DesktopGeometry()
	x, y := geometry.ClampToDesktop(initial.X, initial.Y, initial.W, initial.H, dw, dh, w.clampOverlap)
	nw, nh := geometry.Constrain(int(geom.Width), int(geom.Height), w.mergedHints())
	w.values["geometry"] = Geometry{X: x, Y: y, W: nw, H: nh}

	moved := initial.X != x || initial.Y != y
	resized := initial.W != nw || initial.H != nh
	if moved || resized {
		corral := xproto.ConfigureWindowChecked(w.conn, w.corral,
			xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(int32(x)), uint32(int32(y)), uint32(nw), uint32(nh)})
		w.trap.Add("place corral", corral.Check)
	}
	if resized {
		client := xproto.ConfigureWindowChecked(w.conn, w.xid,
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(nw), uint32(nh)})
		w.trap.Add("resize client", client.Check)
	}
	mp := xproto.MapWindowChecked(w.conn, w.xid)
	w.trap.Add("map client", mp.Check)
	mc := xproto.MapWindowChecked(w.conn, w.corral)
	w.trap.Add("map corral", mc.Check)
	w.shown = true

	w.updateChildren()

	// trigger pending X errors now, while failing is still cheap
	if _, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.xid)).Reply(); err != nil {
		return unmanageable(w.xid, "window disappeared during setup", err)
	}
	return nil
}

// initialWrites pushes the properties we own once setup has completed.
func (w *Window) initialWrites() {
	w.updateProp("allowed-actions", allowedActionAtoms)
	w.writeAllowedActions()
	w.writeFrameExtents()
	state := uint32(xprop.NormalState)
	if w.Iconic() {
		state = xprop.IconicState
	}
	w.trap.Swallow(func() {
		w.props.SetWMState(w.trap, w.xid, state)
	})
	w.bus.WindowManaged.Publish(bus.WindowManaged{UUID: w.UUID, XID: uint32(w.xid)})
}

func (w *Window) setupFailed() {
	w.log.Debug("Manage attempt failed, tearing down partial state")
	w.Unmanage(false)
}

// Unmanage detaches the window, reversing the manage protocol. It is
// idempotent: a second call is a no-op. Every X call treats "not found" as
// data, because the client may be vanishing concurrently.
func (w *Window) Unmanage(wmExiting bool) {
	proceed, wasManaged := w.beginUnmanage()
	if !proceed {
		return
	}

	// check what still exists before acting
	stillThere := false
	w.trap.Swallow(func() {
		if _, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.xid)).Reply(); err == nil {
			stillThere = true
		}
	})
	if stillThere {
		w.trap.Swallow(func() {
			if w.reparented {
				g := w.Geometry()
				rep := xproto.ReparentWindowChecked(w.conn, w.xid, w.Root, int16(g.X), int16(g.Y))
				w.trap.Add("reparent to root", rep.Check)
				w.reparented = false
			}
			ev := xproto.ChangeWindowAttributesChecked(w.conn, w.xid, xproto.CwEventMask,
				[]uint32{uint32(w.savedEventMask)})
			w.trap.Add("restore event mask", ev.Check)
		})
		// remove from the save set even after reparenting: save-set members
		// are remapped when we exit even if no longer inferior to our
		// windows (X11 section 10), which makes for ghost windows
		if w.inSaveSet {
			w.trap.Swallow(func() {
				save := xproto.ChangeSaveSetChecked(w.conn, xproto.SetModeDelete, w.xid)
				w.trap.Add("remove from save set", save.Check)
			})
			w.inSaveSet = false
		}
		// abandoning rather than destroying: tell the client nothing changed
		w.sendSyntheticConfigureNotify()
		if wmExiting {
			w.trap.Swallow(func() {
				mp := xproto.MapWindowChecked(w.conn, w.xid)
				w.trap.Add("remap on exit", mp.Check)
			})
		}
		w.scrubProperties()
	}
	// the corral is destroyed last
	if w.corral != 0 {
		corral := w.corral
		w.corral = 0
		w.trap.Log(func() {
			dc := xproto.DestroyWindowChecked(w.conn, corral)
			w.trap.Add("destroy corral", dc.Check)
		})
	}

	w.endUnmanage(wasManaged)
}

func (w *Window) scrubProperties() {
	w.trap.Swallow(func() {
		for _, prop := range []string{"WM_STATE", "_NET_FRAME_EXTENTS", "_NET_WM_ALLOWED_ACTIONS"} {
			// _NET_WM_STATE is left in place: "..it should leave the
			// property in place when it is shutting down"
			w.props.Delete(w.trap, w.xid, prop)
		}
	})
}

// sendSyntheticConfigureNotify implements ICCCM 4.1.5: the client learns its
// (unchanged) root-relative geometry from us, not from the server.
func (w *Window) sendSyntheticConfigureNotify() {
	g := w.Geometry()
	w.trap.Swallow(func() {
		ev := xproto.ConfigureNotifyEvent{
			Event:            w.xid,
			Window:           w.xid,
			AboveSibling:     xproto.WindowNone,
			X:                int16(g.X),
			Y:                int16(g.Y),
			Width:            uint16(g.W),
			Height:           uint16(g.H),
			BorderWidth:      0,
			OverrideRedirect: false,
		}
		cookie := xproto.SendEventChecked(w.conn, false, w.xid,
			xproto.EventMaskStructureNotify, string(ev.Bytes()))
		w.trap.Add("synthetic configure notify", cookie.Check)
	})
}
