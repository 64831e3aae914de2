package xwm

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/bus"
	"github.com/svwm/svwm/internal/geometry"
	"github.com/svwm/svwm/internal/xprop"
)

// ChildWindow records a sub-window for the session layer.
type ChildWindow struct {
	XID xproto.Window
	Geo Geometry
}

func (w *Window) routeEvent(ev xgb.Event) {
	if w.lifecycle != LifecycleManaged && w.lifecycle != Managing {
		return
	}
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		w.handlePropertyChange(w.atomName(e.Atom))
	case xproto.UnmapNotifyEvent:
		// was this a withdrawal, or our own unmap going into IconicState?
		if w.serialAfterLastUnmap(uint32(e.Sequence)) {
			w.Unmanage(false)
		}
	case xproto.DestroyNotifyEvent:
		// catches destruction of unmapped windows too
		w.Unmanage(false)
	case xproto.ConfigureNotifyEvent:
		if e.Window == w.xid {
			w.handleClientConfigured(int(e.X), int(e.Y), int(e.Width), int(e.Height))
		}
	case xproto.ConfigureRequestEvent:
		w.handleConfigureRequest(e)
	case xproto.MapRequestEvent:
		// a naughty client mapping a window we have hidden, or a queued-up
		// duplicate request; either way, ignore it
	case xproto.ClientMessageEvent:
		w.handleClientMessageEvent(e)
	case xproto.FocusInEvent:
		if e.Mode == xproto.NotifyModeNormal || e.Mode == xproto.NotifyModeWhileGrabbed {
			w.state.Update(StateFocused, StateHidden)
		}
	case xproto.FocusOutEvent:
		if e.Mode == xproto.NotifyModeNormal || e.Mode == xproto.NotifyModeWhileGrabbed {
			w.state.Update(0, StateFocused)
		}
	case shape.NotifyEvent:
		w.handleShapeEvent(uint32(e.Sequence), e.Shaped)
	}
}

func (w *Window) handleClientMessageEvent(e xproto.ClientMessageEvent) {
	if e.Format != 32 {
		w.log.Warn("Ignoring client message with unexpected format", "format", e.Format)
		return
	}
	var data [5]uint32
	copy(data[:], e.Data.Data32)
	msgType := w.atomName(e.Type)
	if msgType == "" {
		return
	}
	switch msgType {
	case "_NET_MOVERESIZE_WINDOW":
		w.handleMoveResizeWindow(data)
		return
	case "WM_CHANGE_STATE":
		if iconic, ok := w.iconifyRequest(data, uint32(e.Sequence)); ok {
			w.Iconify(iconic)
		}
		return
	}
	if !w.handleClientMessage(msgType, data, uint32(e.Sequence)) {
		w.log.Debug("Unhandled client message", "type", msgType)
	}
}

// iconifyRequest interprets a legacy WM_CHANGE_STATE message. The serial
// rule gates it so a client's own withdrawal is not misread as an iconify
// request.
func (w *Window) iconifyRequest(data [5]uint32, serial uint32) (iconic, ok bool) {
	state := data[0]
	if state != xprop.IconicState && state != xprop.NormalState {
		return false, false
	}
	if !w.serialAfterLastUnmap(serial) {
		return false, false
	}
	return state == xprop.IconicState, true
}

// handleMoveResizeWindow applies a _NET_MOVERESIZE_WINDOW request; bits
// 0x100-0x800 of the first datum select which of x/y/w/h are present.
func (w *Window) handleMoveResizeWindow(data [5]uint32) {
	g := w.Geometry()
	x, y, cw, ch := g.X, g.Y, g.W, g.H
	if data[0]&0x100 != 0 {
		x = int(int32(data[1]))
	}
	if data[0]&0x200 != 0 {
		y = int(int32(data[2]))
	}
	if data[0]&0x400 != 0 {
		cw = int(data[3])
	}
	if data[0]&0x800 != 0 {
		ch = int(data[4])
	}
	w.configureGeometry(x, y, cw, ch)
}

// handleConfigureRequest is ICCCM 4.1.5: record what the client asked for,
// apply it through the corral, and always answer with a ConfigureNotify,
// synthetic when nothing changed.
func (w *Window) handleConfigureRequest(e xproto.ConfigureRequestEvent) {
	g := w.Geometry()
	x, y, cw, ch := g.X, g.Y, g.W, g.H
	if e.ValueMask&xproto.ConfigWindowX != 0 {
		x = int(e.X)
	}
	if e.ValueMask&xproto.ConfigWindowY != 0 {
		y = int(e.Y)
	}
	if e.ValueMask&xproto.ConfigWindowWidth != 0 {
		cw = int(e.Width)
	}
	if e.ValueMask&xproto.ConfigWindowHeight != 0 {
		ch = int(e.Height)
	}
	if e.ValueMask&xproto.ConfigWindowStackMode != 0 {
		w.bus.WindowRestack.Publish(bus.WindowRestack{
			UUID: w.UUID, XID: uint32(w.xid),
			Detail:  uint32(e.StackMode),
			Sibling: uint32(e.Sibling),
		})
	}
	if x == g.X && y == g.Y && cw == g.W && ch == g.H {
		// even an ignored request gets a synthetic "nothing changed" notify
		w.sendSyntheticConfigureNotify()
		return
	}
	w.configureGeometry(x, y, cw, ch)
}

// handleClientConfigured syncs the corral when the client resized or moved
// itself programmatically. The client sits at the corral origin, so a
// ConfigureNotify at (0,0) means "unmoved".
func (w *Window) handleClientConfigured(x, y, cw, ch int) {
	g := w.Geometry()
	if x == 0 && y == 0 {
		x, y = g.X, g.Y
	}
	w.trap.Log(func() {
		w.configureGeometry(x, y, cw, ch)
	})
	w.updateChildren()
}

// configureGeometry is the single write path for window geometry: constrain
// the size, move/resize the corral, keep the client at the corral origin,
// and tell the client its new root-relative geometry.
func (w *Window) configureGeometry(x, y, cw, ch int) {
	cw, ch = geometry.Constrain(cw, ch, w.mergedHints())
	g := w.Geometry()
	moved := x != g.X || y != g.Y
	resized := cw != g.W || ch != g.H
	if !moved && !resized {
		w.sendSyntheticConfigureNotify()
		return
	}
	w.trap.Log(func() {
		if w.corral != 0 {
			corral := xproto.ConfigureWindowChecked(w.conn, w.corral,
				xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
				[]uint32{uint32(int32(x)), uint32(int32(y)), uint32(cw), uint32(ch)})
			w.trap.Add("configure corral", corral.Check)
			client := xproto.ConfigureWindowChecked(w.conn, w.xid,
				xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
				[]uint32{0, 0, uint32(cw), uint32(ch)})
			w.trap.Add("configure client", client.Check)
		} else {
			client := xproto.ConfigureWindowChecked(w.conn, w.xid,
				xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
				[]uint32{uint32(int32(x)), uint32(int32(y)), uint32(cw), uint32(ch)})
			w.trap.Add("configure client", client.Check)
		}
	})
	w.updateProp("geometry", Geometry{X: x, Y: y, W: cw, H: ch})
	w.sendSyntheticConfigureNotify()
}

// MoveResize is the session layer's entry point for window geometry.
func (w *Window) MoveResize(x, y, cw, ch int) {
	w.configureGeometry(x, y, cw, ch)
}

// Raise restacks the corral, and the client within it, to the top.
func (w *Window) Raise() {
	w.trap.Swallow(func() {
		for _, win := range []xproto.Window{w.corral, w.xid} {
			if win == 0 {
				continue
			}
			cookie := xproto.ConfigureWindowChecked(w.conn, win,
				xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
			w.trap.Add("raise", cookie.Check)
		}
	})
}

// GiveFocus performs focus delegation per ICCCM 4.1.7: set input focus only
// when WM_HINTS says the client takes input, and send WM_TAKE_FOCUS only
// when the protocol is advertised. Both carry real server time, never
// CurrentTime.
func (w *Window) GiveFocus() {
	now := w.Timestamp()
	w.trap.Swallow(func() {
		if w.inputField != 0 {
			cookie := xproto.SetInputFocusChecked(w.conn, xproto.InputFocusParent, w.xid, now)
			w.trap.Add("set input focus", cookie.Check)
		}
		if w.supportsProtocol("WM_TAKE_FOCUS") {
			takeFocus := w.props.Atoms().MustIntern("WM_TAKE_FOCUS")
			protocols := w.props.Atoms().MustIntern("WM_PROTOCOLS")
			ev := xproto.ClientMessageEvent{
				Format: 32,
				Window: w.xid,
				Type:   protocols,
				Data: xproto.ClientMessageDataUnionData32New([]uint32{
					uint32(takeFocus), uint32(now), 0, 0, 0,
				}),
			}
			cookie := xproto.SendEventChecked(w.conn, false, w.xid, xproto.EventMaskNoEvent, string(ev.Bytes()))
			w.trap.Add("send WM_TAKE_FOCUS", cookie.Check)
		}
	})
	w.state.Update(StateFocused, StateHidden)
}

//
// Size hints and related wire handlers
//

// decorated reports whether the window carries decorations; unknown counts
// as decorated.
func (w *Window) decorated() bool {
	if w.decorations == -1 {
		return true
	}
	mask := xprop.MotifDecorAll | xprop.MotifDecorTitle | xprop.MotifDecorMinimize | xprop.MotifDecorMaximize
	return w.decorations&mask != 0
}

func (w *Window) mergedHints() geometry.Hints {
	if h, ok := w.values["size-hints"].(geometry.Hints); ok {
		return h
	}
	return geometry.Hints{}
}

func (w *Window) handleNormalHintsChange() error {
	hints, _, err := w.props.GetSizeHints(w.xid)
	if err != nil {
		return err
	}
	w.clientHints = hints
	merged := geometry.Merge(hints,
		w.constraints.MinWidth, w.constraints.MinHeight,
		w.constraints.MaxWidth, w.constraints.MaxHeight,
		w.decorated())
	// no-op updates must not reach the client: some apps re-set their
	// hints on every ConfigureNotify
	if w.updateProp("size-hints", merged) && w.shown {
		w.updateClientGeometry()
	}
	return nil
}

// handleMotifHintsChange keeps the ordering contract: decorations are known
// before the minimum size is enforced, so a decorations change re-runs the
// normal-hints merge.
func (w *Window) handleMotifHintsChange() error {
	hints, ok, err := w.props.GetMotifHints(w.xid)
	if err != nil || !ok {
		return err
	}
	if hints.Flags&xprop.MotifDecorationsFlag != 0 {
		if w.updateProp("decorations", int(hints.Decorations)) {
			w.decorations = int(hints.Decorations)
			if err := w.handleNormalHintsChange(); err != nil {
				return err
			}
		}
	}
	if hints.Flags&xprop.MotifInputModeFlag != 0 && hints.InputMode > 0 {
		w.state.Update(StateModal, 0)
	}
	return nil
}

func (w *Window) handleIconTitleChange() error {
	title, ok, err := w.props.GetUTF8(w.xid, "_NET_WM_ICON_NAME")
	if err != nil {
		return err
	}
	if !ok {
		title, _, err = w.props.GetLatin1(w.xid, "WM_ICON_NAME")
		if err != nil {
			return err
		}
	}
	w.updateProp("icon-title", title)
	return nil
}

func (w *Window) handleIconsChange() error {
	icons, err := w.props.GetIcons(w.xid)
	if err != nil {
		return err
	}
	w.updateProp("icons", icons)
	return nil
}

func (w *Window) updateClientGeometry() {
	g := w.Geometry()
	w.configureGeometry(g.X, g.Y, g.W, g.H)
}

// updateChildren records sub-windows for the session layer, skipping
// InputOnly windows, 1x1 event windows, and children covering the whole
// client surface.
func (w *Window) updateChildren() {
	geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.xid)).Reply()
	if err != nil {
		return
	}
	tree, err := xproto.QueryTree(w.conn, w.xid).Reply()
	if err != nil {
		return
	}
	var children []ChildWindow
	for _, child := range tree.Children {
		attr, err := xproto.GetWindowAttributes(w.conn, child).Reply()
		if err != nil || attr.Class == xproto.WindowClassInputOnly {
			continue
		}
		cg, err := xproto.GetGeometry(w.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}
		if cg.Width == 1 && cg.Height == 1 {
			continue
		}
		if cg.X == 0 && cg.Y == 0 && cg.Width == geom.Width && cg.Height == geom.Height {
			continue
		}
		children = append(children, ChildWindow{
			XID: child,
			Geo: Geometry{X: int(cg.X), Y: int(cg.Y), W: int(cg.Width), H: int(cg.Height)},
		})
	}
	w.updateProp("children", children)
}

//
// Externally supplied facts
//

// UpdateSizeConstraints folds a new server size policy into the hints; a
// less restrictive policy needs no recalculation.
func (w *Window) UpdateSizeConstraints(c SizeConstraints) {
	old := w.constraints
	if old == c {
		return
	}
	w.constraints = c
	if c.MinWidth <= old.MinWidth && c.MinHeight <= old.MinHeight &&
		c.MaxWidth >= old.MaxWidth && c.MaxHeight >= old.MaxHeight {
		return
	}
	if err := w.handleNormalHintsChange(); err != nil {
		w.log.Warn("Failed to apply size constraints", "error", err)
	}
}

// refreshFrameExtents re-publishes _NET_FRAME_EXTENTS after the root default
// changed; windows carrying explicit extents keep them.
func (w *Window) refreshFrameExtents() {
	if _, ok := w.values["frame"].([4]uint32); ok {
		return
	}
	w.writeFrameExtents()
}

// UpdateDesktopGeometry re-clamps the corral after the desktop resized;
// clamping repositions, it never resizes.
func (w *Window) UpdateDesktopGeometry(dw, dh int) {
	if w.corral == 0 {
		return
	}
	w.trap.Log(func() {
		geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(w.corral)).Reply()
		if err != nil {
			return
		}
		x, y := geometry.ClampToDesktop(int(geom.X), int(geom.Y), int(geom.Width), int(geom.Height), dw, dh, w.clampOverlap)
		if x != int(geom.X) || y != int(geom.Y) {
			cookie := xproto.ConfigureWindowChecked(w.conn, w.corral,
				xproto.ConfigWindowX|xproto.ConfigWindowY,
				[]uint32{uint32(int32(x)), uint32(int32(y))})
			w.trap.Add("re-clamp corral", cookie.Check)
		}
	})
}

// Show maps the corral and clears the iconic state.
func (w *Window) Show() {
	w.trap.Log(func() {
		mp := xproto.MapWindowChecked(w.conn, w.xid)
		w.trap.Add("map client", mp.Check)
		mc := xproto.MapWindowChecked(w.conn, w.corral)
		w.trap.Add("map corral", mc.Check)
	})
	w.shown = true
	w.SetIconic(false)
	w.updateClientGeometry()
}

// Iconify couples the ICCCM iconic state with visibility: iconifying hides
// the corral, deiconifying maps it again.
func (w *Window) Iconify(iconic bool) {
	if iconic {
		w.SetIconic(true)
		w.Hide()
		return
	}
	w.Show()
}

// Hide unmaps the corral, leaving the client parented inside it, and tells
// the client nothing moved.
func (w *Window) Hide() {
	w.shown = false
	w.trap.Log(func() {
		unmap := xproto.UnmapWindowChecked(w.conn, w.corral)
		w.trap.Add("unmap corral", unmap.Check)
	})
	w.sendSyntheticConfigureNotify()
}
