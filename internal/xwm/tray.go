package xwm

import (
	"github.com/jezek/xgb/xproto"
)

// TrayWindow is a system tray icon window. Tray icons are tracked like
// override-redirect windows, but they always composite with alpha and
// their geometry is dictated by the tray layout, never negotiated.
type TrayWindow struct {
	*OverrideWindow
}

func ManageTray(d Deps, xid xproto.Window) (*TrayWindow, error) {
	inner, err := manageTracked(d, xid, KindTray)
	if err != nil {
		return nil, err
	}
	w := &TrayWindow{OverrideWindow: inner}
	w.updateProp("has-alpha", true)
	w.updateProp("tray", true)
	return w, nil
}

// MoveResize places the icon where the tray layout wants it. This is the
// only geometry write path for tray windows.
func (w *TrayWindow) MoveResize(x, y, width, height int) {
	w.trap.Log(func() {
		cookie := xproto.ConfigureWindowChecked(w.conn, w.xid,
			xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(int32(x)), uint32(int32(y)), uint32(width), uint32(height)})
		w.trap.Add("move tray icon", cookie.Check)
	})
	w.updateProp("geometry", Geometry{X: x, Y: y, W: width, H: height})
}
