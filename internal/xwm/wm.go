package xwm

import (
	"fmt"
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/bus"
	"github.com/svwm/svwm/internal/xdispatch"
	"github.com/svwm/svwm/internal/xprop"
	"github.com/svwm/svwm/internal/xtrap"
)

// Phase is the controller lifecycle; it only ever moves forward.
type Phase int

const (
	PhaseNoSelection Phase = iota
	PhaseAcquiring
	PhaseOwner
	PhaseQuit
)

// windowTypeAtoms are pre-interned so the first _NET_WM_WINDOW_TYPE read of
// every new window resolves without extra round trips.
var windowTypeAtoms = []string{
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_NORMAL",
	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_TOOLBAR",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_WINDOW_TYPE_DND",
}

// supportedAtoms is what _NET_SUPPORTED advertises.
var supportedAtoms = []string{
	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_WM_NAME",
	"_NET_WM_VISIBLE_NAME",
	"_NET_WM_ICON_NAME",
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_DESKTOP_NAMES",
	"_NET_DESKTOP_GEOMETRY",
	"_NET_DESKTOP_VIEWPORT",
	"_NET_CURRENT_DESKTOP",
	"_NET_WORKAREA",
	"_NET_ACTIVE_WINDOW",
	"_NET_SHOWING_DESKTOP",
	"_NET_CLOSE_WINDOW",
	"_NET_MOVERESIZE_WINDOW",
	"_NET_WM_MOVERESIZE",
	"_NET_RESTACK_WINDOW",
	"_NET_REQUEST_FRAME_EXTENTS",
	"_NET_FRAME_EXTENTS",
	"_NET_WM_DESKTOP",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_STATE",
	"_NET_WM_STATE_MODAL",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_STATE_MAXIMIZED_VERT",
	"_NET_WM_STATE_MAXIMIZED_HORZ",
	"_NET_WM_STATE_SHADED",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_STATE_SKIP_PAGER",
	"_NET_WM_STATE_HIDDEN",
	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_BELOW",
	"_NET_WM_STATE_DEMANDS_ATTENTION",
	"_NET_WM_STATE_FOCUSED",
	"_NET_WM_ALLOWED_ACTIONS",
	"_NET_WM_STRUT",
	"_NET_WM_STRUT_PARTIAL",
	"_NET_WM_ICON",
	"_NET_WM_PID",
	"_NET_WM_FULLSCREEN_MONITORS",
	"WM_S0",
	"_NET_WM_USER_TIME",
	"_NET_WM_OPAQUE_REGION",
}

// Config is the controller's policy knobs.
type Config struct {
	// Name is advertised as the window manager name.
	Name string
	// Replace forces a takeover when another window manager holds WM_S0.
	Replace bool

	DesktopCount   int
	DesktopNames   []string
	CurrentDesktop uint32

	// ClampOverlap is how many pixels of an off-desktop window must remain
	// visible after clamping.
	ClampOverlap int
	// FrameExtents is the default left/right/top/bottom advertised before a
	// window gets real ones.
	FrameExtents [4]uint32
	// SizeConstraints is the server size policy folded into window hints.
	SizeConstraints SizeConstraints
	// HasShape reports that the SHAPE extension initialized on the
	// connection; without it shape tracking is disabled.
	HasShape bool

	// OnQuit fires when the selection is lost to another window manager.
	OnQuit func()
}

// Managed is any window-model variant held by the controller.
type Managed interface {
	XID() xproto.Window
	Kind() Kind
	Lifecycle() Lifecycle
	Base() *Model
	Unmanage(wmExiting bool)
}

func (m *Model) Base() *Model { return m }

// WM is the root controller: it owns the screen selection, the root window
// property surface, and the registry of managed windows. All methods run on
// the event-loop goroutine.
type WM struct {
	conn   *xgb.Conn
	props  *xprop.Client
	trap   *xtrap.Trap
	router *xdispatch.Router
	bus    *bus.Bus
	log    *slog.Logger
	loop   *Loop
	cfg    Config

	root               xproto.Window
	desktopW, desktopH int

	phase     Phase
	selection *Selection
	check     xproto.Window

	windows map[xproto.Window]Managed
	byUUID  map[string]Managed
	order   []xproto.Window

	removeFallbacks []func()
}

func New(conn *xgb.Conn, screen *xproto.ScreenInfo, props *xprop.Client, trap *xtrap.Trap,
	router *xdispatch.Router, b *bus.Bus, log *slog.Logger, loop *Loop, cfg Config) *WM {
	if cfg.DesktopCount <= 0 {
		cfg.DesktopCount = 1
	}
	if int(cfg.CurrentDesktop) >= cfg.DesktopCount {
		cfg.CurrentDesktop = 0
	}
	return &WM{
		conn:      conn,
		props:     props,
		trap:      trap,
		router:    router,
		bus:       b,
		log:       log.With("component", "wm"),
		loop:      loop,
		cfg:       cfg,
		root:      screen.Root,
		desktopW:  int(screen.WidthInPixels),
		desktopH:  int(screen.HeightInPixels),
		phase:     PhaseNoSelection,
		selection: NewSelection(conn, props, log, "WM_S0"),
		windows:   make(map[xproto.Window]Managed),
		byUUID:    make(map[string]Managed),
	}
}

func (wm *WM) Phase() Phase { return wm.phase }

func (wm *WM) Root() xproto.Window { return wm.root }

func (wm *WM) DesktopGeometry() (int, int) { return wm.desktopW, wm.desktopH }

// Setup acquires the selection and takes over the screen. Must run before
// the dispatch loop starts.
func (wm *WM) Setup() error {
	wm.phase = PhaseAcquiring
	if err := wm.selection.Acquire(wm.root, wm.cfg.Replace); err != nil {
		return err
	}
	wm.loop.SeedTimestamp(wm.selection.Timestamp())

	// redirecting the root substructure is the other half of becoming the
	// window manager; it fails with BadAccess while another one still runs
	if err := xproto.ChangeWindowAttributesChecked(wm.conn, wm.root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify |
			xproto.EventMaskPropertyChange | xproto.EventMaskFocusChange}).Check(); err != nil {
		return fmt.Errorf("select root events: %w", err)
	}

	if err := wm.props.Atoms().InternAll(windowTypeAtoms...); err != nil {
		return fmt.Errorf("intern window type atoms: %w", err)
	}
	if err := wm.setupCheckWindow(); err != nil {
		return err
	}
	wm.writeRootProperties()
	wm.registerFallbacks()
	wm.phase = PhaseOwner

	wm.manageExisting()
	wm.updateWindowList()
	return nil
}

// setupCheckWindow creates the _NET_SUPPORTING_WM_CHECK window (EWMH 1.3).
func (wm *WM) setupCheckWindow() error {
	check, err := xproto.NewWindowId(wm.conn)
	if err != nil {
		return err
	}
	if err := xproto.CreateWindowChecked(wm.conn, 0, check, wm.root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, 0, 0, nil).Check(); err != nil {
		return fmt.Errorf("create check window: %w", err)
	}
	wm.check = check
	wm.trap.Log(func() {
		wm.props.SetWindow(wm.trap, check, "_NET_SUPPORTING_WM_CHECK", check)
		wm.props.SetUTF8(wm.trap, check, "_NET_WM_NAME", wm.cfg.Name)
		wm.props.SetLatin1(wm.trap, check, "WM_NAME", wm.cfg.Name)
		wm.props.SetWindow(wm.trap, wm.root, "_NET_SUPPORTING_WM_CHECK", check)
		wm.props.SetUTF8(wm.trap, wm.root, "_NET_WM_NAME", wm.cfg.Name)
	})
	return nil
}

func (wm *WM) writeRootProperties() {
	names := wm.cfg.DesktopNames
	for len(names) < wm.cfg.DesktopCount {
		names = append(names, fmt.Sprintf("Desktop %d", len(names)+1))
	}
	workarea := make([]uint32, 0, wm.cfg.DesktopCount*4)
	for i := 0; i < wm.cfg.DesktopCount; i++ {
		workarea = append(workarea, 0, 0, uint32(wm.desktopW), uint32(wm.desktopH))
	}
	fe := wm.cfg.FrameExtents
	wm.trap.Log(func() {
		wm.props.SetAtoms(wm.trap, wm.root, "_NET_SUPPORTED", supportedAtoms)
		wm.props.SetCardinal(wm.trap, wm.root, "_NET_NUMBER_OF_DESKTOPS", uint32(wm.cfg.DesktopCount))
		wm.props.SetUTF8List(wm.trap, wm.root, "_NET_DESKTOP_NAMES", names[:wm.cfg.DesktopCount])
		wm.props.SetCardinal(wm.trap, wm.root, "_NET_CURRENT_DESKTOP", wm.cfg.CurrentDesktop)
		wm.props.SetU32s(wm.trap, wm.root, "_NET_DESKTOP_VIEWPORT", "CARDINAL", 0, 0)
		wm.props.SetU32s(wm.trap, wm.root, "_NET_DESKTOP_GEOMETRY", "CARDINAL", uint32(wm.desktopW), uint32(wm.desktopH))
		wm.props.SetU32s(wm.trap, wm.root, "_NET_WORKAREA", "CARDINAL", workarea...)
		wm.props.SetCardinal(wm.trap, wm.root, "_NET_SHOWING_DESKTOP", 0)
		wm.props.SetU32s(wm.trap, wm.root, "DEFAULT_NET_FRAME_EXTENTS", "CARDINAL", fe[0], fe[1], fe[2], fe[3])
	})
}

func (wm *WM) registerFallbacks() {
	wm.removeFallbacks = append(wm.removeFallbacks,
		wm.router.RegisterFallback(xproto.MapRequestEvent{}, wm.routeFallback),
		wm.router.RegisterFallback(xproto.ConfigureRequestEvent{}, wm.routeFallback),
		wm.router.RegisterFallback(xproto.MapNotifyEvent{}, wm.routeFallback),
		wm.router.RegisterFallback(xproto.ClientMessageEvent{}, wm.routeFallback),
		wm.router.RegisterFallback(xproto.SelectionClearEvent{}, wm.routeFallback),
	)
}

func (wm *WM) routeFallback(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		wm.handleMapRequest(e.Window)
	case xproto.ConfigureRequestEvent:
		// not (or not yet) managed: ICCCM says clients in the Withdrawn
		// state get their configure requests granted verbatim
		wm.grantConfigure(e)
	case xproto.MapNotifyEvent:
		if e.OverrideRedirect {
			wm.trackOverrideRedirect(e.Window)
		}
	case xproto.ClientMessageEvent:
		wm.handleRootClientMessage(e)
	case xproto.SelectionClearEvent:
		if wm.selection.Owns(e) {
			wm.log.Info("Lost the window manager selection, exiting")
			wm.phase = PhaseQuit
			if wm.cfg.OnQuit != nil {
				wm.cfg.OnQuit()
			}
		}
	}
}

// manageExisting adopts the clients a previous window manager left behind.
func (wm *WM) manageExisting() {
	tree, err := xproto.QueryTree(wm.conn, wm.root).Reply()
	if err != nil {
		wm.log.Warn("Failed to query existing windows", "error", err)
		return
	}
	for _, child := range tree.Children {
		attr, err := xproto.GetWindowAttributes(wm.conn, child).Reply()
		if err != nil {
			continue
		}
		if attr.MapState == xproto.MapStateUnmapped {
			continue
		}
		if attr.OverrideRedirect {
			wm.trackOverrideRedirect(child)
			continue
		}
		wm.manage(child)
	}
}

func (wm *WM) handleMapRequest(xid xproto.Window) {
	if existing, ok := wm.windows[xid]; ok {
		if w, ok := existing.(*Window); ok {
			w.Show()
		}
		return
	}
	attr, err := xproto.GetWindowAttributes(wm.conn, xid).Reply()
	if err != nil {
		return
	}
	if attr.OverrideRedirect {
		// not ours to manage, let it map
		wm.trap.Swallow(func() {
			mp := xproto.MapWindowChecked(wm.conn, xid)
			wm.trap.Add("map override-redirect", mp.Check)
		})
		return
	}
	wm.manage(xid)
}

func (wm *WM) manage(xid xproto.Window) {
	if _, ok := wm.windows[xid]; ok {
		return
	}
	w, err := ManageWindow(wm.deps(), xid, wm.cfg.SizeConstraints, wm.cfg.ClampOverlap)
	if err != nil {
		// unmanageable windows are data, not failures
		wm.log.Debug("Skipping window", "window", uint32(xid), "error", err)
		return
	}
	wm.remember(w)
}

func (wm *WM) trackOverrideRedirect(xid xproto.Window) {
	if _, ok := wm.windows[xid]; ok {
		return
	}
	w, err := ManageOverrideRedirect(wm.deps(), xid)
	if err != nil {
		wm.log.Debug("Skipping override-redirect window", "window", uint32(xid), "error", err)
		return
	}
	wm.remember(w)
}

// TrackTray brings a system tray icon under tracking, for the tray
// selection owner in the session layer.
func (wm *WM) TrackTray(xid xproto.Window) (*TrayWindow, error) {
	if _, ok := wm.windows[xid]; ok {
		return nil, unmanageable(xid, "already managed", nil)
	}
	w, err := ManageTray(wm.deps(), xid)
	if err != nil {
		return nil, err
	}
	wm.remember(w)
	return w, nil
}

func (wm *WM) remember(w Managed) {
	wm.windows[w.XID()] = w
	wm.byUUID[w.Base().UUID] = w
	wm.order = append(wm.order, w.XID())
	wm.updateWindowList()
}

// forget is wired in as Deps.OnUnmanaged; models call it when they detach
// themselves on destroy or withdrawal.
func (wm *WM) forget(xid xproto.Window) {
	w, ok := wm.windows[xid]
	if !ok {
		return
	}
	delete(wm.windows, xid)
	delete(wm.byUUID, w.Base().UUID)
	for i, id := range wm.order {
		if id == xid {
			wm.order = append(wm.order[:i], wm.order[i+1:]...)
			break
		}
	}
	if wm.phase == PhaseOwner {
		wm.updateWindowList()
	}
}

// updateWindowList publishes _NET_CLIENT_LIST in mapping order, oldest
// first. Stacking is not tracked separately, so both lists are equal.
func (wm *WM) updateWindowList() {
	ids := make([]xproto.Window, 0, len(wm.order))
	for _, xid := range wm.order {
		if w := wm.windows[xid]; w != nil && w.Kind() == KindWindow {
			ids = append(ids, xid)
		}
	}
	wm.trap.Swallow(func() {
		wm.props.SetWindows(wm.trap, wm.root, "_NET_CLIENT_LIST", ids)
		wm.props.SetWindows(wm.trap, wm.root, "_NET_CLIENT_LIST_STACKING", ids)
	})
}

// grantConfigure applies a ConfigureRequest from an unmanaged window
// verbatim. The value list order must follow the mask bit order.
func (wm *WM) grantConfigure(e xproto.ConfigureRequestEvent) {
	var values []uint32
	if e.ValueMask&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(int32(e.X)))
	}
	if e.ValueMask&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(int32(e.Y)))
	}
	if e.ValueMask&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(e.Width))
	}
	if e.ValueMask&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(e.Height))
	}
	if e.ValueMask&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(e.BorderWidth))
	}
	if e.ValueMask&xproto.ConfigWindowSibling != 0 {
		values = append(values, uint32(e.Sibling))
	}
	if e.ValueMask&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(e.StackMode))
	}
	wm.trap.Swallow(func() {
		cookie := xproto.ConfigureWindowChecked(wm.conn, e.Window, e.ValueMask, values)
		wm.trap.Add("grant configure", cookie.Check)
	})
}

func (wm *WM) handleRootClientMessage(e xproto.ClientMessageEvent) {
	if e.Format != 32 {
		return
	}
	name, err := wm.props.Atoms().Name(e.Type)
	if err != nil {
		return
	}
	switch name {
	case "_NET_SHOWING_DESKTOP":
		wm.ShowDesktop(e.Data.Data32[0] != 0)
	case "_NET_REQUEST_FRAME_EXTENTS":
		// an unmanaged window asking what its frame will be
		fe := wm.cfg.FrameExtents
		wm.trap.Swallow(func() {
			wm.props.SetU32s(wm.trap, e.Window, "_NET_FRAME_EXTENTS", "CARDINAL", fe[0], fe[1], fe[2], fe[3])
		})
	}
}

// ShowDesktop records the showing-desktop mode and tells the session layer.
func (wm *WM) ShowDesktop(show bool) {
	v := uint32(0)
	if show {
		v = 1
	}
	wm.trap.Swallow(func() {
		wm.props.SetCardinal(wm.trap, wm.root, "_NET_SHOWING_DESKTOP", v)
	})
	wm.bus.ShowDesktop.Publish(bus.ShowDesktop{Show: show})
}

// UpdateDesktopGeometry applies a new desktop size: root properties first,
// then a re-clamp of every managed window.
func (wm *WM) UpdateDesktopGeometry(width, height int) {
	if width == wm.desktopW && height == wm.desktopH {
		return
	}
	wm.desktopW, wm.desktopH = width, height
	workarea := make([]uint32, 0, wm.cfg.DesktopCount*4)
	for i := 0; i < wm.cfg.DesktopCount; i++ {
		workarea = append(workarea, 0, 0, uint32(width), uint32(height))
	}
	wm.trap.Log(func() {
		wm.props.SetU32s(wm.trap, wm.root, "_NET_DESKTOP_GEOMETRY", "CARDINAL", uint32(width), uint32(height))
		wm.props.SetU32s(wm.trap, wm.root, "_NET_WORKAREA", "CARDINAL", workarea...)
	})
	for _, xid := range wm.order {
		if w, ok := wm.windows[xid].(*Window); ok {
			w.UpdateDesktopGeometry(width, height)
		}
	}
}

// UpdateDefaultFrameExtents changes the advertised default frame and fans it
// out to the windows that have no explicit extents of their own.
func (wm *WM) UpdateDefaultFrameExtents(fe [4]uint32) {
	if fe == wm.cfg.FrameExtents {
		return
	}
	wm.cfg.FrameExtents = fe
	wm.trap.Log(func() {
		wm.props.SetU32s(wm.trap, wm.root, "DEFAULT_NET_FRAME_EXTENTS", "CARDINAL", fe[0], fe[1], fe[2], fe[3])
	})
	for _, xid := range wm.order {
		if w, ok := wm.windows[xid].(*Window); ok {
			w.refreshFrameExtents()
		}
	}
}

// UpdateSizeConstraints pushes a new size policy to every ordinary window.
func (wm *WM) UpdateSizeConstraints(c SizeConstraints) {
	wm.cfg.SizeConstraints = c
	for _, xid := range wm.order {
		if w, ok := wm.windows[xid].(*Window); ok {
			w.UpdateSizeConstraints(c)
		}
	}
}

func (wm *WM) Lookup(uuid string) (Managed, bool) {
	w, ok := wm.byUUID[uuid]
	return w, ok
}

// Windows lists the managed windows in mapping order.
func (wm *WM) Windows() []Managed {
	out := make([]Managed, 0, len(wm.order))
	for _, xid := range wm.order {
		if w := wm.windows[xid]; w != nil {
			out = append(out, w)
		}
	}
	return out
}

func (wm *WM) DesktopCount() int { return wm.cfg.DesktopCount }

func (wm *WM) defaultFrameExtents() [4]uint32 { return wm.cfg.FrameExtents }

func (wm *WM) deps() Deps {
	return Deps{
		Conn:                wm.conn,
		Props:               wm.props,
		Trap:                wm.trap,
		Router:              wm.router,
		Bus:                 wm.bus,
		Log:                 wm.log,
		Root:                wm.root,
		HasShape:            wm.cfg.HasShape,
		Timestamp:           wm.loop.Timestamp,
		Schedule:            wm.loop.Schedule,
		DesktopCount:        wm.DesktopCount,
		DesktopGeometry:     wm.DesktopGeometry,
		DefaultFrameExtents: wm.defaultFrameExtents,
		OnUnmanaged:         wm.forget,
	}
}

// Cleanup reverses Setup: windows are released back to the root, remapped
// so the next window manager finds them, and the EWMH markers are removed.
func (wm *WM) Cleanup() {
	wm.phase = PhaseQuit
	for _, remove := range wm.removeFallbacks {
		remove()
	}
	wm.removeFallbacks = nil

	for _, xid := range append([]xproto.Window(nil), wm.order...) {
		if w := wm.windows[xid]; w != nil {
			w.Unmanage(true)
		}
	}

	wm.trap.Swallow(func() {
		wm.props.Delete(wm.trap, wm.root, "_NET_SUPPORTING_WM_CHECK")
		wm.props.Delete(wm.trap, wm.root, "_NET_WM_NAME")
	})
	if wm.check != 0 {
		xproto.DestroyWindow(wm.conn, wm.check)
		wm.check = 0
	}
	wm.selection.Release()
}
