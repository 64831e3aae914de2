// Package xwm is the ICCCM/EWMH compliance layer: per-window state machines
// bound to the X11 property surface, and the root controller that owns the
// window-manager selection. Everything in this package runs on the single
// event-loop goroutine.
package xwm

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/bus"
	"github.com/svwm/svwm/internal/xdispatch"
	"github.com/svwm/svwm/internal/xprop"
	"github.com/svwm/svwm/internal/xtrap"
)

// Unmanageable is a semantic failure while bringing a window under
// management. The root controller catches it and skips the window, no retry.
type Unmanageable struct {
	XID    xproto.Window
	Reason string
	Err    error
}

func (e *Unmanageable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("window %#x unmanageable: %s: %v", e.XID, e.Reason, e.Err)
	}
	return fmt.Sprintf("window %#x unmanageable: %s", e.XID, e.Reason)
}

func (e *Unmanageable) Unwrap() error { return e.Err }

func unmanageable(xid xproto.Window, reason string, err error) *Unmanageable {
	return &Unmanageable{XID: xid, Reason: reason, Err: err}
}

type Lifecycle int

const (
	Unmanaged Lifecycle = iota
	Managing
	LifecycleManaged
	Unmanaging
)

type Kind int

const (
	KindWindow Kind = iota
	KindOverrideRedirect
	KindTray
)

func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindOverrideRedirect:
		return "override-redirect"
	case KindTray:
		return "tray"
	default:
		return "unknown"
	}
}

// Geometry is the client window geometry in root coordinates.
type Geometry struct {
	X, Y int
	W, H int
}

// Deps carries everything a model borrows from the controller. The router,
// trap and bus are explicit objects, not process-wide state.
type Deps struct {
	Conn   *xgb.Conn
	Props  *xprop.Client
	Trap   *xtrap.Trap
	Router *xdispatch.Router
	Bus    *bus.Bus
	Log    *slog.Logger
	Root   xproto.Window

	// HasShape is whether the SHAPE extension initialized on this
	// connection; without it shaped windows are tracked as rectangles.
	HasShape bool

	// Timestamp yields the latest known server time, for focus and delete
	// messages.
	Timestamp func() xproto.Timestamp
	// Schedule runs fn on the event loop after d; cancel is idempotent.
	Schedule func(d time.Duration, fn func()) (cancel func())
	// DesktopCount and DesktopGeometry are facts owned by the controller.
	DesktopCount    func() int
	DesktopGeometry func() (int, int)
	// DefaultFrameExtents is the root-level fallback used by models with no
	// explicit frame.
	DefaultFrameExtents func() [4]uint32
	// OnUnmanaged tells the controller a model has detached itself.
	OnUnmanaged func(xid xproto.Window)
}

const shapeDelay = 100 * time.Millisecond

// Model is the state shared by every window-model variant.
type Model struct {
	Deps
	UUID string

	xid       xproto.Window
	kind      Kind
	lifecycle Lifecycle
	setupDone bool

	conn  *xgb.Conn
	props *xprop.Client
	trap  *xtrap.Trap
	log   *slog.Logger
	bus   *bus.Bus

	values        map[string]any
	wireHandlers  map[string]func() error
	writeHandlers map[string]func()
	exposure      map[string]Exposure
	initialProps  []string

	state           *StateSet
	lastUnmapSerial uint32
	inputField      int // -1 until WM_HINTS supplies it

	removeRouter func()

	shapeCancel func()
	shapeSerial uint32
}

func newModel(d Deps, xid xproto.Window, kind Kind) *Model {
	m := &Model{
		Deps:          d,
		UUID:          uuid.NewString(),
		xid:           xid,
		kind:          kind,
		conn:          d.Conn,
		props:         d.Props,
		trap:          d.Trap,
		log:           d.Log.With("window", uint32(xid)),
		bus:           d.Bus,
		values:        make(map[string]any),
		wireHandlers:  make(map[string]func() error),
		writeHandlers: make(map[string]func()),
		exposure:      make(map[string]Exposure),
		inputField:    -1,
	}
	m.state = NewStateSet(m.writeStateBack, m.notifyProjection)
	m.bindBase()
	return m
}

func (m *Model) XID() xproto.Window { return m.xid }

func (m *Model) Kind() Kind { return m.kind }

func (m *Model) Lifecycle() Lifecycle { return m.lifecycle }

func (m *Model) State() *StateSet { return m.state }

func (m *Model) Geometry() Geometry {
	g, _ := m.values["geometry"].(Geometry)
	return g
}

// serialAfter implements the 16-bit wraparound rule: serial counts as after
// last iff it is greater, or the distance back is at least 2^15.
func serialAfter(serial, last uint32) bool {
	return serial > last || last-serial >= 1<<15
}

func (m *Model) serialAfterLastUnmap(serial uint32) bool {
	return serialAfter(serial, m.lastUnmapSerial)
}

// beginUnmanage moves the lifecycle into Unmanaging and detaches the timers
// and router registrations, reporting whether the caller should proceed with
// teardown and whether setup had completed. A repeated call is a no-op.
func (m *Model) beginUnmanage() (proceed, wasManaged bool) {
	if m.lifecycle == Unmanaging || m.lifecycle == Unmanaged {
		return false, false
	}
	wasManaged = m.lifecycle == LifecycleManaged
	m.lifecycle = Unmanaging
	if m.shapeCancel != nil {
		m.shapeCancel()
		m.shapeCancel = nil
	}
	if m.removeRouter != nil {
		m.removeRouter()
		m.removeRouter = nil
	}
	return true, wasManaged
}

// endUnmanage settles the terminal state and notifies upward.
func (m *Model) endUnmanage(wasManaged bool) {
	m.lifecycle = Unmanaged
	if wasManaged {
		m.bus.WindowUnmanaged.Publish(bus.WindowUnmanaged{UUID: m.UUID, XID: uint32(m.xid)})
	}
	if m.OnUnmanaged != nil {
		m.OnUnmanaged(m.xid)
	}
}

// bindBase registers the handler tables every variant shares. The initial
// read order matters: _NET_WM_STATE is read before WM_HINTS because the
// urgency bit from WM_HINTS lands in the state set.
func (m *Model) bindBase() {
	m.bindInitial("_NET_WM_STATE", m.handleInitialState)
	m.bindInitial("WM_NAME", m.handleTitleChange)
	m.bindWire("_NET_WM_NAME", m.handleTitleChange)
	m.bindInitial("WM_CLASS", m.handleClassChange)
	m.bindInitial("WM_WINDOW_ROLE", m.handleRoleChange)
	m.bindInitial("WM_CLIENT_MACHINE", m.handleClientMachineChange)
	m.bindInitial("_NET_WM_PID", m.handlePIDChange)
	m.bindInitial("WM_PROTOCOLS", m.handleProtocolsChange)
	m.bindInitial("WM_COMMAND", m.handleCommandChange)
	m.bindInitial("_NET_WM_OPAQUE_REGION", m.handleOpaqueRegionChange)
	m.bindInitial("WM_TRANSIENT_FOR", m.handleTransientForChange)
	m.bindInitial("_NET_WM_WINDOW_TYPE", m.handleWindowTypeChange)
	m.bindInitial("_NET_WM_DESKTOP", m.handleWorkspaceChange)
	m.bindInitial("_NET_WM_FULLSCREEN_MONITORS", m.handleFullscreenMonitorsChange)
	m.bindInitial("_NET_WM_STRUT", m.handleStrutChange)
	m.bindWire("_NET_WM_STRUT_PARTIAL", m.handleStrutChange)
	m.bindInitial("WM_HINTS", m.handleWMHintsChange)

	m.bindWrite("allowed-actions", m.writeAllowedActions)
	m.bindWrite("frame", m.writeFrameExtents)

	for _, attr := range []string{"title", "class-instance", "protocols", "opaque-region", "workspace", "window-type", "transient-for", "strut", "iconic"} {
		m.expose(attr, ExposedDynamic)
	}
	for _, attr := range []string{"role", "client-machine", "wm-pid", "command", "fullscreen-monitors"} {
		m.expose(attr, ExposedStatic)
	}
	m.expose("frame", Internal)
	m.expose("allowed-actions", Internal)
	for name := range stateProjections {
		m.expose(name, ExposedDynamic)
	}
	m.expose("shape", ExposedDynamic)
	m.expose("geometry", ExposedDynamic)
}

// notifyProjection surfaces a flipped state projection to the session layer.
func (m *Model) notifyProjection(name string, _ bool) {
	if !m.setupDone || m.lifecycle != LifecycleManaged {
		return
	}
	m.bus.WindowChanged.Publish(bus.WindowChanged{UUID: m.UUID, XID: uint32(m.xid), Property: name})
}

// writeStateBack mirrors the state set to _NET_WM_STATE, best-effort.
func (m *Model) writeStateBack(s State) {
	if !m.setupDone {
		return
	}
	m.trap.Swallow(func() {
		m.props.SetAtoms(m.trap, m.xid, "_NET_WM_STATE", s.AtomNames())
	})
}

func (m *Model) writeAllowedActions() {
	actions := m.propStrs("allowed-actions")
	m.trap.Swallow(func() {
		m.props.SetAtoms(m.trap, m.xid, "_NET_WM_ALLOWED_ACTIONS", actions)
	})
}

// writeFrameExtents publishes _NET_FRAME_EXTENTS, falling back to the root
// default for reparented windows with no explicit frame.
func (m *Model) writeFrameExtents() {
	frame, ok := m.values["frame"].([4]uint32)
	if !ok && m.kind == KindWindow && m.DefaultFrameExtents != nil {
		frame = m.DefaultFrameExtents()
	}
	m.trap.Swallow(func() {
		m.props.SetU32s(m.trap, m.xid, "_NET_FRAME_EXTENTS", "CARDINAL", frame[0], frame[1], frame[2], frame[3])
	})
}

// SetIconic flips the ICCCM iconic state: WM_STATE plus the hidden/focused
// pair, which are mutually exclusive by policy and updated together.
func (m *Model) SetIconic(iconic bool) {
	if !m.updateProp("iconic", iconic) {
		return
	}
	m.trap.Swallow(func() {
		if iconic {
			m.props.SetWMState(m.trap, m.xid, xprop.IconicState)
		} else {
			m.props.SetWMState(m.trap, m.xid, xprop.NormalState)
		}
	})
	if iconic {
		m.state.Update(StateHidden, StateFocused)
	} else {
		m.state.Update(0, StateHidden)
	}
}

func (m *Model) Iconic() bool { return m.propBool("iconic") }

//
// Wire-to-model handlers
//

func (m *Model) handleInitialState() (err error) {
	names, err := m.props.GetAtoms(m.xid, "_NET_WM_STATE")
	if err != nil {
		return err
	}
	var s State
	for _, name := range names {
		s |= StateFromAtom(name)
	}
	m.state.Reset(s)
	m.values["iconic"] = s&StateHidden != 0
	return nil
}

func (m *Model) handleTitleChange() error {
	title, ok, err := m.props.GetUTF8(m.xid, "_NET_WM_NAME")
	if err != nil {
		return err
	}
	if !ok {
		title, _, err = m.props.GetLatin1(m.xid, "WM_NAME")
		if err != nil {
			return err
		}
	}
	m.updateProp("title", title)
	return nil
}

func (m *Model) handleClassChange() error {
	parts, err := m.props.GetLatin1List(m.xid, "WM_CLASS")
	if err != nil {
		return err
	}
	var instance, class string
	if len(parts) > 0 {
		instance = parts[0]
	}
	if len(parts) > 1 {
		class = parts[1]
	}
	m.updateProp("class-instance", [2]string{instance, class})
	return nil
}

func (m *Model) handleRoleChange() error {
	role, _, err := m.props.GetLatin1(m.xid, "WM_WINDOW_ROLE")
	if err != nil {
		return err
	}
	m.updateProp("role", role)
	return nil
}

func (m *Model) handleClientMachineChange() error {
	machine, _, err := m.props.GetLatin1(m.xid, "WM_CLIENT_MACHINE")
	if err != nil {
		return err
	}
	m.updateProp("client-machine", machine)
	return nil
}

func (m *Model) handlePIDChange() error {
	pid, ok, err := m.props.GetU32(m.xid, "_NET_WM_PID")
	if err != nil {
		return err
	}
	if !ok {
		m.updateProp("wm-pid", -1)
		return nil
	}
	m.updateProp("wm-pid", int(pid))
	return nil
}

func (m *Model) handleProtocolsChange() error {
	protocols, err := m.props.GetAtoms(m.xid, "WM_PROTOCOLS")
	if err != nil {
		return err
	}
	m.updateProp("protocols", protocols)
	m.updateCanFocus()
	return nil
}

func (m *Model) supportsProtocol(name string) bool {
	for _, p := range m.propStrs("protocols") {
		if p == name {
			return true
		}
	}
	return false
}

func (m *Model) updateCanFocus() {
	canFocus := m.inputField != 0 || m.supportsProtocol("WM_TAKE_FOCUS")
	m.updateProp("can-focus", canFocus)
}

func (m *Model) handleCommandChange() error {
	command, _, err := m.props.GetLatin1(m.xid, "WM_COMMAND")
	if err != nil {
		return err
	}
	m.updateProp("command", command)
	return nil
}

func (m *Model) handleOpaqueRegionChange() error {
	values, err := m.props.GetU32s(m.xid, "_NET_WM_OPAQUE_REGION")
	if err != nil {
		return err
	}
	var rectangles [][4]uint32
	if len(values)%4 == 0 {
		for len(values) >= 4 {
			rectangles = append(rectangles, [4]uint32{values[0], values[1], values[2], values[3]})
			values = values[4:]
		}
	}
	m.updateProp("opaque-region", rectangles)
	return nil
}

func (m *Model) handleTransientForChange() error {
	transientFor, _, err := m.props.GetWindow(m.xid, "WM_TRANSIENT_FOR")
	if err != nil {
		return err
	}
	// by id, never an owning pointer: the referenced window may be gone
	m.updateProp("transient-for", uint32(transientFor))
	return nil
}

// guessWindowType covers clients that never set _NET_WM_WINDOW_TYPE. EWMH:
// transient windows without the property are dialogs, except
// override-redirect ones which are treated as normal.
func (m *Model) guessWindowType() string {
	if m.kind != KindOverrideRedirect {
		if tf, _ := m.values["transient-for"].(uint32); tf != 0 {
			return "_NET_WM_WINDOW_TYPE_DIALOG"
		}
	}
	return "_NET_WM_WINDOW_TYPE_NORMAL"
}

func (m *Model) handleWindowTypeChange() error {
	types, err := m.props.GetAtoms(m.xid, "_NET_WM_WINDOW_TYPE")
	if err != nil {
		return err
	}
	if len(types) == 0 {
		types = []string{m.guessWindowType()}
	}
	for i, t := range types {
		types[i] = trimWindowTypePrefix(t)
	}
	m.updateProp("window-type", types)
	return nil
}

func trimWindowTypePrefix(atom string) string {
	for _, prefix := range []string{"_NET_WM_WINDOW_TYPE_", "_NET_WM_TYPE_"} {
		if len(atom) > len(prefix) && atom[:len(prefix)] == prefix {
			return atom[len(prefix):]
		}
	}
	return atom
}

// WorkspaceUnset marks a window with no _NET_WM_DESKTOP property.
const WorkspaceUnset = int(^uint32(0) >> 1)

// WorkspaceAll is the EWMH "sticky" workspace value (0xffffffff).
const WorkspaceAll = -1

func (m *Model) handleWorkspaceChange() error {
	v, ok, err := m.props.GetU32(m.xid, "_NET_WM_DESKTOP")
	if err != nil {
		return err
	}
	workspace := WorkspaceUnset
	if ok {
		if v == ^uint32(0) {
			workspace = WorkspaceAll
		} else {
			workspace = int(v)
		}
	}
	m.updateProp("workspace", workspace)
	return nil
}

func (m *Model) handleFullscreenMonitorsChange() error {
	values, err := m.props.GetU32s(m.xid, "_NET_WM_FULLSCREEN_MONITORS")
	if err != nil {
		return err
	}
	m.updateProp("fullscreen-monitors", values)
	return nil
}

func (m *Model) handleStrutChange() error {
	strut, ok, err := m.props.GetStrut(m.xid, "_NET_WM_STRUT_PARTIAL")
	if err != nil {
		return err
	}
	if !ok {
		strut, _, err = m.props.GetStrut(m.xid, "_NET_WM_STRUT")
		if err != nil {
			return err
		}
	}
	m.updateProp("strut", strut)
	return nil
}

func (m *Model) handleWMHintsChange() error {
	hints, ok, err := m.props.GetWMHints(m.xid)
	if err != nil || !ok {
		return err
	}
	group, _ := hints.Group()
	m.updateProp("group-leader", group)
	if hints.Urgent() {
		m.state.Update(StateDemandsAttention, 0)
	}
	// the input field is only honoured once, matching the original
	if m.inputField == -1 && hints.Flags&xprop.HintInput != 0 {
		if hints.AcceptsInput() {
			m.inputField = 1
		} else {
			m.inputField = 0
		}
		m.updateCanFocus()
	}
	if !m.setupDone && hints.StartIconic() {
		m.updateProp("iconic", true)
		m.state.Update(StateHidden, StateFocused)
	}
	return nil
}

//
// Actions
//

func (m *Model) Raise() {
	m.trap.Swallow(func() {
		cookie := xproto.ConfigureWindowChecked(m.conn, m.xid,
			xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
		m.trap.Add("raise", cookie.Check)
	})
}

// SetActive publishes this window as _NET_ACTIVE_WINDOW on the root.
func (m *Model) SetActive() {
	m.trap.Swallow(func() {
		m.props.SetWindow(m.trap, m.Root, "_NET_ACTIVE_WINDOW", m.xid)
	})
}

// MoveToWorkspace updates _NET_WM_DESKTOP; the wire change loops back
// through the property handler.
func (m *Model) MoveToWorkspace(workspace int) {
	current, _ := m.values["workspace"].(int)
	if current == workspace {
		return
	}
	m.trap.Log(func() {
		if workspace == WorkspaceUnset {
			m.props.Delete(m.trap, m.xid, "_NET_WM_DESKTOP")
			return
		}
		v := uint32(workspace)
		if workspace == WorkspaceAll {
			v = ^uint32(0)
		}
		m.props.SetCardinal(m.trap, m.xid, "_NET_WM_DESKTOP", v)
	})
	m.handleWorkspaceChange()
}

// RequestClose asks the client to close via WM_DELETE_WINDOW when it is
// advertised, killing the client otherwise.
func (m *Model) RequestClose() bool {
	if m.supportsProtocol("WM_DELETE_WINDOW") {
		m.sendDelete()
		return true
	}
	m.log.Info("Window does not support WM_DELETE_WINDOW, killing client",
		"title", m.propStr("title"))
	m.trap.Swallow(func() {
		cookie := xproto.KillClientChecked(m.conn, uint32(m.xid))
		m.trap.Add("kill client", cookie.Check)
	})
	return true
}

func (m *Model) sendDelete() {
	m.trap.Swallow(func() {
		deleteAtom := m.props.Atoms().MustIntern("WM_DELETE_WINDOW")
		protocolsAtom := m.props.Atoms().MustIntern("WM_PROTOCOLS")
		data := xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(deleteAtom), uint32(m.Timestamp()), 0, 0, 0,
		})
		ev := xproto.ClientMessageEvent{
			Format: 32,
			Window: m.xid,
			Type:   protocolsAtom,
			Data:   data,
		}
		cookie := xproto.SendEventChecked(m.conn, false, m.xid, xproto.EventMaskNoEvent, string(ev.Bytes()))
		m.trap.Add("send WM_DELETE_WINDOW", cookie.Check)
	})
}

//
// Shape tracking: bursts are debounced with a coalescing timer keyed by the
// newest event serial; stale serials are discarded.
//

func (m *Model) handleShapeEvent(serial uint32, shaped bool) {
	if !shaped && m.values["shape"] == nil {
		return
	}
	if cur, ok := m.values["shape"].(shapeInfo); ok && !serialAfter(serial, cur.Serial) {
		return
	}
	if serialAfter(serial, m.shapeSerial) {
		m.shapeSerial = serial
	}
	if m.shapeCancel == nil && m.Schedule != nil {
		m.shapeCancel = m.Schedule(shapeDelay, m.readShape)
	}
}

type shapeInfo struct {
	Serial   uint32
	Bounding []xproto.Rectangle
	Clip     []xproto.Rectangle
}

func (m *Model) readShape() {
	m.shapeCancel = nil
	if m.lifecycle != LifecycleManaged {
		return
	}
	info := shapeInfo{Serial: m.shapeSerial}
	m.trap.Log(func() {
		info.Bounding = m.shapeRectangles(shapeKindBounding)
		info.Clip = m.shapeRectangles(shapeKindClip)
	})
	old, _ := m.values["shape"].(shapeInfo)
	if !shapeChanged(old, info) {
		return
	}
	m.updateProp("shape", info)
}

//
// Client message verbs shared by all variants
//

const (
	netWMStateRemove = 0
	netWMStateAdd    = 1
	netWMStateToggle = 2
)

// handleClientMessage processes the verbs every variant understands,
// reporting whether the message type was recognized.
func (m *Model) handleClientMessage(msgType string, data [5]uint32, serial uint32) bool {
	switch msgType {
	case "_NET_WM_STATE":
		m.handleStateMessage(data)
		return true
	case "_NET_WM_MOVERESIZE":
		m.bus.WindowMoveResize.Publish(bus.WindowMoveResize{
			UUID: m.UUID, XID: uint32(m.xid),
			XRoot: int(int32(data[0])), YRoot: int(int32(data[1])), Direction: data[2],
		})
		return true
	case "_NET_ACTIVE_WINDOW":
		m.SetActive()
		m.bus.WindowRestack.Publish(bus.WindowRestack{UUID: m.UUID, XID: uint32(m.xid), Detail: xproto.StackModeAbove})
		return true
	case "_NET_WM_DESKTOP":
		workspace := int(data[0])
		ndesktops := 0
		if m.DesktopCount != nil {
			ndesktops = m.DesktopCount()
		}
		switch {
		case ndesktops == 0:
			m.MoveToWorkspace(0)
		case data[0] == ^uint32(0):
			m.MoveToWorkspace(WorkspaceAll)
		case workspace >= 0 && workspace < ndesktops:
			m.MoveToWorkspace(workspace)
		default:
			m.log.Warn("Invalid workspace request", "workspace", workspace, "desktops", ndesktops)
		}
		return true
	case "_NET_WM_FULLSCREEN_MONITORS":
		const maxMonitor = 16
		monitors := data[:4]
		for _, v := range monitors {
			if v >= maxMonitor {
				m.log.Warn("Invalid fullscreen monitors request", "monitors", monitors)
				return true
			}
		}
		m.trap.Log(func() {
			m.props.SetU32s(m.trap, m.xid, "_NET_WM_FULLSCREEN_MONITORS", "CARDINAL",
				monitors[0], monitors[1], monitors[2], monitors[3])
		})
		m.handleFullscreenMonitorsChange()
		return true
	case "_NET_RESTACK_WINDOW":
		m.bus.WindowRestack.Publish(bus.WindowRestack{
			UUID: m.UUID, XID: uint32(m.xid),
			Detail:  data[2],
			Sibling: data[1],
		})
		return true
	case "_NET_CLOSE_WINDOW":
		m.RequestClose()
		return true
	case "_NET_REQUEST_FRAME_EXTENTS":
		m.writeFrameExtents()
		return true
	}
	return false
}

// handleStateMessage applies an ADD/REMOVE/TOGGLE request carrying up to two
// flag atoms. The maximized pair is special: both atoms are required
// together because the model has a single "maximized" projection.
func (m *Model) handleStateMessage(data [5]uint32) {
	mode := data[0]
	atom1 := m.atomName(xproto.Atom(data[1]))
	atom2 := m.atomName(xproto.Atom(data[2]))

	maximizedAtom := func(name string) bool {
		return name == "_NET_WM_STATE_MAXIMIZED_VERT" || name == "_NET_WM_STATE_MAXIMIZED_HORZ"
	}

	var projection string
	switch {
	case atom1 == "_NET_WM_STATE_HIDDEN":
		// not honoured, it makes little sense coming from a client
		return
	case maximizedAtom(atom1):
		if atom1 == atom2 || !maximizedAtom(atom2) {
			return
		}
		projection = "maximized"
	default:
		flag := StateFromAtom(atom1)
		if flag == 0 {
			m.log.Info("Unhandled _NET_WM_STATE request", "atom", atom1)
			return
		}
		for name, flags := range stateProjections {
			if flags == flag {
				projection = name
				break
			}
		}
	}
	if projection == "" || projection == "focused" {
		return
	}

	current := m.state.Get(projection)
	var value bool
	switch mode {
	case netWMStateAdd:
		value = true
	case netWMStateRemove:
		value = false
	case netWMStateToggle:
		value = !current
	default:
		m.log.Warn("Invalid _NET_WM_STATE mode", "mode", mode)
		return
	}
	if value != current {
		m.state.Set(projection, value)
	}
}

func (m *Model) atomName(atom xproto.Atom) string {
	if atom == 0 {
		return ""
	}
	name, err := m.props.Atoms().Name(atom)
	if err != nil {
		m.log.Warn("Failed to resolve atom", "atom", atom, "error", err)
		return ""
	}
	return name
}
