package xwm

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svwm/svwm/internal/bus"
	"github.com/svwm/svwm/internal/xprop"
)

func testModel(kind Kind) *Model {
	m := &Model{
		UUID:          "test",
		kind:          kind,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		bus:           bus.New(),
		values:        make(map[string]any),
		wireHandlers:  make(map[string]func() error),
		writeHandlers: make(map[string]func()),
		exposure:      make(map[string]Exposure),
		inputField:    -1,
	}
	m.state = NewStateSet(nil, nil)
	return m
}

func TestSerialAfter(t *testing.T) {
	assert.True(t, serialAfter(150, 100))
	assert.False(t, serialAfter(50, 100))
	assert.False(t, serialAfter(100, 100))

	// 16-bit wraparound: a tiny serial long after a big one counts as newer
	assert.True(t, serialAfter(10, 65530))
	assert.False(t, serialAfter(65530, 10), "a serial shortly in the past is not newer")
}

func TestGuessWindowType(t *testing.T) {
	m := testModel(KindWindow)
	assert.Equal(t, "_NET_WM_WINDOW_TYPE_NORMAL", m.guessWindowType())

	m.values["transient-for"] = uint32(5)
	assert.Equal(t, "_NET_WM_WINDOW_TYPE_DIALOG", m.guessWindowType())

	or := testModel(KindOverrideRedirect)
	or.values["transient-for"] = uint32(5)
	assert.Equal(t, "_NET_WM_WINDOW_TYPE_NORMAL", or.guessWindowType(),
		"transient override-redirect windows stay normal")
}

func TestTrimWindowTypePrefix(t *testing.T) {
	assert.Equal(t, "DIALOG", trimWindowTypePrefix("_NET_WM_WINDOW_TYPE_DIALOG"))
	assert.Equal(t, "DOCK", trimWindowTypePrefix("_NET_WM_TYPE_DOCK"))
	assert.Equal(t, "CUSTOM", trimWindowTypePrefix("CUSTOM"))
}

func TestSupportsProtocol(t *testing.T) {
	m := testModel(KindWindow)
	assert.False(t, m.supportsProtocol("WM_DELETE_WINDOW"))
	m.values["protocols"] = []string{"WM_DELETE_WINDOW", "WM_TAKE_FOCUS"}
	assert.True(t, m.supportsProtocol("WM_DELETE_WINDOW"))
	assert.False(t, m.supportsProtocol("_NET_WM_PING"))
}

func TestUpdateCanFocus(t *testing.T) {
	m := testModel(KindWindow)
	m.updateCanFocus()
	assert.True(t, m.propBool("can-focus"), "unknown input field assumes focusable")

	m.inputField = 0
	m.updateCanFocus()
	assert.False(t, m.propBool("can-focus"))

	m.values["protocols"] = []string{"WM_TAKE_FOCUS"}
	m.updateCanFocus()
	assert.True(t, m.propBool("can-focus"), "WM_TAKE_FOCUS compensates for input=false")
}

func TestWindowDecorated(t *testing.T) {
	w := &Window{Model: testModel(KindWindow), decorations: -1}
	assert.True(t, w.decorated(), "unknown counts as decorated")

	w.decorations = xprop.MotifDecorBorder
	assert.False(t, w.decorated(), "border alone does not make a titled frame")

	w.decorations = xprop.MotifDecorTitle
	assert.True(t, w.decorated())

	w.decorations = 0
	assert.False(t, w.decorated())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "window", KindWindow.String())
	assert.Equal(t, "override-redirect", KindOverrideRedirect.String())
	assert.Equal(t, "tray", KindTray.String())
}

func TestShapeDisabledWithoutExtension(t *testing.T) {
	m := testModel(KindWindow)
	m.selectShapeInput()
	assert.Nil(t, m.shapeRectangles(shapeKindBounding))
	assert.Nil(t, m.shapeRectangles(shapeKindClip))
}

func TestIconifyRequestGate(t *testing.T) {
	w := &Window{Model: testModel(KindWindow), decorations: -1}
	w.lastUnmapSerial = 100

	iconic, ok := w.iconifyRequest([5]uint32{xprop.IconicState}, 150)
	assert.True(t, ok)
	assert.True(t, iconic)

	iconic, ok = w.iconifyRequest([5]uint32{xprop.NormalState}, 150)
	assert.True(t, ok)
	assert.False(t, iconic)

	_, ok = w.iconifyRequest([5]uint32{xprop.IconicState}, 90)
	assert.False(t, ok, "a message queued before our own unmap is stale")

	_, ok = w.iconifyRequest([5]uint32{xprop.WithdrawnState}, 150)
	assert.False(t, ok)
}

func TestUnmanageLifecycleRunsOnce(t *testing.T) {
	m := testModel(KindWindow)
	m.lifecycle = LifecycleManaged
	var forgotten int
	m.OnUnmanaged = func(xid xproto.Window) { forgotten++ }
	events, cancel := m.bus.WindowUnmanaged.Subscribe()
	defer cancel()

	proceed, wasManaged := m.beginUnmanage()
	require.True(t, proceed)
	assert.True(t, wasManaged)
	assert.Equal(t, Unmanaging, m.Lifecycle())

	// re-entry while teardown is in flight
	proceed, _ = m.beginUnmanage()
	assert.False(t, proceed)

	m.endUnmanage(wasManaged)
	assert.Equal(t, Unmanaged, m.Lifecycle())

	proceed, _ = m.beginUnmanage()
	assert.False(t, proceed, "a second unmanage is a no-op")
	assert.Equal(t, Unmanaged, m.Lifecycle())
	assert.Equal(t, 1, forgotten)

	select {
	case <-events:
	default:
		t.Fatal("expected an unmanaged event")
	}
	select {
	case <-events:
		t.Fatal("expected exactly one unmanaged event")
	default:
	}
}

func TestUnmanageBeforeManagedStaysQuiet(t *testing.T) {
	m := testModel(KindWindow)
	m.lifecycle = Managing
	events, cancel := m.bus.WindowUnmanaged.Subscribe()
	defer cancel()

	proceed, wasManaged := m.beginUnmanage()
	require.True(t, proceed)
	assert.False(t, wasManaged, "setup never completed")
	m.endUnmanage(wasManaged)
	assert.Equal(t, Unmanaged, m.Lifecycle())

	select {
	case <-events:
		t.Fatal("a failed manage attempt must not announce an unmanage")
	default:
	}
}

func TestChildrenChangesNotify(t *testing.T) {
	w := &Window{Model: testModel(KindWindow), decorations: -1}
	w.bindWindow()
	w.setupDone = true
	w.lifecycle = LifecycleManaged
	events, cancel := w.bus.WindowChanged.Subscribe()
	defer cancel()

	w.updateProp("children", []ChildWindow{{XID: 7, Geo: Geometry{W: 10, H: 10}}})
	select {
	case ev := <-events:
		assert.Equal(t, "children", ev.Property)
	default:
		t.Fatal("expected a change notification for the children list")
	}
}
