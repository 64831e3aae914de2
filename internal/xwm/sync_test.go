package xwm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePropChangeOnly(t *testing.T) {
	m := testModel(KindWindow)
	assert.True(t, m.updateProp("title", "xterm"))
	assert.False(t, m.updateProp("title", "xterm"), "re-setting the same value is a no-op")
	assert.True(t, m.updateProp("title", "emacs"))
	assert.Equal(t, "emacs", m.propStr("title"))
}

func TestUpdatePropDeepEquality(t *testing.T) {
	m := testModel(KindWindow)
	assert.True(t, m.updateProp("protocols", []string{"WM_DELETE_WINDOW"}))
	assert.False(t, m.updateProp("protocols", []string{"WM_DELETE_WINDOW"}),
		"equal slices compare by content")
}

func TestNotifyGatedUntilSetupDone(t *testing.T) {
	m := testModel(KindWindow)
	m.expose("title", ExposedDynamic)
	events, cancel := m.bus.WindowChanged.Subscribe()
	defer cancel()

	m.updateProp("title", "early")
	select {
	case ev := <-events:
		t.Fatalf("unexpected notification before setup: %+v", ev)
	default:
	}

	m.setupDone = true
	m.lifecycle = LifecycleManaged
	m.updateProp("title", "late")
	select {
	case ev := <-events:
		assert.Equal(t, "title", ev.Property)
		assert.Equal(t, "test", ev.UUID)
	default:
		t.Fatal("expected a change notification")
	}
}

func TestStaticExposureDoesNotNotify(t *testing.T) {
	m := testModel(KindWindow)
	m.expose("role", ExposedStatic)
	m.setupDone = true
	m.lifecycle = LifecycleManaged
	events, cancel := m.bus.WindowChanged.Subscribe()
	defer cancel()

	m.updateProp("role", "browser")
	select {
	case ev := <-events:
		t.Fatalf("static property must not notify: %+v", ev)
	default:
	}
}

func TestWriteHandlerRunsOnChange(t *testing.T) {
	m := testModel(KindWindow)
	writes := 0
	m.bindWrite("frame", func() { writes++ })
	m.setupDone = true
	m.lifecycle = LifecycleManaged

	m.updateProp("frame", [4]uint32{1, 2, 3, 4})
	assert.Equal(t, 1, writes)
	m.updateProp("frame", [4]uint32{1, 2, 3, 4})
	assert.Equal(t, 1, writes)
}

func TestReadInitialPropsOrderAndDedup(t *testing.T) {
	m := testModel(KindWindow)
	var order []string
	handler := func(name string) func() error {
		return func() error {
			order = append(order, name)
			return nil
		}
	}
	m.bindInitial("_NET_WM_STATE", handler("state"))
	m.bindInitial("WM_NAME", handler("name"))
	m.bindInitial("WM_NAME", handler("name"))
	m.bindInitial("WM_HINTS", handler("hints"))

	require.NoError(t, m.readInitialProps())
	assert.Equal(t, []string{"state", "name", "hints"}, order)
}

func TestReadInitialPropsPropagatesErrors(t *testing.T) {
	m := testModel(KindWindow)
	boom := errors.New("gone")
	m.bindInitial("WM_NAME", func() error { return boom })
	m.bindInitial("WM_CLASS", func() error {
		t.Fatal("must stop at the first error")
		return nil
	})
	assert.ErrorIs(t, m.readInitialProps(), boom)
}

func TestHandlePropertyChangeSwallowsErrors(t *testing.T) {
	m := testModel(KindWindow)
	m.bindWire("WM_NAME", func() error { return errors.New("transient") })
	m.handlePropertyChange("WM_NAME")
	m.handlePropertyChange("UNKNOWN_ATOM")
}
