package xdispatch

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
)

func testRouter() *Router {
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDispatchByWindow(t *testing.T) {
	r := testRouter()
	var got []xproto.Window
	r.Register(7, func(ev xgb.Event) {
		got = append(got, ev.(xproto.PropertyNotifyEvent).Window)
	})

	r.Dispatch(xproto.PropertyNotifyEvent{Window: 7})
	r.Dispatch(xproto.PropertyNotifyEvent{Window: 8})
	assert.Equal(t, []xproto.Window{7}, got)
}

func TestFallbackOnlyWhenUnclaimed(t *testing.T) {
	r := testRouter()
	windowCalls, fallbackCalls := 0, 0
	r.Register(7, func(ev xgb.Event) { windowCalls++ })
	r.RegisterFallback(xproto.MapRequestEvent{}, func(ev xgb.Event) { fallbackCalls++ })

	r.Dispatch(xproto.MapRequestEvent{Window: 7})
	assert.Equal(t, 1, windowCalls)
	assert.Equal(t, 0, fallbackCalls, "claimed events skip the fallback")

	r.Dispatch(xproto.MapRequestEvent{Window: 9})
	assert.Equal(t, 1, windowCalls)
	assert.Equal(t, 1, fallbackCalls)
}

func TestFallbackKeyedByKind(t *testing.T) {
	r := testRouter()
	calls := 0
	r.RegisterFallback(xproto.MapRequestEvent{}, func(ev xgb.Event) { calls++ })

	r.Dispatch(xproto.ConfigureRequestEvent{Window: 9})
	assert.Equal(t, 0, calls)
	r.Dispatch(xproto.MapRequestEvent{Window: 9})
	assert.Equal(t, 1, calls)
}

func TestCatchAllSeesEverything(t *testing.T) {
	r := testRouter()
	calls := 0
	r.Register(7, func(ev xgb.Event) {})
	r.RegisterCatchAll(func(ev xgb.Event) { calls++ })

	r.Dispatch(xproto.PropertyNotifyEvent{Window: 7})
	r.Dispatch(xproto.PropertyNotifyEvent{Window: 8})
	r.Dispatch(xproto.SelectionClearEvent{})
	assert.Equal(t, 3, calls)
}

func TestRemoveDuringDispatch(t *testing.T) {
	r := testRouter()
	calls := 0
	var remove func()
	remove = r.Register(7, func(ev xgb.Event) {
		calls++
		remove()
	})

	r.Dispatch(xproto.PropertyNotifyEvent{Window: 7})
	r.Dispatch(xproto.PropertyNotifyEvent{Window: 7})
	assert.Equal(t, 1, calls, "a receiver removing itself is not called again")
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := testRouter()
	remove := r.Register(7, func(ev xgb.Event) {})
	remove()
	remove()
	assert.Empty(t, r.byWindow)
}

func TestTarget(t *testing.T) {
	win, ok := Target(xproto.UnmapNotifyEvent{Window: 3, Event: 9})
	assert.True(t, ok)
	assert.Equal(t, xproto.Window(3), win, "substructure events key on the affected child")

	win, ok = Target(xproto.FocusInEvent{Event: 5})
	assert.True(t, ok)
	assert.Equal(t, xproto.Window(5), win)

	_, ok = Target(xproto.SelectionClearEvent{})
	assert.False(t, ok)
}
