package xwm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stateRecorder struct {
	writes   []State
	notifies map[string]bool
}

func newStateRecorder() (*StateSet, *stateRecorder) {
	rec := &stateRecorder{notifies: make(map[string]bool)}
	s := NewStateSet(
		func(s State) { rec.writes = append(rec.writes, s) },
		func(name string, value bool) { rec.notifies[name] = value },
	)
	return s, rec
}

func TestStateSetFlag(t *testing.T) {
	s, rec := newStateRecorder()

	s.Set("fullscreen", true)
	assert.True(t, s.Get("fullscreen"))
	assert.Equal(t, []State{StateFullscreen}, rec.writes)
	assert.Equal(t, map[string]bool{"fullscreen": true}, rec.notifies)

	// no-op writes neither mirror nor notify
	s.Set("fullscreen", true)
	assert.Len(t, rec.writes, 1)
}

func TestMaximizedNeedsBothFlags(t *testing.T) {
	s, rec := newStateRecorder()

	s.Update(StateMaximizedVert, 0)
	assert.False(t, s.Get("maximized"))
	assert.NotContains(t, rec.notifies, "maximized")

	s.Update(StateMaximizedHorz, 0)
	assert.True(t, s.Get("maximized"))
	assert.True(t, rec.notifies["maximized"])

	s.Update(0, StateMaximizedVert)
	assert.False(t, s.Get("maximized"))
	assert.False(t, rec.notifies["maximized"])
}

func TestMaximizedProjectionSetsBoth(t *testing.T) {
	s, _ := newStateRecorder()
	s.Set("maximized", true)
	assert.True(t, s.Has(StateMaximizedVert|StateMaximizedHorz))
	s.Set("maximized", false)
	assert.False(t, s.Has(StateMaximizedVert))
	assert.False(t, s.Has(StateMaximizedHorz))
}

func TestResetSkipsCallbacks(t *testing.T) {
	s, rec := newStateRecorder()
	s.Reset(StateFullscreen | StateSticky)
	assert.True(t, s.Get("fullscreen"))
	assert.Empty(t, rec.writes)
	assert.Empty(t, rec.notifies)
}

func TestUpdateTogetherNotifiesOnce(t *testing.T) {
	s, rec := newStateRecorder()
	s.Update(StateHidden, StateFocused)
	assert.Len(t, rec.writes, 1, "hidden/focused flips happen in one step")
}

func TestAtomNamesDropHiddenWhenFocused(t *testing.T) {
	names := (StateFocused | StateHidden | StateFullscreen).AtomNames()
	assert.Contains(t, names, "_NET_WM_STATE_FOCUSED")
	assert.Contains(t, names, "_NET_WM_STATE_FULLSCREEN")
	assert.NotContains(t, names, "_NET_WM_STATE_HIDDEN")

	names = (StateHidden).AtomNames()
	assert.Equal(t, []string{"_NET_WM_STATE_HIDDEN"}, names)
}

func TestStateFromAtom(t *testing.T) {
	assert.Equal(t, StateFullscreen, StateFromAtom("_NET_WM_STATE_FULLSCREEN"))
	assert.Equal(t, State(0), StateFromAtom("_NET_WM_STATE_BOGUS"))
}

func TestProjectionsSnapshot(t *testing.T) {
	s, _ := newStateRecorder()
	s.Set("above", true)
	p := s.Projections()
	assert.True(t, p["above"])
	assert.False(t, p["maximized"])
	assert.Contains(t, p, "focused")
}
