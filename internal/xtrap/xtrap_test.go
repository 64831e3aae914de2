package xtrap

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrap() *Trap {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSyncReportsFirstFailure(t *testing.T) {
	trap := testTrap()
	err := trap.Sync(func() error {
		trap.Add("probe window", func() error { return xproto.WindowError{} })
		trap.Add("never reached", func() error { return xproto.MatchError{} })
		return nil
	})

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "probe window", perr.Op)
	assert.Equal(t, "BadWindow", perr.Name)
}

func TestSyncOK(t *testing.T) {
	trap := testTrap()
	checked := 0
	err := trap.Sync(func() error {
		trap.Add("a", func() error { checked++; return nil })
		trap.Add("b", func() error { checked++; return nil })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, checked, "checks run exactly once at scope exit")
}

func TestNestedScopesCheckOnceAtOutermostExit(t *testing.T) {
	trap := testTrap()
	var order []string
	err := trap.Sync(func() error {
		trap.Add("outer", func() error { order = append(order, "outer"); return nil })
		trap.Swallow(func() {
			trap.Add("inner", func() error { order = append(order, "inner"); return nil })
		})
		assert.Empty(t, order, "inner exit must not force the round trip")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestSwallowDropsFailures(t *testing.T) {
	trap := testTrap()
	trap.Swallow(func() {
		trap.Add("vanished", func() error { return xproto.WindowError{} })
	})
	assert.Empty(t, trap.pending)
}

func TestLogContinuesPastFailures(t *testing.T) {
	trap := testTrap()
	checked := 0
	trap.Log(func() {
		trap.Add("first", func() error { checked++; return xproto.WindowError{} })
		trap.Add("second", func() error { checked++; return nil })
	})
	assert.Equal(t, 2, checked)
}

func TestUnscopedAddRunsImmediately(t *testing.T) {
	trap := testTrap()
	ran := false
	trap.Add("lone", func() error { ran = true; return nil })
	assert.True(t, ran)
	assert.Empty(t, trap.pending)
}

func TestIsBadWindow(t *testing.T) {
	assert.True(t, IsBadWindow(xproto.WindowError{}))
	assert.True(t, IsBadWindow(xproto.DrawableError{}))
	assert.False(t, IsBadWindow(xproto.MatchError{}))
	assert.False(t, IsBadWindow(errors.New("plain")))

	wrapped := &ProtocolError{Op: "op", Name: "BadWindow", Err: xproto.WindowError{}}
	assert.True(t, IsBadWindow(wrapped))
}
