package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/svwm/svwm/internal/xprop"
)

func TestConstrainMinMax(t *testing.T) {
	w, h := Constrain(50, 40, Hints{MinWidth: 100, MinHeight: 80})
	assert.Equal(t, 100, w)
	assert.Equal(t, 80, h)

	w, h = Constrain(2000, 1500, Hints{MaxWidth: 1024, MaxHeight: 768})
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
}

func TestConstrainIncrements(t *testing.T) {
	hints := Hints{BaseWidth: 4, BaseHeight: 8, IncWidth: 10, IncHeight: 10}
	w, h := Constrain(127, 99, hints)
	assert.Equal(t, 124, w, "width snaps down to base+k*inc")
	assert.Equal(t, 98, h)

	// already aligned sizes stay put
	w, h = Constrain(124, 98, hints)
	assert.Equal(t, 124, w)
	assert.Equal(t, 98, h)
}

func TestConstrainAspect(t *testing.T) {
	w, h := Constrain(100, 60, Hints{MinAspect: 2})
	assert.Equal(t, 100, w)
	assert.Equal(t, 200, h)

	w, h = Constrain(100, 150, Hints{MaxAspect: 0.5})
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)

	// satisfied bounds leave the size alone
	w, h = Constrain(100, 40, Hints{MinAspect: 2})
	assert.Equal(t, 100, w)
	assert.Equal(t, 40, h)
}

func TestConstrainAspectResnap(t *testing.T) {
	w, h := Constrain(100, 60, Hints{MinAspect: 2, IncHeight: 10})
	assert.Equal(t, 100, w)
	assert.Equal(t, 210, h, "height snaps up past the aspect bound")
}

func TestConstrainZeroHints(t *testing.T) {
	w, h := Constrain(640, 480, Hints{})
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestMergePolicyMinOnlyWhenDecorated(t *testing.T) {
	h := Merge(xprop.SizeHints{}, 50, 40, 0, 0, false)
	assert.Equal(t, 0, h.MinWidth, "undecorated windows may be tiny")
	assert.Equal(t, 0, h.MinHeight)

	h = Merge(xprop.SizeHints{}, 50, 40, 0, 0, true)
	assert.Equal(t, 50, h.MinWidth)
	assert.Equal(t, 40, h.MinHeight)
	assert.Equal(t, MaxWindowSize, h.MaxWidth)
}

func TestMergeMinAboveMaxCollapses(t *testing.T) {
	client := xprop.SizeHints{
		Flags:    xprop.PMaxSize,
		MaxWidth: 30, MaxHeight: 30,
	}
	h := Merge(client, 50, 50, 0, 0, true)
	assert.Equal(t, 50, h.MinWidth)
	assert.Equal(t, 50, h.MaxWidth, "inverted range collapses to the minimum")
	assert.Equal(t, 50, h.MinHeight)
	assert.Equal(t, 50, h.MaxHeight)
}

func TestMergeDiscardsGarbageHints(t *testing.T) {
	client := xprop.SizeHints{
		Flags:    xprop.PMinSize,
		MinWidth: MaxWindowSize, MinHeight: 200,
	}
	h := Merge(client, 0, 0, 0, 0, true)
	assert.Equal(t, 0, h.MinWidth, "all-ones hint values are unset")
	assert.Equal(t, 200, h.MinHeight)
}

func TestMergeClientMinWinsOverPolicy(t *testing.T) {
	client := xprop.SizeHints{
		Flags:    xprop.PMinSize,
		MinWidth: 300, MinHeight: 10,
	}
	h := Merge(client, 100, 100, 0, 0, true)
	assert.Equal(t, 300, h.MinWidth, "larger client minimum is kept")
	assert.Equal(t, 100, h.MinHeight, "policy raises a smaller client minimum")
}

func TestClampToDesktop(t *testing.T) {
	x, y := ClampToDesktop(10, 10, 100, 100, 1920, 1080, 20)
	assert.Equal(t, 10, x)
	assert.Equal(t, 10, y)

	x, _ = ClampToDesktop(2000, 10, 100, 100, 1920, 1080, 20)
	assert.Equal(t, 1900, x)

	x, _ = ClampToDesktop(-300, 10, 100, 100, 1920, 1080, 20)
	assert.Equal(t, -80, x)

	// y exactly at the bottom edge is tolerated, one past is not
	_, y = ClampToDesktop(10, 1080, 100, 100, 1920, 1080, 20)
	assert.Equal(t, 1080, y)
	_, y = ClampToDesktop(10, 1081, 100, 100, 1920, 1080, 20)
	assert.Equal(t, 1060, y)
}

func TestClampToDesktopUnknownDesktop(t *testing.T) {
	x, y := ClampToDesktop(5000, 5000, 100, 100, 0, 0, 20)
	assert.Equal(t, 5000, x)
	assert.Equal(t, 5000, y)
}
