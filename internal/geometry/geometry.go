// Package geometry reconciles requested window sizes with client size hints
// and server policy. Everything here is pure so it can be tested without a
// display.
package geometry

import (
	"math"

	"github.com/svwm/svwm/internal/xprop"
)

// MaxWindowSize bounds any axis; hint values at or above 2^16-1 are treated
// as unset by Merge.
const MaxWindowSize = 1<<16 - 1

// Hints is the merged, sanitized constraint set used by Constrain. Zero
// means unset for every field.
type Hints struct {
	MinWidth, MinHeight   int
	MaxWidth, MaxHeight   int
	BaseWidth, BaseHeight int
	IncWidth, IncHeight   int
	MinAspect, MaxAspect  float64
}

// Merge folds the server size policy into the client's declared hints.
// The policy minimum only applies to decorated windows (ICCCM nuance:
// undecorated windows may legitimately be tiny); the maximum applies to all.
// A minimum above the maximum collapses the range to the minimum so the
// caller never sees an inverted pair.
func Merge(client xprop.SizeHints, minW, minH, maxW, maxH int, decorated bool) Hints {
	var h Hints
	if w, hh, ok := client.MinSize(); ok {
		h.MinWidth, h.MinHeight = sane(w), sane(hh)
	}
	h.MaxWidth, h.MaxHeight = MaxWindowSize, MaxWindowSize
	if w, hh, ok := client.MaxSize(); ok {
		if v := sane(w); v > 0 {
			h.MaxWidth = v
		}
		if v := sane(hh); v > 0 {
			h.MaxHeight = v
		}
	}
	if decorated {
		if minW > 0 && minW > h.MinWidth {
			h.MinWidth = minW
		}
		if minH > 0 && minH > h.MinHeight {
			h.MinHeight = minH
		}
	}
	if maxW > 0 && maxW < h.MaxWidth {
		h.MaxWidth = maxW
	}
	if maxH > 0 && maxH < h.MaxHeight {
		h.MaxHeight = maxH
	}
	if h.MinWidth > h.MaxWidth {
		h.MaxWidth = h.MinWidth
	}
	if h.MinHeight > h.MaxHeight {
		h.MaxHeight = h.MinHeight
	}
	if w, hh, ok := client.BaseSize(); ok {
		h.BaseWidth, h.BaseHeight = sane(w), sane(hh)
	}
	if w, hh, ok := client.ResizeInc(); ok {
		h.IncWidth, h.IncHeight = sane(w), sane(hh)
	}
	if minN, minD, maxN, maxD, ok := client.Aspect(); ok {
		if minD > 0 && sane(minN) > 0 {
			h.MinAspect = float64(minN) / float64(minD)
		}
		if maxD > 0 && sane(maxN) > 0 {
			h.MaxAspect = float64(maxN) / float64(maxD)
		}
	}
	return h
}

// sane discards garbage hint values some clients send (unset fields left at
// all-ones).
func sane(v uint32) int {
	if v >= MaxWindowSize {
		return 0
	}
	return int(v)
}

// Constrain clamps the requested size to [min,max], snaps each axis to
// base+k*increment, then adjusts height to satisfy the aspect bounds,
// re-snapping afterward.
func Constrain(width, height int, h Hints) (int, int) {
	if h.MinWidth > 0 && width < h.MinWidth {
		width = h.MinWidth
	}
	if h.MinHeight > 0 && height < h.MinHeight {
		height = h.MinHeight
	}
	if h.MaxWidth > 0 && width > h.MaxWidth {
		width = h.MaxWidth
	}
	if h.MaxHeight > 0 && height > h.MaxHeight {
		height = h.MaxHeight
	}
	if h.IncWidth > 0 {
		e := max(width-h.BaseWidth, 0)
		width -= e % h.IncWidth
	}
	if h.IncHeight > 0 {
		e := max(height-h.BaseHeight, 0)
		height -= e % h.IncHeight
	}
	if h.MinAspect > 0 && height > 0 && float64(width)/float64(height) < h.MinAspect {
		height = int(math.Ceil(float64(width) * h.MinAspect))
		if h.IncHeight > 1 || (h.IncHeight > 0 && h.BaseHeight > 0) {
			e := max(height-h.BaseHeight, 0)
			height += h.IncHeight - e%h.IncHeight
		}
	}
	if h.MaxAspect > 0 && height > 0 && float64(width)/float64(height) > h.MaxAspect {
		height = int(math.Floor(float64(width) * h.MaxAspect))
		if h.IncHeight > 1 || (h.IncHeight > 0 && h.BaseHeight > 0) {
			e := max(height-h.BaseHeight, 0)
			height = max(1, height-e%h.IncHeight)
		}
	}
	return width, height
}

// ClampToDesktop repositions, never resizes, a window that would land mostly
// off-screen, leaving at least overlap pixels visible.
func ClampToDesktop(x, y, w, h, desktopW, desktopH, overlap int) (int, int) {
	if desktopW <= 0 || desktopH <= 0 {
		return x, y
	}
	if x+w < 0 {
		x = min(0, overlap-w)
	} else if x >= desktopW {
		x = max(0, desktopW-overlap)
	}
	if y+h < 0 {
		y = min(0, overlap-h)
	} else if y > desktopH {
		y = max(0, desktopH-overlap)
	}
	return x, y
}
