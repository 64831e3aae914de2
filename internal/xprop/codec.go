// Package xprop converts between typed Go values and the X11 property wire
// format. The pure codec lives in this file; Client (client.go) binds it to a
// connection. Strings in X really are null-separated, not null-terminated
// (ICCCM 2.7.1).
package xprop

import (
	"fmt"

	"github.com/jezek/xgb"
)

// DecodeError reports property bytes that do not match the declared type's
// expected shape. Callers log it and treat the property as absent.
type DecodeError struct {
	Property string
	Reason   string
	Data     []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s (% x)", e.Property, e.Reason, e.Data)
}

// forceLength zero-pads or truncates data to length. okLength marks an
// alternate size that is not worth reporting (pass -1 for none).
func forceLength(property string, data []byte, length, okLength int) ([]byte, bool) {
	if len(data) == length {
		return data, true
	}
	quiet := len(data) == okLength
	padded := make([]byte, length)
	copy(padded, data)
	return padded, quiet
}

func EncodeUTF8List(values []string) []byte {
	var out []byte
	for i, v := range values {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, v...)
	}
	return out
}

func DecodeUTF8List(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	// Tolerate a trailing terminator some clients append.
	if data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	var out []string
	start := 0
	for i, b := range data {
		if b == 0 {
			out = append(out, string(data[start:i]))
			start = i + 1
		}
	}
	return append(out, string(data[start:]))
}

// Latin-1 maps bytes to the first 256 code points directly.
func EncodeLatin1(v string) []byte {
	out := make([]byte, 0, len(v))
	for _, r := range v {
		if r > 0xff {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}

func DecodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func DecodeLatin1List(data []byte) []string {
	var out []string
	for _, part := range splitNull(data) {
		out = append(out, DecodeLatin1(part))
	}
	return out
}

func splitNull(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == 0 {
			out = append(out, data[start:i])
			start = i + 1
		}
	}
	return append(out, data[start:])
}

func EncodeU32s(values ...uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		xgb.Put32(out[4*i:], v)
	}
	return out
}

func DecodeU32s(property string, data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, &DecodeError{property, fmt.Sprintf("length %d is not a multiple of 4", len(data)), data}
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = xgb.Get32(data[4*i:])
	}
	return out, nil
}

// WM_STATE is two 32-bit values: the state and an icon window we ignore.
const (
	WithdrawnState = 0
	NormalState    = 1
	IconicState    = 3
)

func EncodeWMState(state uint32) []byte {
	return EncodeU32s(state, 0)
}

func DecodeWMState(data []byte) (uint32, bool) {
	padded, ok := forceLength("WM_STATE", data, 8, 4)
	return xgb.Get32(padded), ok
}

// WM_HINTS flag bits (ICCCM 4.1.2.4).
const (
	HintInput       = 1 << 0
	HintState       = 1 << 1
	HintIconPixmap  = 1 << 2
	HintIconWindow  = 1 << 3
	HintIconPos     = 1 << 4
	HintIconMask    = 1 << 5
	HintWindowGroup = 1 << 6
	HintUrgency     = 1 << 8
)

type WMHints struct {
	Flags        uint32
	Input        uint32
	InitialState uint32
	IconPixmap   uint32
	IconWindow   uint32
	IconX        uint32
	IconY        uint32
	IconMask     uint32
	WindowGroup  uint32
}

// AcceptsInput reports whether the client wants the manager to set input
// focus on it; absent the flag, ICCCM says assume yes.
func (h WMHints) AcceptsInput() bool {
	return h.Flags&HintInput == 0 || h.Input != 0
}

func (h WMHints) Urgent() bool {
	return h.Flags&HintUrgency != 0
}

func (h WMHints) StartIconic() bool {
	return h.Flags&HintState != 0 && h.InitialState == IconicState
}

func (h WMHints) Group() (uint32, bool) {
	return h.WindowGroup, h.Flags&HintWindowGroup != 0
}

func DecodeWMHints(data []byte) (WMHints, error) {
	if len(data) < 8*4 {
		return WMHints{}, &DecodeError{"WM_HINTS", fmt.Sprintf("want 36 bytes, got %d", len(data)), data}
	}
	padded, _ := forceLength("WM_HINTS", data, 9*4, 8*4)
	u, _ := DecodeU32s("WM_HINTS", padded)
	return WMHints{
		Flags: u[0], Input: u[1], InitialState: u[2],
		IconPixmap: u[3], IconWindow: u[4],
		IconX: u[5], IconY: u[6],
		IconMask: u[7], WindowGroup: u[8],
	}, nil
}

// WM_NORMAL_HINTS flag bits (ICCCM 4.1.2.3).
const (
	USPosition  = 1 << 0
	USSize      = 1 << 1
	PPosition   = 1 << 2
	PSize       = 1 << 3
	PMinSize    = 1 << 4
	PMaxSize    = 1 << 5
	PResizeInc  = 1 << 6
	PAspect     = 1 << 7
	PBaseSize   = 1 << 8
	PWinGravity = 1 << 9
)

// SizeHints is the decoded WM_NORMAL_HINTS record. Fields are only
// meaningful when the matching flag bit is set; use the accessors.
type SizeHints struct {
	Flags                  uint32
	X, Y                   int32
	Width, Height          uint32
	MinWidth, MinHeight    uint32
	MaxWidth, MaxHeight    uint32
	WidthInc, HeightInc    uint32
	MinAspectN, MinAspectD uint32
	MaxAspectN, MaxAspectD uint32
	BaseWidth, BaseHeight  uint32
	WinGravity             uint32
}

func (h SizeHints) MinSize() (w, hh uint32, ok bool) {
	return h.MinWidth, h.MinHeight, h.Flags&PMinSize != 0
}

func (h SizeHints) MaxSize() (w, hh uint32, ok bool) {
	return h.MaxWidth, h.MaxHeight, h.Flags&PMaxSize != 0
}

func (h SizeHints) ResizeInc() (w, hh uint32, ok bool) {
	return h.WidthInc, h.HeightInc, h.Flags&PResizeInc != 0
}

// BaseSize falls back to the minimum size per ICCCM when PBaseSize is unset.
func (h SizeHints) BaseSize() (w, hh uint32, ok bool) {
	if h.Flags&PBaseSize != 0 {
		return h.BaseWidth, h.BaseHeight, true
	}
	if h.Flags&PMinSize != 0 {
		return h.MinWidth, h.MinHeight, true
	}
	return 0, 0, false
}

// Aspect returns the allowed width/height ratio bounds.
func (h SizeHints) Aspect() (minN, minD, maxN, maxD uint32, ok bool) {
	if h.Flags&PAspect == 0 {
		return 0, 0, 0, 0, false
	}
	return h.MinAspectN, h.MinAspectD, h.MaxAspectN, h.MaxAspectD, true
}

func DecodeSizeHints(data []byte) (SizeHints, error) {
	if len(data) < 15*4 {
		// 15 u32 is the pre-ICCCM layout without base size and gravity.
		return SizeHints{}, &DecodeError{"WM_NORMAL_HINTS", fmt.Sprintf("want at least 60 bytes, got %d", len(data)), data}
	}
	padded, _ := forceLength("WM_NORMAL_HINTS", data, 18*4, 15*4)
	u, _ := DecodeU32s("WM_NORMAL_HINTS", padded)
	return SizeHints{
		Flags: u[0],
		X:     int32(u[1]), Y: int32(u[2]),
		Width: u[3], Height: u[4],
		MinWidth: u[5], MinHeight: u[6],
		MaxWidth: u[7], MaxHeight: u[8],
		WidthInc: u[9], HeightInc: u[10],
		MinAspectN: u[11], MinAspectD: u[12],
		MaxAspectN: u[13], MaxAspectD: u[14],
		BaseWidth: u[15], BaseHeight: u[16],
		WinGravity: u[17],
	}, nil
}

// _MOTIF_WM_HINTS flag and decoration bits (from mwmh.h).
const (
	MotifFunctionsFlag   = 1 << 0
	MotifDecorationsFlag = 1 << 1
	MotifInputModeFlag   = 1 << 2
	MotifStatusFlag      = 1 << 3

	MotifDecorAll      = 1 << 0
	MotifDecorBorder   = 1 << 1
	MotifDecorResizeH  = 1 << 2
	MotifDecorTitle    = 1 << 3
	MotifDecorMenu     = 1 << 4
	MotifDecorMinimize = 1 << 5
	MotifDecorMaximize = 1 << 6
)

type MotifHints struct {
	Flags       uint32
	Functions   uint32
	Decorations uint32
	InputMode   int32
	Status      uint32
}

// Decorated reports the client's decoration wish, and whether it stated one.
func (h MotifHints) Decorated() (bool, bool) {
	if h.Flags&MotifDecorationsFlag == 0 {
		return true, false
	}
	return h.Decorations != 0, true
}

func DecodeMotifHints(data []byte) (MotifHints, error) {
	// Some applications send the wrong size (blender uses 16 bytes), pad it.
	padded, _ := forceLength("_MOTIF_WM_HINTS", data, 5*4, 4*4)
	if len(data) < 4*4 {
		return MotifHints{}, &DecodeError{"_MOTIF_WM_HINTS", fmt.Sprintf("want 20 bytes, got %d", len(data)), data}
	}
	u, _ := DecodeU32s("_MOTIF_WM_HINTS", padded)
	return MotifHints{
		Flags: u[0], Functions: u[1], Decorations: u[2],
		InputMode: int32(u[3]), Status: u[4],
	}, nil
}

// Strut covers both _NET_WM_STRUT (4 values) and _NET_WM_STRUT_PARTIAL
// (12 values); the short form leaves the span fields zero.
type Strut struct {
	Left, Right, Top, Bottom uint32
	LeftStartY, LeftEndY     uint32
	RightStartY, RightEndY   uint32
	TopStartX, TopEndX       uint32
	BottomStartX, BottomEndX uint32
	Partial                  bool
}

func DecodeStrut(data []byte) (Strut, error) {
	u, err := DecodeU32s("_NET_WM_STRUT", data)
	if err != nil {
		return Strut{}, err
	}
	switch len(u) {
	case 4:
		return Strut{Left: u[0], Right: u[1], Top: u[2], Bottom: u[3]}, nil
	case 12:
		return Strut{
			Left: u[0], Right: u[1], Top: u[2], Bottom: u[3],
			LeftStartY: u[4], LeftEndY: u[5],
			RightStartY: u[6], RightEndY: u[7],
			TopStartX: u[8], TopEndX: u[9],
			BottomStartX: u[10], BottomEndX: u[11],
			Partial: true,
		}, nil
	default:
		return Strut{}, &DecodeError{"_NET_WM_STRUT", fmt.Sprintf("want 4 or 12 values, got %d", len(u)), data}
	}
}

// Icon is one image from a _NET_WM_ICON stream, pixels in BGRA order.
type Icon struct {
	Width  uint32
	Height uint32
	Pixels []uint32
}

// DecodeIcons reads images until the stream runs out; a corrupt tail is
// dropped, anything decoded before it is kept.
func DecodeIcons(data []byte) []Icon {
	u, err := DecodeU32s("_NET_WM_ICON", data[:len(data)-len(data)%4])
	if err != nil {
		return nil
	}
	var icons []Icon
	for len(u) >= 2 {
		w, h := u[0], u[1]
		n := int(w) * int(h)
		if w == 0 || h == 0 || n < 0 || n > len(u)-2 {
			break
		}
		icons = append(icons, Icon{Width: w, Height: h, Pixels: u[2 : 2+n]})
		u = u[2+n:]
	}
	return icons
}
