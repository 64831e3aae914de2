package xprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTF8List(t *testing.T) {
	data := EncodeUTF8List([]string{"one", "two", "three"})
	assert.Equal(t, []byte("one\x00two\x00three"), data)
	assert.Equal(t, []string{"one", "two", "three"}, DecodeUTF8List(data))

	// trailing terminator some clients append
	assert.Equal(t, []string{"one", "two"}, DecodeUTF8List([]byte("one\x00two\x00")))
	assert.Nil(t, DecodeUTF8List(nil))
}

func TestLatin1(t *testing.T) {
	assert.Equal(t, []byte("caf\xe9"), EncodeLatin1("café"))
	assert.Equal(t, []byte("?"), EncodeLatin1("☃"), "out-of-range runes degrade to question marks")
	assert.Equal(t, "café", DecodeLatin1([]byte("caf\xe9")))
	assert.Equal(t, []string{"xterm", "XTerm"}, DecodeLatin1List([]byte("xterm\x00XTerm\x00")))
}

func TestU32s(t *testing.T) {
	data := EncodeU32s(1, 2, 0xdeadbeef)
	values, err := DecodeU32s("TEST", data)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 0xdeadbeef}, values)

	_, err = DecodeU32s("TEST", []byte{1, 2, 3})
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "TEST", derr.Property)
}

func TestWMState(t *testing.T) {
	state, ok := DecodeWMState(EncodeWMState(IconicState))
	assert.True(t, ok)
	assert.Equal(t, uint32(IconicState), state)

	// a bare 4-byte state without the icon window is accepted quietly
	state, ok = DecodeWMState(EncodeU32s(NormalState))
	assert.True(t, ok)
	assert.Equal(t, uint32(NormalState), state)
}

func TestWMHints(t *testing.T) {
	data := EncodeU32s(HintInput|HintUrgency|HintWindowGroup, 0, 0, 0, 0, 0, 0, 0, 42)
	hints, err := DecodeWMHints(data)
	require.NoError(t, err)
	assert.False(t, hints.AcceptsInput(), "input flag set with input false")
	assert.True(t, hints.Urgent())
	group, ok := hints.Group()
	assert.True(t, ok)
	assert.Equal(t, uint32(42), group)

	// absent input flag means the client takes input
	hints, err = DecodeWMHints(EncodeU32s(0, 0, 0, 0, 0, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, hints.AcceptsInput())

	hints, err = DecodeWMHints(EncodeU32s(HintState, 0, IconicState, 0, 0, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, hints.StartIconic())

	// pre-window-group layout is padded
	_, err = DecodeWMHints(EncodeU32s(0, 0, 0, 0, 0, 0, 0, 0))
	require.NoError(t, err)

	_, err = DecodeWMHints([]byte{0, 0, 0, 0})
	assert.Error(t, err)
}

func TestSizeHints(t *testing.T) {
	u := make([]uint32, 18)
	u[0] = PMinSize | PMaxSize | PResizeInc
	u[5], u[6] = 100, 80
	u[7], u[8] = 800, 600
	u[9], u[10] = 8, 16
	hints, err := DecodeSizeHints(EncodeU32s(u...))
	require.NoError(t, err)

	w, h, ok := hints.MinSize()
	require.True(t, ok)
	assert.Equal(t, uint32(100), w)
	assert.Equal(t, uint32(80), h)
	w, h, ok = hints.MaxSize()
	require.True(t, ok)
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)

	// base size falls back to the minimum when unset
	w, h, ok = hints.BaseSize()
	require.True(t, ok)
	assert.Equal(t, uint32(100), w)
	assert.Equal(t, uint32(80), h)
}

func TestSizeHintsPreICCCMLayout(t *testing.T) {
	// 15 values: no base size, no gravity
	u := make([]uint32, 15)
	u[0] = PMinSize
	u[5], u[6] = 32, 32
	hints, err := DecodeSizeHints(EncodeU32s(u...))
	require.NoError(t, err)
	w, h, ok := hints.MinSize()
	require.True(t, ok)
	assert.Equal(t, uint32(32), w)
	assert.Equal(t, uint32(32), h)

	_, err = DecodeSizeHints(EncodeU32s(make([]uint32, 10)...))
	assert.Error(t, err)
}

func TestMotifHints(t *testing.T) {
	hints, err := DecodeMotifHints(EncodeU32s(MotifDecorationsFlag, 0, 0, 0, 0))
	require.NoError(t, err)
	wish, stated := hints.Decorated()
	assert.False(t, wish)
	assert.True(t, stated)

	// blender sends 16 bytes instead of 20
	hints, err = DecodeMotifHints(EncodeU32s(MotifDecorationsFlag, 0, MotifDecorAll, 0))
	require.NoError(t, err)
	wish, stated = hints.Decorated()
	assert.True(t, wish)
	assert.True(t, stated)

	hints, err = DecodeMotifHints(EncodeU32s(0, 0, 0, 0, 0))
	require.NoError(t, err)
	wish, stated = hints.Decorated()
	assert.True(t, wish, "no statement defaults to decorated")
	assert.False(t, stated)

	_, err = DecodeMotifHints(EncodeU32s(1, 2))
	assert.Error(t, err)
}

func TestStrut(t *testing.T) {
	strut, err := DecodeStrut(EncodeU32s(0, 0, 24, 0))
	require.NoError(t, err)
	assert.Equal(t, uint32(24), strut.Top)
	assert.False(t, strut.Partial)

	strut, err = DecodeStrut(EncodeU32s(0, 0, 24, 0, 0, 0, 0, 0, 0, 1920, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint32(24), strut.Top)
	assert.Equal(t, uint32(1920), strut.TopEndX)
	assert.True(t, strut.Partial)

	_, err = DecodeStrut(EncodeU32s(1, 2, 3))
	assert.Error(t, err)
}

func TestIcons(t *testing.T) {
	stream := append(EncodeU32s(2, 2), EncodeU32s(1, 2, 3, 4)...)
	stream = append(stream, EncodeU32s(1, 1, 9)...)
	icons := DecodeIcons(stream)
	require.Len(t, icons, 2)
	assert.Equal(t, uint32(2), icons[0].Width)
	assert.Equal(t, []uint32{1, 2, 3, 4}, icons[0].Pixels)
	assert.Equal(t, []uint32{9}, icons[1].Pixels)
}

func TestIconsCorruptTailDropped(t *testing.T) {
	stream := append(EncodeU32s(1, 1, 7), EncodeU32s(100, 100, 1)...)
	icons := DecodeIcons(stream)
	require.Len(t, icons, 1, "truncated image at the tail is dropped")
	assert.Equal(t, []uint32{7}, icons[0].Pixels)

	assert.Nil(t, DecodeIcons(EncodeU32s(0, 0, 5)))
}
