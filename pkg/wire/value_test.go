package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type color uint8

const (
	colorRed color = iota + 1
	colorGreen
)

type mode uint16

func encode[T any](t *testing.T, s ValueSerializer[T], v T) []byte {
	var buf bytes.Buffer
	n, ok := s.Serialize(&v, &buf).Get()
	require.True(t, ok)
	require.Equal(t, buf.Len(), n)
	return buf.Bytes()
}

func TestUintBigEndian(t *testing.T) {
	require.Equal(t, []byte{0xab}, encode(t, Uint8, 0xab))
	require.Equal(t, []byte{0x12, 0x34}, encode(t, Uint16, 0x1234))
	require.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd}, encode(t, Uint32, 0xaabbccdd))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, encode(t, Uint64, 0x0102030405060708))
}

func TestIntTwosComplement(t *testing.T) {
	require.Equal(t, []byte{0xff}, encode(t, Int8, -1))
	require.Equal(t, []byte{0xff, 0xfe}, encode(t, Int16, -2))
	require.Equal(t, []byte{0x80, 0, 0, 0}, encode(t, Int32, -0x80000000))

	var v int16
	n, err := Unmarshal(Int16, &v, []byte{0xff, 0xfe})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, int16(-2), v)
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"uint8", func(t *testing.T) { roundTrip(t, Uint8, 0x7f) }},
		{"uint16", func(t *testing.T) { roundTrip(t, Uint16, 0xbeef) }},
		{"uint32", func(t *testing.T) { roundTrip(t, Uint32, 0xdeadbeef) }},
		{"uint64", func(t *testing.T) { roundTrip(t, Uint64, 0xfeedfacecafebeef) }},
		{"int32", func(t *testing.T) { roundTrip(t, Int32, -123456) }},
		{"bool true", func(t *testing.T) { roundTrip(t, Bool, true) }},
		{"bool false", func(t *testing.T) { roundTrip(t, Bool, false) }},
		{"enum", func(t *testing.T) { roundTrip(t, Enum[color](), colorGreen) }},
		{"enum16", func(t *testing.T) { roundTrip(t, Enum[mode](), mode(0x0102)) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, tc.run)
	}
}

func roundTrip[T any](t *testing.T, s ValueSerializer[T], v T) {
	data := encode(t, s, v)
	var out T
	n, ok := s.Deserialize(&out, NewCursor(data)).Get()
	require.True(t, ok)
	require.Equal(t, len(data), n)
	require.Equal(t, v, out)
}

func TestBool(t *testing.T) {
	require.Equal(t, []byte{1}, encode(t, Bool, true))
	require.Equal(t, []byte{0}, encode(t, Bool, false))

	var v bool
	require.False(t, Bool.Deserialize(&v, NewCursor([]byte{2})).HasValue())
	require.False(t, Bool.Deserialize(&v, NewCursor([]byte{0xff})).HasValue())
	require.False(t, Bool.Deserialize(&v, NewCursor(nil)).HasValue())
}

func TestShortBuffer(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	c := NewCursor(data[:3])
	var v uint32
	require.False(t, Uint32.Deserialize(&v, c).HasValue())
	require.Equal(t, uint32(0), v)
	require.Equal(t, 3, c.Offset())

	// partial output stays in place.
	out := make([]byte, 1)
	w := NewCursor(out)
	x := uint16(0x1234)
	require.False(t, Uint16.Serialize(&x, w).HasValue())
	require.Equal(t, []byte{0x12}, out)
}

func TestArray(t *testing.T) {
	arr := [3]uint16{1, 0x0203, 0xffff}
	view := arr[:]
	s := Array(Uint16)
	require.Equal(t, []byte{0, 1, 2, 3, 0xff, 0xff}, encode(t, s, view))

	var decoded [3]uint16
	dview := decoded[:]
	n, ok := s.Deserialize(&dview, NewCursor([]byte{0, 1, 2, 3, 0xff, 0xff})).Get()
	require.True(t, ok)
	require.Equal(t, 6, n)
	require.Equal(t, arr, decoded)

	require.False(t, s.Deserialize(&dview, NewCursor([]byte{0, 1, 2, 3, 0xff})).HasValue())

	var empty []uint16
	require.Equal(t, Some(0), s.Serialize(&empty, NewCursor(nil)))
}

func TestArrayOfBoolStopsOnInvalid(t *testing.T) {
	var flags [3]bool
	view := flags[:]
	c := NewCursor([]byte{1, 7, 0})
	require.False(t, Array(Bool).Deserialize(&view, c).HasValue())
	require.Equal(t, 2, c.Offset())
	require.True(t, flags[0])
}

type point struct {
	X, Y uint16
}

var pointSerializer = NewSerializer(
	NewField(func(p *point) *uint16 { return &p.X }, Uint16),
	NewField(func(p *point) *uint16 { return &p.Y }, Uint16),
)

func (p *point) SerializeTo(w io.ByteWriter) Optional[int] {
	return pointSerializer.Serialize(p, w)
}

func (p *point) DeserializeFrom(r io.ByteReader) Optional[int] {
	return pointSerializer.Deserialize(p, r)
}

func TestOf(t *testing.T) {
	require.Equal(t, Uint16, Of[uint16]())
	require.Equal(t, Bool, Of[bool]())

	require.Equal(t, []byte{2}, encode(t, Of[color](), colorGreen))
	require.Equal(t, []byte{0, 1, 0, 2}, encode(t, Of[point](), point{X: 1, Y: 2}))
	require.Equal(t, []byte{0, 1, 0, 2, 0, 3, 0, 4},
		encode(t, Of[[2]point](), [2]point{{1, 2}, {3, 4}}))
	require.Equal(t, []byte{1, 2, 0xff, 0xfe}, encode(t, Of[[2][2]int8](), [2][2]int8{{1, 2}, {-1, -2}}))

	roundTrip(t, Of[[4]color](), [4]color{colorRed, colorGreen, colorGreen, colorRed})
	roundTrip(t, Of[[2]point](), [2]point{{5, 6}, {7, 8}})

	require.Panics(t, func() { Of[string]() })
	require.Panics(t, func() { Of[struct{ A uint8 }]() })
	require.Panics(t, func() { Of[[2]float32]() })
}

func TestOfNamedBoolRejectsInvalid(t *testing.T) {
	type flag bool
	s := Of[flag]()
	var f flag
	require.False(t, s.Deserialize(&f, NewCursor([]byte{3})).HasValue())
	require.True(t, s.Deserialize(&f, NewCursor([]byte{1})).HasValue())
	require.Equal(t, flag(true), f)
}

func TestOfNamedSignedExtends(t *testing.T) {
	type offset int16
	var v offset
	n, err := Unmarshal(Of[offset](), &v, []byte{0xff, 0x9c})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, offset(-100), v)
}

func TestCustom(t *testing.T) {
	s := Custom[point]()
	roundTrip(t, s, point{X: 0x1234, Y: 0x5678})
}

func TestMarshal(t *testing.T) {
	p := point{X: 1, Y: 0x0203}
	data, err := Marshal(Of[point](), &p)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3}, data)

	buf := make([]byte, 3)
	_, err = MarshalTo(Of[point](), &p, buf)
	require.Equal(t, ErrEncode, err)

	var out point
	_, err = Unmarshal(Of[point](), &out, []byte{0, 1, 2})
	require.Equal(t, ErrDecode, err)
	n, err := Unmarshal(Of[point](), &out, []byte{0, 1, 2, 3, 9})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, p, out)
}
