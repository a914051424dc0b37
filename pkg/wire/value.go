package wire

import (
	"io"
	"unsafe"
)

// ValueSerializer reads and writes values of type T.
// Both methods return the number of bytes consumed, or an empty Optional
// when the cursor ends before the value is complete or the encoded data is
// invalid.
type ValueSerializer[T any] interface {
	Serialize(v *T, w io.ByteWriter) Optional[int]
	Deserialize(v *T, r io.ByteReader) Optional[int]
}

// Serializable is implemented by composite types that carry their own
// serializer, usually a field Serializer declared next to the type.
// The methods are expected on the pointer receiver.
type Serializable interface {
	SerializeTo(w io.ByteWriter) Optional[int]
	DeserializeFrom(r io.ByteReader) Optional[int]
}

// Unsigned lists the integer types encoded as big-endian unsigned values.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Signed lists the integer types encoded as big-endian two's complement.
type Signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// Predefined serializers.
var (
	Uint8  = Uint[uint8]()
	Uint16 = Uint[uint16]()
	Uint32 = Uint[uint32]()
	Uint64 = Uint[uint64]()
	Int8   = Int[int8]()
	Int16  = Int[int16]()
	Int32  = Int[int32]()
	Int64  = Int[int64]()

	Bool ValueSerializer[bool] = boolSerializer{}
)

func readUint(r io.ByteReader, width int) (uint64, bool) {
	var x uint64
	for i := 0; i < width; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, false
		}
		x = x<<8 | uint64(b)
	}
	return x, true
}

func writeUint(w io.ByteWriter, x uint64, width int) bool {
	for i := width - 1; i >= 0; i-- {
		if w.WriteByte(byte(x>>(uint(i)*8))) != nil {
			return false
		}
	}
	return true
}

func decodeBool(b byte) (bool, bool) {
	switch b {
	case 0:
		return false, true
	case 1:
		return true, true
	}
	return false, false
}

func encodeBool(v bool) byte {
	if v {
		return 1
	}
	return 0
}

type uintSerializer[T Unsigned] struct {
	width int
}

// Uint returns the serializer of an unsigned integer type, including named
// types (enums) whose underlying type is unsigned.
func Uint[T Unsigned]() ValueSerializer[T] {
	var zero T
	return uintSerializer[T]{width: int(unsafe.Sizeof(zero))}
}

// Enum returns the serializer of an enum type, which is the serializer of
// its underlying integer.
func Enum[E Unsigned]() ValueSerializer[E] {
	return Uint[E]()
}

func (s uintSerializer[T]) Serialize(v *T, w io.ByteWriter) Optional[int] {
	if !writeUint(w, uint64(*v), s.width) {
		return None[int]()
	}
	return Some(s.width)
}

func (s uintSerializer[T]) Deserialize(v *T, r io.ByteReader) Optional[int] {
	x, ok := readUint(r, s.width)
	if !ok {
		return None[int]()
	}
	*v = T(x)
	return Some(s.width)
}

type intSerializer[T Signed] struct {
	width int
}

// Int returns the serializer of a signed integer type.
func Int[T Signed]() ValueSerializer[T] {
	var zero T
	return intSerializer[T]{width: int(unsafe.Sizeof(zero))}
}

func (s intSerializer[T]) Serialize(v *T, w io.ByteWriter) Optional[int] {
	if !writeUint(w, uint64(*v), s.width) {
		return None[int]()
	}
	return Some(s.width)
}

func (s intSerializer[T]) Deserialize(v *T, r io.ByteReader) Optional[int] {
	x, ok := readUint(r, s.width)
	if !ok {
		return None[int]()
	}
	// integer conversion truncates to the width of T, restoring the sign.
	*v = T(x)
	return Some(s.width)
}

type boolSerializer struct{}

func (boolSerializer) Serialize(v *bool, w io.ByteWriter) Optional[int] {
	if w.WriteByte(encodeBool(*v)) != nil {
		return None[int]()
	}
	return Some(1)
}

func (boolSerializer) Deserialize(v *bool, r io.ByteReader) Optional[int] {
	b, err := r.ReadByte()
	if err != nil {
		return None[int]()
	}
	x, ok := decodeBool(b)
	if !ok {
		return None[int]()
	}
	*v = x
	return Some(1)
}

type arraySerializer[T any] struct {
	elem ValueSerializer[T]
}

// Array returns a serializer for a fixed-length sequence of T.
// Exactly len(*v) elements are encoded, without a length prefix: the slice
// is expected to be a view of a [N]T so that both ends agree on N.
func Array[T any](elem ValueSerializer[T]) ValueSerializer[[]T] {
	return arraySerializer[T]{elem: elem}
}

func (s arraySerializer[T]) Serialize(v *[]T, w io.ByteWriter) Optional[int] {
	total := 0
	for i := range *v {
		n, ok := s.elem.Serialize(&(*v)[i], w).Get()
		if !ok {
			return None[int]()
		}
		total += n
	}
	return Some(total)
}

func (s arraySerializer[T]) Deserialize(v *[]T, r io.ByteReader) Optional[int] {
	total := 0
	for i := range *v {
		n, ok := s.elem.Deserialize(&(*v)[i], r).Get()
		if !ok {
			return None[int]()
		}
		total += n
	}
	return Some(total)
}

// SerializablePtr constrains P to be a pointer to T implementing Serializable.
type SerializablePtr[T any] interface {
	*T
	Serializable
}

type customSerializer[T any, P SerializablePtr[T]] struct{}

// Custom returns the serializer of a type implementing Serializable.
func Custom[T any, P SerializablePtr[T]]() ValueSerializer[T] {
	return customSerializer[T, P]{}
}

func (customSerializer[T, P]) Serialize(v *T, w io.ByteWriter) Optional[int] {
	return P(v).SerializeTo(w)
}

func (customSerializer[T, P]) Deserialize(v *T, r io.ByteReader) Optional[int] {
	return P(v).DeserializeFrom(r)
}
