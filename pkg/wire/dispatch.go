package wire

import (
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Of returns the serializer for T, picked by the type of T:
//
//   - the predefined serializer for bool and the fixed-width integers;
//   - the type's own serializer if *T implements Serializable;
//   - a reflection based serializer for named bool/integer types (enums)
//     and arrays [N]E of any supported E.
//
// Of panics if T is not serializable.
func Of[T any]() ValueSerializer[T] {
	var zero T
	var s any
	switch any(zero).(type) {
	case bool:
		s = Bool
	case uint8:
		s = Uint8
	case uint16:
		s = Uint16
	case uint32:
		s = Uint32
	case uint64:
		s = Uint64
	case int8:
		s = Int8
	case int16:
		s = Int16
	case int32:
		s = Int32
	case int64:
		s = Int64
	}
	if s != nil {
		return s.(ValueSerializer[T])
	}
	if _, ok := any(&zero).(Serializable); ok {
		return serializableOf[T]{}
	}
	return reflected[T]{s: mustDynamic(reflect.TypeOf(&zero).Elem())}
}

type serializableOf[T any] struct{}

func (serializableOf[T]) Serialize(v *T, w io.ByteWriter) Optional[int] {
	return any(v).(Serializable).SerializeTo(w)
}

func (serializableOf[T]) Deserialize(v *T, r io.ByteReader) Optional[int] {
	return any(v).(Serializable).DeserializeFrom(r)
}

type reflected[T any] struct {
	s dynamic
}

func (s reflected[T]) Serialize(v *T, w io.ByteWriter) Optional[int] {
	return s.s.serialize(reflect.ValueOf(v).Elem(), w)
}

func (s reflected[T]) Deserialize(v *T, r io.ByteReader) Optional[int] {
	return s.s.deserialize(reflect.ValueOf(v).Elem(), r)
}

// dynamic serializes addressable reflect values of one type.
type dynamic interface {
	serialize(v reflect.Value, w io.ByteWriter) Optional[int]
	deserialize(v reflect.Value, r io.ByteReader) Optional[int]
}

var (
	dynamicCache     sync.Map // reflect.Type -> dynamic
	serializableType = reflect.TypeOf((*Serializable)(nil)).Elem()
)

func mustDynamic(t reflect.Type) dynamic {
	s, err := dynamicFor(t)
	if err != nil {
		panic(err)
	}
	return s
}

func dynamicFor(t reflect.Type) (dynamic, error) {
	if s, ok := dynamicCache.Load(t); ok {
		return s.(dynamic), nil
	}
	var s dynamic
	switch {
	case reflect.PointerTo(t).Implements(serializableType):
		s = dynSerializable{}
	case t.Kind() == reflect.Bool:
		s = dynBool{}
	case t.Kind() >= reflect.Uint8 && t.Kind() <= reflect.Uint64:
		s = dynUint{width: int(t.Size())}
	case t.Kind() >= reflect.Int8 && t.Kind() <= reflect.Int64:
		s = dynInt{width: int(t.Size())}
	case t.Kind() == reflect.Array:
		elem, err := dynamicFor(t.Elem())
		if err != nil {
			return nil, err
		}
		s = dynArray{elem: elem}
	default:
		return nil, fmt.Errorf("wire: no serializer for type %s", t)
	}
	actual, _ := dynamicCache.LoadOrStore(t, s)
	return actual.(dynamic), nil
}

type dynSerializable struct{}

func (dynSerializable) serialize(v reflect.Value, w io.ByteWriter) Optional[int] {
	return v.Addr().Interface().(Serializable).SerializeTo(w)
}

func (dynSerializable) deserialize(v reflect.Value, r io.ByteReader) Optional[int] {
	return v.Addr().Interface().(Serializable).DeserializeFrom(r)
}

type dynBool struct{}

func (dynBool) serialize(v reflect.Value, w io.ByteWriter) Optional[int] {
	if w.WriteByte(encodeBool(v.Bool())) != nil {
		return None[int]()
	}
	return Some(1)
}

func (dynBool) deserialize(v reflect.Value, r io.ByteReader) Optional[int] {
	b, err := r.ReadByte()
	if err != nil {
		return None[int]()
	}
	x, ok := decodeBool(b)
	if !ok {
		return None[int]()
	}
	v.SetBool(x)
	return Some(1)
}

type dynUint struct {
	width int
}

func (s dynUint) serialize(v reflect.Value, w io.ByteWriter) Optional[int] {
	if !writeUint(w, v.Uint(), s.width) {
		return None[int]()
	}
	return Some(s.width)
}

func (s dynUint) deserialize(v reflect.Value, r io.ByteReader) Optional[int] {
	x, ok := readUint(r, s.width)
	if !ok {
		return None[int]()
	}
	v.SetUint(x)
	return Some(s.width)
}

type dynInt struct {
	width int
}

func (s dynInt) serialize(v reflect.Value, w io.ByteWriter) Optional[int] {
	if !writeUint(w, uint64(v.Int()), s.width) {
		return None[int]()
	}
	return Some(s.width)
}

func (s dynInt) deserialize(v reflect.Value, r io.ByteReader) Optional[int] {
	x, ok := readUint(r, s.width)
	if !ok {
		return None[int]()
	}
	shift := uint(64 - s.width*8)
	v.SetInt(int64(x<<shift) >> shift)
	return Some(s.width)
}

type dynArray struct {
	elem dynamic
}

func (s dynArray) serialize(v reflect.Value, w io.ByteWriter) Optional[int] {
	total := 0
	for i := 0; i < v.Len(); i++ {
		n, ok := s.elem.serialize(v.Index(i), w).Get()
		if !ok {
			return None[int]()
		}
		total += n
	}
	return Some(total)
}

func (s dynArray) deserialize(v reflect.Value, r io.ByteReader) Optional[int] {
	total := 0
	for i := 0; i < v.Len(); i++ {
		n, ok := s.elem.deserialize(v.Index(i), r).Get()
		if !ok {
			return None[int]()
		}
		total += n
	}
	return Some(total)
}
