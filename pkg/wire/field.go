package wire

import "io"

// Field binds one member of a container C to the serializer of its value.
type Field[C any] interface {
	ValueSerializer[C]
}

type boundField[C, V any] struct {
	get func(*C) *V
	s   ValueSerializer[V]
}

// NewField creates a Field reaching the member through get and encoding it
// with s.
func NewField[C, V any](get func(*C) *V, s ValueSerializer[V]) Field[C] {
	return boundField[C, V]{get: get, s: s}
}

// FieldOf creates a Field using the serializer Of[V] picks.
func FieldOf[C, V any](get func(*C) *V) Field[C] {
	return NewField(get, Of[V]())
}

func (f boundField[C, V]) Serialize(c *C, w io.ByteWriter) Optional[int] {
	return f.s.Serialize(f.get(c), w)
}

func (f boundField[C, V]) Deserialize(c *C, r io.ByteReader) Optional[int] {
	return f.s.Deserialize(f.get(c), r)
}

type arrayField[C, T any] struct {
	get  func(*C) []T
	elem arraySerializer[T]
}

// ArrayField binds a fixed-size array member. get returns a slice view of
// the array, e.g. func(c *C) []uint8 { return c.Bytes[:] }.
func ArrayField[C, T any](get func(*C) []T, elem ValueSerializer[T]) Field[C] {
	return arrayField[C, T]{get: get, elem: arraySerializer[T]{elem: elem}}
}

func (f arrayField[C, T]) Serialize(c *C, w io.ByteWriter) Optional[int] {
	view := f.get(c)
	return f.elem.Serialize(&view, w)
}

func (f arrayField[C, T]) Deserialize(c *C, r io.ByteReader) Optional[int] {
	view := f.get(c)
	return f.elem.Deserialize(&view, r)
}

// Serializer encodes a container as the concatenation of its fields, in
// declaration order. It stops at the first failing field.
// A Serializer with no fields always succeeds, consuming nothing.
type Serializer[C any] struct {
	fields []Field[C]
}

// NewSerializer creates a Serializer over fields.
func NewSerializer[C any](fields ...Field[C]) *Serializer[C] {
	return &Serializer[C]{fields: fields}
}

// Len returns the number of fields.
func (s *Serializer[C]) Len() int {
	return len(s.fields)
}

// Serialize implements ValueSerializer.
func (s *Serializer[C]) Serialize(c *C, w io.ByteWriter) Optional[int] {
	total := Some(0)
	for _, f := range s.fields {
		if total = add(total, f.Serialize(c, w)); !total.HasValue() {
			break
		}
	}
	return total
}

// Deserialize implements ValueSerializer.
func (s *Serializer[C]) Deserialize(c *C, r io.ByteReader) Optional[int] {
	total := Some(0)
	for _, f := range s.fields {
		if total = add(total, f.Deserialize(c, r)); !total.HasValue() {
			break
		}
	}
	return total
}
