package wire

import (
	"bytes"
	"errors"
)

var (
	// ErrEncode indicates a value could not be serialized, either because
	// the buffer is too small or the value is not encodable (e.g. an
	// invalid Variant).
	ErrEncode = errors.New("wire: encode failed")
	// ErrDecode indicates the data ended early or holds an invalid encoding.
	ErrDecode = errors.New("wire: decode failed")
)

// MarshalTo serializes v into buf and returns the number of bytes written.
func MarshalTo[T any](s ValueSerializer[T], v *T, buf []byte) (int, error) {
	n, ok := s.Serialize(v, NewCursor(buf)).Get()
	if !ok {
		return 0, ErrEncode
	}
	return n, nil
}

// Marshal serializes v into a new byte slice.
func Marshal[T any](s ValueSerializer[T], v *T) ([]byte, error) {
	var buf bytes.Buffer
	if !s.Serialize(v, &buf).HasValue() {
		return nil, ErrEncode
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes v from data and returns the number of bytes
// consumed. Trailing bytes are left alone.
func Unmarshal[T any](s ValueSerializer[T], v *T, data []byte) (int, error) {
	n, ok := s.Deserialize(v, NewCursor(data)).Get()
	if !ok {
		return 0, ErrDecode
	}
	return n, nil
}
