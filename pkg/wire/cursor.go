package wire

import "io"

// Cursor is a forward cursor over a caller-owned byte slice.
// It implements io.ByteReader and io.ByteWriter and never reads or writes
// beyond the end of the slice.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor creates a Cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// ReadByte implements io.ByteReader.
func (c *Cursor) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// WriteByte implements io.ByteWriter.
func (c *Cursor) WriteByte(b byte) error {
	if c.off >= len(c.buf) {
		return io.ErrShortWrite
	}
	c.buf[c.off] = b
	c.off++
	return nil
}

// Offset returns the number of bytes consumed or produced so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of bytes left before the end.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// Bytes returns the part of the buffer already consumed or produced.
func (c *Cursor) Bytes() []byte {
	return c.buf[:c.off]
}

// Reset moves the cursor back to the start.
func (c *Cursor) Reset() {
	c.off = 0
}
