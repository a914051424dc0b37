// Package wire implements the binary serialization format shared with the
// AVR firmware.
//
// The format is versionless and byte-exact:
//
//	unsigned integers  big-endian, fixed width (1/2/4/8 bytes)
//	bool               one byte, 0x00 or 0x01 only
//	[N]T               N consecutive element encodings, no length prefix
//	enums              encoded as the underlying integer
//	composites         concatenation of the declared fields, in order
//	Variant            [tag 1..N][encoding of the active alternative]
//
// Every (de)serialization call returns an Optional[int]: empty on failure,
// otherwise the number of bytes consumed. Serializers read and write through
// io.ByteReader/io.ByteWriter, so a Cursor over a caller-owned slice, a
// bufio.Reader or a ring buffer can all be used directly.
//
// A failure in the middle of a value does not roll back what has already
// been written or consumed.
package wire
