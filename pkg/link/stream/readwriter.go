// Package stream frames packets over a byte stream with a length prefix.
package stream

import (
	"bufio"
	"errors"
	"io"
	"sync"

	"github.com/robotalks/avr.go/pkg/wire"
)

// MaxPacketSize is the largest packet a 2-byte prefix can describe.
const MaxPacketSize = 0xffff

// ErrPacketTooLarge is returned when writing a packet over MaxPacketSize.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements link.PacketReadWriter.
// Each packet is prefixed by 2 bytes (big-endian) indicating the length.
type ReadWriter struct {
	Stream io.ReadWriter

	reader    *bufio.Reader
	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{Stream: s, reader: bufio.NewReader(s)}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(p.reader, prefix[:]); err != nil {
		return nil, err
	}
	var size uint16
	if _, err := wire.Unmarshal(wire.Uint16, &size, prefix[:]); err != nil {
		return nil, err
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.reader, pkt); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketSize {
		return ErrPacketTooLarge
	}
	size := uint16(len(pkt))
	buf := make([]byte, 2, 2+len(pkt))
	if _, err := wire.MarshalTo(wire.Uint16, &size, buf); err != nil {
		return err
	}
	buf = append(buf, pkt...)
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	_, err := p.Stream.Write(buf)
	return err
}

// Close closes the stream if it's an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.Stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
