package comm

import (
	"io"
	"time"

	"github.com/robotalks/avr.go/pkg/wire"
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Code bits.
const (
	CodeEvent byte = 0x80
	CodeError byte = 0x40
	CodeMask  byte = 0x3f
)

// MaxDataLen is the largest payload of a packet.
const MaxDataLen = 0x7f

// HeaderSize is the encoded size of a Header.
const HeaderSize = 3

// Header is the fixed part of a packet on the wire.
type Header struct {
	Seq  PacketSeq
	Code byte
	Len  uint8
}

// HeaderSerializer encodes a Header.
var HeaderSerializer = wire.NewSerializer(
	wire.NewField(func(h *Header) *PacketSeq { return &h.Seq }, wire.Enum[PacketSeq]()),
	wire.NewField(func(h *Header) *byte { return &h.Code }, wire.Uint8),
	wire.NewField(func(h *Header) *uint8 { return &h.Len }, wire.Uint8),
)

// Packet contains the information of a parsed packet.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsEvent tells if the packet is an event from the firmware.
func (p *Packet) IsEvent() bool {
	return p.Code&CodeEvent != 0
}

// Header returns the header of the packet.
func (p *Packet) Header() Header {
	return Header{Seq: p.Seq, Code: p.Code, Len: uint8(len(p.Data))}
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() ([]byte, error) {
	if len(p.Data) > MaxDataLen {
		return nil, ErrDataTooLong
	}
	b := make([]byte, HeaderSize+len(p.Data))
	h := p.Header()
	if _, err := wire.MarshalTo[Header](HeaderSerializer, &h, b); err != nil {
		return nil, err
	}
	copy(b[HeaderSize:], p.Data)
	return b, nil
}

// WriteTo writes encoded bytes in a single Write.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	b, err := p.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// ParsePacket decodes one complete packet, without sync bytes.
func ParsePacket(b []byte) (*Packet, error) {
	var h Header
	if _, err := wire.Unmarshal[Header](HeaderSerializer, &h, b); err != nil {
		return nil, err
	}
	if h.Len > MaxDataLen {
		return nil, ErrDataTooLong
	}
	if len(b) != HeaderSize+int(h.Len) {
		return nil, wire.ErrDecode
	}
	return &Packet{Seq: h.Seq, Code: h.Code, Data: append([]byte{}, b[HeaderSize:]...)}, nil
}
