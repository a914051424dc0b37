package msgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/robotalks/avr.go/pkg/l0/comm"
	"github.com/robotalks/avr.go/pkg/wire"
)

// CodeMessage is the L0 packet code carrying messages of this package.
const CodeMessage byte = 0x01

// CodeEventMessage is the L0 packet code of events.
const CodeEventMessage = comm.CodeEvent | CodeMessage

var (
	// ErrUnexpectedReply indicates the reply doesn't match the request.
	ErrUnexpectedReply = errors.New("unexpected reply")
	// ErrTrailingData indicates extra bytes after a decoded message.
	ErrTrailingData = errors.New("trailing data after message")
)

// ErrUnknownMessage is returned by NewByName.
type ErrUnknownMessage struct {
	Name string
}

// Error implements error.
func (e *ErrUnknownMessage) Error() string {
	return fmt.Sprintf("unknown message %q", e.Name)
}

// NewRequest wraps a request message.
func NewRequest[T any](msg T) *wire.Variant {
	return wire.NewVariant(Requests, msg)
}

// NewReply wraps a reply message.
func NewReply[T any](msg T) *wire.Variant {
	return wire.NewVariant(Replies, msg)
}

// NewEvent wraps an event message.
func NewEvent[T any](msg T) *wire.Variant {
	return wire.NewVariant(Events, msg)
}

// Encode serializes a message of vt.
func Encode(vt *wire.VariantType, msg *wire.Variant) ([]byte, error) {
	data, err := wire.Marshal[wire.Variant](vt, msg)
	if err != nil {
		return nil, fmt.Errorf("encode %v: %w", msg, err)
	}
	if len(data) > comm.MaxDataLen-1 {
		return nil, fmt.Errorf("encode %v: %w", msg, comm.ErrDataTooLong)
	}
	return data, nil
}

// Decode deserializes a message of vt which must span all of data.
func Decode(vt *wire.VariantType, data []byte) (*wire.Variant, error) {
	msg := vt.New()
	n, err := wire.Unmarshal[wire.Variant](vt, msg, data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(data)-n)
	}
	return msg, nil
}

// EncodeRequest serializes a request.
func EncodeRequest(msg *wire.Variant) ([]byte, error) { return Encode(Requests, msg) }

// DecodeRequest deserializes a request.
func DecodeRequest(data []byte) (*wire.Variant, error) { return Decode(Requests, data) }

// EncodeReply serializes a reply.
func EncodeReply(msg *wire.Variant) ([]byte, error) { return Encode(Replies, msg) }

// DecodeReply deserializes a reply.
func DecodeReply(data []byte) (*wire.Variant, error) { return Decode(Replies, data) }

// EncodeEvent serializes an event.
func EncodeEvent(msg *wire.Variant) ([]byte, error) { return Encode(Events, msg) }

// DecodeEvent deserializes an event.
func DecodeEvent(data []byte) (*wire.Variant, error) { return Decode(Events, data) }

// EventFromPacket decodes an event packet received by comm.Client.
func EventFromPacket(pkt *comm.Packet) (*wire.Variant, error) {
	if pkt.Code != CodeEventMessage {
		return nil, fmt.Errorf("unknown event code 0x%02x", pkt.Code)
	}
	return DecodeEvent(pkt.Data)
}

// Executor sends a command packet and waits for the result.
// It is implemented by comm.Client.
type Executor interface {
	Exec(context.Context, *comm.Packet) comm.Result
}

// Call sends a request and decodes the reply.
func Call(ctx context.Context, x Executor, req *wire.Variant) (*wire.Variant, error) {
	data, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	r := x.Exec(ctx, &comm.Packet{Code: CodeMessage, Data: data})
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Code != CodeMessage {
		return nil, fmt.Errorf("%w: code 0x%02x", ErrUnexpectedReply, r.Code)
	}
	return DecodeReply(r.Data)
}

// CallFor sends a request and expects a reply of type R.
func CallFor[R any](ctx context.Context, x Executor, req *wire.Variant) (*R, error) {
	reply, err := Call(ctx, x, req)
	if err != nil {
		return nil, err
	}
	if !wire.Is[R](reply) {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedReply, reply)
	}
	return wire.Get[R](reply), nil
}

// Name returns the type name of the active message.
func Name(msg *wire.Variant) string {
	if msg.IsInvalid() {
		return ""
	}
	return msg.Type().Alternative(msg.Tag()).Type().Name()
}

// Names lists the message names of vt in tag order.
func Names(vt *wire.VariantType) []string {
	names := make([]string, vt.Len())
	for n := range names {
		names[n] = vt.Alternative(wire.Tag(n + 1)).Type().Name()
	}
	return names
}

// NewByName creates a zero message of vt by its case-insensitive name.
func NewByName(vt *wire.VariantType, name string) (*wire.Variant, error) {
	for n, alt := range Names(vt) {
		if strings.EqualFold(alt, name) {
			msg := vt.New()
			msg.EmplaceTag(wire.Tag(n + 1))
			return msg, nil
		}
	}
	return nil, &ErrUnknownMessage{Name: name}
}

// ParseByName creates a message by name and fills it from JSON.
// An empty body leaves the zero value.
func ParseByName(vt *wire.VariantType, name, body string) (*wire.Variant, error) {
	msg, err := NewByName(vt, name)
	if err != nil {
		return nil, err
	}
	if body = strings.TrimSpace(body); body != "" {
		if err = json.Unmarshal([]byte(body), msg.Value()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return msg, nil
}

// Description is the JSON rendering of a message.
type Description struct {
	Type  string   `json:"type"`
	Tag   wire.Tag `json:"tag"`
	Value any      `json:"value"`
}

// Describe renders msg for JSON encoding.
func Describe(msg *wire.Variant) Description {
	return Description{Type: Name(msg), Tag: msg.Tag(), Value: msg.Value()}
}

// MarshalJSON renders msg as its Description.
func MarshalJSON(msg *wire.Variant) ([]byte, error) {
	return json.Marshal(Describe(msg))
}
