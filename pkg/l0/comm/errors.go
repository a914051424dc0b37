package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the FIFO is not synchronized with the peer.
	ErrNotReady = errors.New("not ready")
	// ErrNoReply indicates no reply received from peer.
	// This happens when a reply is received for a latter command, and all
	// previous commands fail with this error.
	ErrNoReply = errors.New("no reply")
	// ErrDataTooLong indicates the packet data exceeds MaxDataLen.
	ErrDataTooLong = errors.New("packet data too long")
)

// CommandError is the failure reported by a reply with CodeError set.
type CommandError struct {
	Code   byte
	Reason byte
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command 0x%02x error %d", e.Code, e.Reason)
}
