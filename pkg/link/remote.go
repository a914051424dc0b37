package link

import (
	"context"
	"errors"
	"io"
	"sync"

	fx "github.com/robotalks/avr.go/pkg/framework"
	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/wire"
)

// ErrRemoteFailed is returned when the bridge answers with an empty packet.
var ErrRemoteFailed = errors.New("remote request failed")

// Remote calls the device through a bridge over a packet link. Each
// request packet holds an encoded request, and the bridge answers with
// the encoded reply or an empty packet on failure. Calls are serialized.
type Remote struct {
	ReadWriter PacketReadWriter

	lock sync.Mutex
}

// NewRemote creates a Remote.
func NewRemote(rw PacketReadWriter) *Remote {
	return &Remote{ReadWriter: rw}
}

// Call sends req and waits for the reply. When ctx is canceled before the
// reply arrives the link is closed, as the pending reply would be matched
// to the next request otherwise.
func (r *Remote) Call(ctx context.Context, req *wire.Variant) (*wire.Variant, error) {
	data, err := msgs.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if err = r.ReadWriter.WritePacket(data); err != nil {
		return nil, err
	}
	var reply []byte
	err = fx.RunWithContextCancel(ctx, func() { r.Close() }, func() (err error) {
		reply, err = r.ReadWriter.ReadPacket()
		return
	})
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, ErrRemoteFailed
	}
	return msgs.DecodeReply(reply)
}

// Close closes the underlying link if it's an io.Closer.
func (r *Remote) Close() error {
	if closer, ok := r.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
