package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avr.go/pkg/ringbuf"
)

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// StateNotifier is called when packet stream state changed.
type StateNotifier interface {
	StateChanged(context.Context, SyncState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, SyncState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state SyncState) {
	f(ctx, state)
}

// DefaultRxBufferSize is the default size of the receive ring buffer.
const DefaultRxBufferSize = 256

// FIFO send/recv packets.
type FIFO struct {
	ReadWriter   io.ReadWriter
	Handler      PacketHandler
	Notifier     StateNotifier
	Timeout      time.Duration
	ReadTimeout  bool // set to true if ReadWriter already supports timeout with Read
	RxBufferSize int

	seq   PacketSeq
	state SyncState
	lock  sync.RWMutex

	rx        *ringbuf.Buffer
	syncTimer <-chan time.Time
	parser    Parser
}

// NewFIFO creates a FIFO.
func NewFIFO(rw io.ReadWriter) *FIFO {
	return &FIFO{
		ReadWriter:   rw,
		Timeout:      100 * time.Millisecond,
		RxBufferSize: DefaultRxBufferSize,
		seq:          NewPacketSeq(),
	}
}

// State gets the state.
func (f *FIFO) State() SyncState {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.state
}

// Send sends a packet and assigns its sequence number.
func (f *FIFO) Send(pkt *Packet) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.state.IsReady() {
		return ErrNotReady
	}
	pkt.Seq = f.seq
	if _, err := pkt.WriteTo(f.ReadWriter); err != nil {
		return err
	}
	f.seq = f.seq.Next()
	return nil
}

// Run processes the FIFO in the background.
func (f *FIFO) Run(ctx context.Context) error {
	size := f.RxBufferSize
	if size < 2 {
		size = DefaultRxBufferSize
	}
	f.rx = ringbuf.New(size)

	if f.ReadTimeout {
		err := f.applyParseResult(ctx, f.parser.Reset())
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.syncTimer:
				if err = f.applyParseResult(ctx, f.parser.Timeout()); err != nil {
					return err
				}
			default:
				n, err := f.ReadWriter.Read(buf)
				if err != nil {
					if !os.IsTimeout(err) {
						return err
					}
					err = f.applyParseResult(ctx, f.parser.Timeout())
				} else if n == 0 {
					err = f.applyParseResult(ctx, f.parser.Timeout())
				} else {
					f.receive(buf[:n])
					err = f.drain(ctx)
				}
				if err != nil {
					return err
				}
			}
		}
	}

	// the read loop starts first, the peer may be writing its sync request
	// on an unbuffered stream.
	dataCh, spaceCh := make(chan struct{}, 1), make(chan struct{}, 1)
	errCh := make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, dataCh, spaceCh, errCh)
	err := f.applyParseResult(ctx, f.parser.Reset())
	if err != nil {
		return err
	}
	for {
		select {
		case <-dataCh:
			err = f.drain(ctx)
			notify(spaceCh)
			if err != nil {
				return err
			}
		case err := <-errCh:
			// bytes received before the error are still parsed.
			if derr := f.drain(ctx); derr != nil {
				return derr
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-f.syncTimer:
			if err = f.applyParseResult(ctx, f.parser.Timeout()); err != nil {
				return err
			}
		}
	}
}

// readLoop never reads more than the free space of rx. When rx is full it
// waits on spaceCh until the main loop drains it, so no byte is dropped
// while a PacketHandler blocks.
func (f *FIFO) readLoop(ctx context.Context, dataCh, spaceCh chan struct{}, errCh chan error) {
	buf := make([]byte, f.rx.Capacity())
	for {
		free := f.rx.Free()
		if free == 0 {
			select {
			case <-spaceCh:
				continue
			case <-ctx.Done():
				return
			}
		}
		n, err := f.ReadWriter.Read(buf[:free])
		if n > 0 {
			f.receive(buf[:n])
			notify(dataCh)
		}
		if err != nil {
			errCh <- err
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// receive queues bytes for the parser. Callers only pass what fits.
func (f *FIFO) receive(p []byte) {
	if n, err := f.rx.Write(p); err != nil {
		glog.Errorf("L0 rx overrun, dropped %d bytes", len(p)-n)
	}
}

func (f *FIFO) drain(ctx context.Context) error {
	for {
		b, err := f.rx.ReadByte()
		if err != nil {
			return nil
		}
		if err = f.applyParseResult(ctx, f.parser.Parse(b)); err != nil {
			return err
		}
	}
}

func (f *FIFO) applyParseResult(ctx context.Context, pr ParseResult) (err error) {
	var notifier StateNotifier
	f.lock.Lock()
	if f.state != pr.State {
		f.state = pr.State
		notifier = f.Notifier
	}
	if pr.Sync != 0 {
		_, err = f.ReadWriter.Write([]byte{pr.Sync, byte(f.seq)})
	}
	f.lock.Unlock()
	if err != nil {
		return
	}

	if f.ReadTimeout {
		if pr.Sync == syncREQ {
			f.syncTimer = time.After(f.Timeout)
		} else {
			f.syncTimer = nil
		}
	} else {
		switch pr.WhatAboutTimer() {
		case TimerRestart:
			f.syncTimer = time.After(f.Timeout)
		case TimerStop:
			f.syncTimer = nil
		}
	}

	if pr.Sync == syncREQ {
		glog.V(2).Info("L0 resync")
	}
	if notifier != nil {
		notifier.StateChanged(ctx, pr.State)
	}
	if pr.Packet != nil {
		glog.V(4).Infof("L0 recv seq=%d code=0x%02x len=%d", pr.Packet.Seq, pr.Packet.Code, len(pr.Packet.Data))
		if h := f.Handler; h != nil {
			h.HandlePacket(ctx, pr.Packet)
		}
	}
	return
}
