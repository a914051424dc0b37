package mqtt

import (
	"context"
	"io"
	"sync"
)

// ReadWriter implements link.PacketReadWriter on a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	sub       *Subscription
	ownQueue  bool
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 1),
		done:     make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice sets the topics of the bridge serving device id: requests
// arrive on id/cmd and replies go to id/reply.
func (p *ReadWriter) ForDevice(id string) *ReadWriter {
	return p.WithTopics(DeviceTopic(id, CmdTopic), DeviceTopic(id, ReplyTopic))
}

// ForClient sets the topics of a remote client of device id.
func (p *ReadWriter) ForClient(id string) *ReadWriter {
	return p.WithTopics(DeviceTopic(id, ReplyTopic), DeviceTopic(id, CmdTopic))
}

// Open subscribes SubTopic and waits for the broker.
func (p *ReadWriter) Open() error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	sub.Token.Wait()
	if err := sub.Token.Error(); err != nil {
		sub.Close()
		return err
	}
	p.sub = sub
	return nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.PubWith(p.PubTopic, pkt, QoS(CmdTopic), false)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	if p.sub == nil {
		if err := p.Open(); err != nil {
			return err
		}
	}
	defer p.Close()
	<-ctx.Done()
	return ctx.Err()
}

// Close unsubscribes and unblocks ReadPacket.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.done)
		if p.sub != nil {
			err = p.sub.Close()
		}
		if p.ownQueue {
			p.Queue.Close()
		}
	})
	return
}

func (p *ReadWriter) handleMsg(m *Message) {
	select {
	case p.packetCh <- m.Payload:
	case <-p.done:
	}
}
