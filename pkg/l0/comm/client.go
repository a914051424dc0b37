package comm

import (
	"context"
	"sync"
)

// Result is the result of a command using Do.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// DefaultEventQueueSize is the capacity of the event chan.
const DefaultEventQueueSize = 16

// Client provides client side operations over FIFO.
type Client struct {
	fifo     *FIFO
	eventCh  chan *Packet
	stateCh  chan SyncState
	cmdsHead *Command
	cmdsTail *Command
	cmdsLock sync.Mutex
}

// Command represents a pending command waiting for reply.
type Command struct {
	requestSeq PacketSeq
	resultCh   chan Result
	next       *Command
}

// RequestSeq returns the request packet seq.
func (c *Command) RequestSeq() PacketSeq {
	return c.requestSeq
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// NewClient creates client and wraps the fifo.
// Both StateChan and EventChan must be drained, otherwise the FIFO blocks.
func NewClient(fifo *FIFO) *Client {
	c := &Client{
		fifo:    fifo,
		eventCh: make(chan *Packet, DefaultEventQueueSize),
		stateCh: make(chan SyncState, 1),
	}
	c.fifo.Handler = c
	c.fifo.Notifier = StateChangedFunc(func(ctx context.Context, state SyncState) {
		select {
		case c.stateCh <- state:
		case <-ctx.Done():
		}
	})
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// StateChan retrieves the state reporting chan.
func (c *Client) StateChan() <-chan SyncState {
	return c.stateCh
}

// EventChan retrieves the event reporting chan.
func (c *Client) EventChan() <-chan *Packet {
	return c.eventCh
}

// DoWith sends a command and expects a result in the provided chan.
func (c *Client) DoWith(pkt *Packet, ch chan Result) *Command {
	cmd := &Command{resultCh: ch}

	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	err := c.fifo.Send(pkt)
	cmd.requestSeq = pkt.Seq
	if err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	return cmd
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(pkt *Packet) *Command {
	return c.DoWith(pkt, make(chan Result, 1))
}

// Exec sends a command and waits for its result. A command abandoned by
// ctx still gets its reply consumed when it arrives.
func (c *Client) Exec(ctx context.Context, pkt *Packet) Result {
	cmd := c.Do(pkt)
	select {
	case r := <-cmd.ResultChan():
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(ctx context.Context, pkt *Packet) {
	if pkt.IsEvent() {
		select {
		case c.eventCh <- pkt:
		case <-ctx.Done():
		}
		return
	}
	if len(pkt.Data) == 0 {
		// invalid response packet.
		return
	}
	seq := PacketSeq(pkt.Data[0])
	if !seq.IsValid() {
		// invalid sequence.
		return
	}
	c.cmdsLock.Lock()
	var prev *Command
	curr := c.cmdsHead
	for ; curr != nil; prev, curr = curr, curr.next {
		if curr.requestSeq == seq {
			break
		}
	}
	// commands sent before curr are dropped from the queue.
	var skipped *Command
	if curr != nil {
		if prev != nil {
			skipped = c.cmdsHead
			prev.next = nil
		}
		if c.cmdsHead = curr.next; c.cmdsHead == nil {
			c.cmdsTail = nil
		}
		curr.next = nil
	}
	c.cmdsLock.Unlock()
	if curr == nil {
		return
	}
	for skipped != nil {
		next := skipped.next
		skipped.resultCh <- Result{Err: ErrNoReply}
		skipped = next
	}
	code := pkt.Code & CodeMask
	if pkt.Code&CodeError != 0 {
		cerr := &CommandError{Code: code}
		if len(pkt.Data) > 1 {
			cerr.Reason = pkt.Data[1]
		}
		curr.resultCh <- Result{Err: cerr}
	} else {
		curr.resultCh <- Result{Code: code, Data: pkt.Data[1:]}
	}
}

// Run wraps FIFO.Run to implement Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.fifo.Run(ctx)
}
