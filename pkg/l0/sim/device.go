// Package sim simulates the firmware side of the L0 link.
package sim

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avr.go/pkg/avrtime"
	"github.com/robotalks/avr.go/pkg/drivers/ds1307"
	"github.com/robotalks/avr.go/pkg/l0/comm"
	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/wire"
)

// Error reasons carried by error replies.
const (
	ReasonBadRequest byte = 1
	ReasonInvalidArg byte = 2
	ReasonHardware   byte = 3
)

// DefaultNumPins is the number of digital pins of an ATmega328P.
const DefaultNumPins = 20

// Device answers requests like the firmware does.
type Device struct {
	Version      [3]uint8
	TickInterval time.Duration
	RTC          *ds1307.RTC

	fifo  *comm.FIFO
	start time.Time
	pins  []bool
	lock  sync.Mutex
}

// NewDevice creates a Device on rw with an emulated RTC.
func NewDevice(rw io.ReadWriter) *Device {
	d := &Device{
		Version:      [3]uint8{1, 0, 0},
		TickInterval: time.Second,
		RTC:          ds1307.New(ds1307.NewChip(nil)),
		fifo:         comm.NewFIFO(rw),
		start:        time.Now(),
		pins:         make([]bool, DefaultNumPins),
	}
	d.fifo.Handler = d
	return d
}

// Run implements framework.Runnable.
func (d *Device) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if d.TickInterval > 0 {
		go d.tick(ctx)
	}
	return d.fifo.Run(ctx)
}

// Pin returns the level of a pin.
func (d *Device) Pin(pin uint8) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return int(pin) < len(d.pins) && d.pins[pin]
}

// SetInput changes a pin level from outside and reports PinChanged.
func (d *Device) SetInput(pin uint8, high bool) error {
	d.lock.Lock()
	if int(pin) >= len(d.pins) {
		d.lock.Unlock()
		return fmt.Errorf("pin %d out of range", pin)
	}
	changed := d.pins[pin] != high
	d.pins[pin] = high
	d.lock.Unlock()
	if !changed {
		return nil
	}
	return d.Emit(msgs.NewEvent(msgs.PinChanged{Pin: pin, High: high}))
}

// Log sends a Log event.
func (d *Device) Log(level msgs.LogLevel, text string) error {
	return d.Emit(msgs.NewEvent(msgs.NewLog(level, text)))
}

// Emit sends an event. It fails with comm.ErrNotReady until synchronized.
func (d *Device) Emit(evt *wire.Variant) error {
	data, err := msgs.EncodeEvent(evt)
	if err != nil {
		return err
	}
	return d.fifo.Send(&comm.Packet{Code: msgs.CodeEventMessage, Data: data})
}

// HandlePacket implements comm.PacketHandler.
func (d *Device) HandlePacket(ctx context.Context, pkt *comm.Packet) {
	if pkt.IsEvent() || pkt.Code != msgs.CodeMessage {
		d.replyError(pkt, ReasonBadRequest)
		return
	}
	req, err := msgs.DecodeRequest(pkt.Data)
	if err != nil {
		glog.Warningf("sim: bad request %x: %v", pkt.Data, err)
		d.replyError(pkt, ReasonBadRequest)
		return
	}
	reply, reason := d.Respond(req)
	if reply == nil {
		d.replyError(pkt, reason)
		return
	}
	data, err := msgs.EncodeReply(reply)
	if err != nil {
		d.replyError(pkt, ReasonHardware)
		return
	}
	d.send(&comm.Packet{Code: msgs.CodeMessage, Data: append([]byte{byte(pkt.Seq)}, data...)})
}

// Respond computes the reply to req, or nil with an error reason.
func (d *Device) Respond(req *wire.Variant) (reply *wire.Variant, reason byte) {
	req.Visit(
		wire.On(func(*msgs.Ping) {
			reply = msgs.NewReply(msgs.Pong{Version: d.Version})
		}),
		wire.On(func(*msgs.GetTime) {
			now, err := d.RTC.Now()
			if err != nil {
				reason = ReasonHardware
				return
			}
			reply = msgs.NewReply(msgs.CurrentTime{Time: now})
		}),
		wire.On(func(m *msgs.SetTime) {
			if m.Time.Validate() != nil {
				reason = ReasonInvalidArg
				return
			}
			if err := d.RTC.Adjust(m.Time); err != nil {
				reason = ReasonInvalidArg
				return
			}
			reply = msgs.NewReply(msgs.Ack{})
		}),
		wire.On(func(*msgs.GetUptime) {
			reply = msgs.NewReply(msgs.Uptime{Millis: uint64(time.Since(d.start) / time.Millisecond)})
		}),
		wire.On(func(m *msgs.SetPin) {
			d.lock.Lock()
			defer d.lock.Unlock()
			if int(m.Pin) >= len(d.pins) {
				reason = ReasonInvalidArg
				return
			}
			d.pins[m.Pin] = m.High
			reply = msgs.NewReply(msgs.Ack{})
		}),
	)
	return
}

func (d *Device) replyError(pkt *comm.Packet, reason byte) {
	d.send(&comm.Packet{Code: pkt.Code&comm.CodeMask | comm.CodeError, Data: []byte{byte(pkt.Seq), reason}})
}

func (d *Device) send(pkt *comm.Packet) {
	if err := d.fifo.Send(pkt); err != nil {
		glog.Warningf("sim: send reply: %v", err)
	}
}

func (d *Device) tick(ctx context.Context) {
	ticker := time.NewTicker(d.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now, err := d.RTC.Now()
			if err != nil {
				continue
			}
			err = d.Emit(msgs.NewEvent(msgs.Tick{Time: avrtime.TimestampOf(now)}))
			if err != nil && err != comm.ErrNotReady {
				glog.Warningf("sim: tick: %v", err)
			}
		}
	}
}
