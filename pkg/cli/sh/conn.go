package sh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/avr.go/pkg/l0/comm"
	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/link"
	"github.com/robotalks/avr.go/pkg/link/mqtt"
	"github.com/robotalks/avr.go/pkg/link/websocket"
	"github.com/robotalks/avr.go/pkg/wire"
)

// DefaultSyncTimeout bounds the wait for a directly attached device.
const DefaultSyncTimeout = 2 * time.Second

// ErrDeviceIDRequired is returned when dialing a broker without device ID.
var ErrDeviceIDRequired = errors.New("device ID required")

// Conn is a connection to a device, either direct or through a bridge.
type Conn interface {
	Name() string
	Call(ctx context.Context, req *wire.Variant) (*wire.Variant, error)
	Close() error
}

// EventFunc receives events from a directly attached device.
type EventFunc func(*wire.Variant)

// IsBrokerURL tells if target points to an MQTT broker.
func IsBrokerURL(target string) bool {
	return strings.HasPrefix(target, "mqtt://") ||
		strings.HasPrefix(target, "mqtts://") ||
		strings.HasPrefix(target, "ssl://")
}

// Dial connects target:
//
//	DEV | tcp://HOST:PORT | sim://   the device itself
//	ws://HOST:PORT/PATH              a bridge over websocket
//	mqtt://HOST:PORT/PREFIX ID       a bridge over MQTT
func Dial(target, id string, baud int, onEvent EventFunc) (Conn, error) {
	switch {
	case IsBrokerURL(target):
		if id == "" {
			return nil, ErrDeviceIDRequired
		}
		rw, err := mqtt.Dial(target, id)
		if err != nil {
			return nil, err
		}
		return &remoteConn{name: id, Remote: link.NewRemote(rw)}, nil
	case strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://"):
		rw, err := websocket.Dial(target)
		if err != nil {
			return nil, err
		}
		return &remoteConn{name: target, Remote: link.NewRemote(rw)}, nil
	}
	return OpenDevice(target, baud, onEvent)
}

type remoteConn struct {
	*link.Remote
	name string
}

func (c *remoteConn) Name() string {
	return c.name
}

type deviceConn struct {
	name    string
	dev     *link.DeviceConn
	client  *comm.Client
	onEvent EventFunc
	cancel  context.CancelFunc
	ready   chan struct{}
	once    sync.Once
}

// OpenDevice connects a device directly and waits until it's synchronized.
func OpenDevice(target string, baud int, onEvent EventFunc) (Conn, error) {
	dev, err := link.OpenDevice(target, baud)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &deviceConn{
		name:    target,
		dev:     dev,
		client:  comm.NewClient(dev.NewFIFO()),
		onEvent: onEvent,
		cancel:  cancel,
		ready:   make(chan struct{}),
	}
	go func() {
		if err := c.client.Run(ctx); err != nil && err != context.Canceled {
			glog.Warningf("device %s: %v", target, err)
		}
	}()
	go c.pump(ctx)
	select {
	case <-c.ready:
		return c, nil
	case <-time.After(DefaultSyncTimeout):
		c.Close()
		return nil, fmt.Errorf("device %s: %w", target, comm.ErrNotReady)
	}
}

func (c *deviceConn) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-c.client.StateChan():
			glog.V(2).Infof("device %s %s", c.name, state)
			if state.IsReady() {
				c.once.Do(func() { close(c.ready) })
			}
		case pkt := <-c.client.EventChan():
			evt, err := msgs.EventFromPacket(pkt)
			if err != nil {
				glog.Warningf("invalid event %x: %v", pkt.Data, err)
				continue
			}
			if c.onEvent != nil {
				c.onEvent(evt)
			}
		}
	}
}

func (c *deviceConn) Name() string {
	return c.name
}

func (c *deviceConn) Call(ctx context.Context, req *wire.Variant) (*wire.Variant, error) {
	return msgs.Call(ctx, c.client, req)
}

func (c *deviceConn) Close() error {
	c.cancel()
	return c.dev.Close()
}
