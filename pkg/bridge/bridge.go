// Package bridge connects a device to remote clients. Requests arriving on
// command links (MQTT, websocket) are forwarded to the device, events from
// the device are published on MQTT.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/avr.go/pkg/framework"
	"github.com/robotalks/avr.go/pkg/l0/comm"
	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/link"
	"github.com/robotalks/avr.go/pkg/link/mqtt"
	"github.com/robotalks/avr.go/pkg/link/websocket"
	"github.com/robotalks/avr.go/pkg/wire"
)

// Publisher publishes payloads to topics. It's implemented by mqtt.Queue.
type Publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Bridge serves a device.
type Bridge struct {
	Config    *Config
	Device    *link.DeviceConn
	Client    *comm.Client
	Queue     *mqtt.Queue
	Publisher Publisher

	since    time.Time
	firmware string
	lock     sync.RWMutex
}

// New opens the device and the MQTT queue from config.
func New(conf *Config) (*Bridge, error) {
	if err := conf.Complete(); err != nil {
		return nil, err
	}
	dev, err := link.OpenDevice(conf.Device, conf.Baud)
	if err != nil {
		return nil, err
	}
	b := NewWithDevice(conf, dev)
	if conf.MQTTBrokerURL != "" {
		opts, prefix, err := mqtt.ClientOptionsFromURL(conf.MQTTBrokerURL)
		if err != nil {
			dev.Close()
			return nil, err
		}
		mqtt.SetDeviceWill(opts, prefix, conf.ID)
		if opts.ClientID == "" {
			opts.SetClientID("avr:" + conf.ID)
		}
		b.Queue = mqtt.NewQueue(opts, prefix)
		b.Queue.OnConnect = func(*mqtt.Queue) { b.publishMeta() }
		b.Publisher = b.Queue
	}
	return b, nil
}

// NewWithDevice creates a Bridge on an opened device.
func NewWithDevice(conf *Config, dev *link.DeviceConn) *Bridge {
	return &Bridge{
		Config: conf,
		Device: dev,
		Client: comm.NewClient(dev.NewFIFO()),
		since:  time.Now(),
	}
}

func (b *Bridge) publish(kind string, payload []byte, name ...string) paho.Token {
	topic := mqtt.DeviceTopic(b.Config.ID, kind, name...)
	return b.Publisher.PubWith(topic, payload, mqtt.QoS(kind), mqtt.Retained(kind))
}

// Meta returns what's announced on id/meta.
func (b *Bridge) Meta() mqtt.DeviceMeta {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return mqtt.DeviceMeta{
		ID:       b.Config.ID,
		Device:   b.Config.Device,
		Firmware: b.firmware,
		Since:    b.since,
	}
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.Device.Close()

	var cmdLink *mqtt.ReadWriter
	if b.Queue != nil {
		if err := b.Queue.Open(); err != nil {
			return err
		}
		defer b.Queue.Close()
		cmdLink = mqtt.NewPacketReadWriter(b.Queue).ForDevice(b.Config.ID)
		if err := cmdLink.Open(); err != nil {
			return err
		}
		glog.Infof("bridge %s serving on %s", b.Config.ID, b.Config.MQTTBrokerURL)
	}

	runner := fx.NewRunnerWith(ctx)
	runner.StopOnError = true
	runner.Go(
		fx.NamedRun("device", b.Client),
		fx.NamedRun("monitor", fx.RunFunc(b.monitor)),
	)
	if cmdLink != nil {
		runner.Go(fx.NamedRun("mqtt", fx.RunFunc(func(ctx context.Context) error {
			return b.Serve(ctx, cmdLink)
		})))
	}
	if b.Config.WebsocketAddr != "" {
		runner.Go(fx.NamedRun("websocket", fx.RunFunc(b.serveWebsocket)))
	}
	err := runner.Wait()

	if b.Queue != nil {
		b.Queue.PubDevice(b.Config.ID, mqtt.MetaTopic, nil).WaitTimeout(time.Second)
	}
	return err
}

// Serve forwards requests from a command link until it fails or ctx is
// done.
func (b *Bridge) Serve(ctx context.Context, rw link.PacketReadWriter) error {
	var onCancel func()
	if closer, ok := rw.(interface{ Close() error }); ok {
		onCancel = func() { closer.Close() }
	}
	return fx.RunWithContextCancel(ctx, onCancel, func() error {
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				return err
			}
			if err = rw.WritePacket(b.Handle(ctx, pkt)); err != nil {
				return err
			}
		}
	})
}

// Handle forwards an encoded request to the device and returns the
// encoded reply, or an empty packet if anything fails.
func (b *Bridge) Handle(ctx context.Context, pkt []byte) []byte {
	req, err := msgs.DecodeRequest(pkt)
	if err != nil {
		glog.Warningf("invalid request %x: %v", pkt, err)
		return []byte{}
	}
	ctx, cancel := context.WithTimeout(ctx, b.Config.CallTimeout)
	defer cancel()
	reply, err := msgs.Call(ctx, b.Client, req)
	if err != nil {
		glog.Warningf("request %s failed: %v", msgs.Name(req), err)
		return []byte{}
	}
	data, err := msgs.EncodeReply(reply)
	if err != nil {
		glog.Warningf("encode reply %s: %v", msgs.Name(reply), err)
		return []byte{}
	}
	glog.V(2).Infof("%s -> %s", msgs.Name(req), msgs.Name(reply))
	return data
}

func (b *Bridge) monitor(ctx context.Context) error {
	var ready bool
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state := <-b.Client.StateChan():
			if state.IsReady() == ready {
				continue
			}
			ready = state.IsReady()
			glog.Infof("device %s", state)
			if ready {
				go b.identify(ctx)
			}
		case pkt := <-b.Client.EventChan():
			b.handleEvent(pkt)
		}
	}
}

func (b *Bridge) identify(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, b.Config.CallTimeout)
	defer cancel()
	pong, err := msgs.CallFor[msgs.Pong](ctx, b.Client, msgs.NewRequest(msgs.Ping{}))
	if err != nil {
		glog.Warningf("ping device: %v", err)
		return
	}
	version := pong.VersionString()
	b.lock.Lock()
	changed := b.firmware != version
	b.firmware = version
	b.lock.Unlock()
	if changed {
		glog.Infof("device firmware %s", version)
		b.publishMeta()
	}
}

func (b *Bridge) handleEvent(pkt *comm.Packet) {
	evt, err := msgs.EventFromPacket(pkt)
	if err != nil {
		glog.Warningf("invalid event %x: %v", pkt.Data, err)
		return
	}
	glog.V(2).Infof("event %v", evt)
	if b.Publisher == nil {
		return
	}
	data, err := msgs.MarshalJSON(evt)
	if err != nil {
		glog.Warningf("encode event %s: %v", msgs.Name(evt), err)
		return
	}
	b.publish(mqtt.EventTopic, data, msgs.Name(evt))
	if wire.Is[msgs.Tick](evt) {
		b.publishTime(wire.Get[msgs.Tick](evt))
	}
}

func (b *Bridge) publishTime(tick *msgs.Tick) {
	ts, err := tick.Time.DateTime().Proto()
	if err != nil {
		glog.Warningf("device time %v: %v", tick.Time, err)
		return
	}
	data, err := proto.Marshal(ts)
	if err != nil {
		glog.Warningf("encode device time: %v", err)
		return
	}
	b.publish(mqtt.TimeTopic, data)
}

func (b *Bridge) publishMeta() {
	if b.Publisher == nil {
		return
	}
	data, err := json.Marshal(b.Meta())
	if err != nil {
		glog.Errorf("encode meta: %v", err)
		return
	}
	b.publish(mqtt.MetaTopic, data)
}

func (b *Bridge) serveWebsocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(b.Config.WebsocketPath, websocket.Handler(func(rw *websocket.ReadWriter) error {
		return b.Serve(ctx, rw)
	}))
	srv := &http.Server{Addr: b.Config.WebsocketAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	glog.Infof("websocket listening on %s%s", b.Config.WebsocketAddr, b.Config.WebsocketPath)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		srv.Close()
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
