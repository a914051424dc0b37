package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/l0/sim"
	"github.com/robotalks/avr.go/pkg/link"
	"github.com/robotalks/avr.go/pkg/link/mqtt"
	"github.com/robotalks/avr.go/pkg/link/websocket"
	"github.com/robotalks/avr.go/pkg/wire"
)

type published struct {
	payload []byte
	retain  bool
}

type fakePublisher struct {
	lock   sync.Mutex
	topics map[string]published
}

func (p *fakePublisher) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.topics == nil {
		p.topics = make(map[string]published)
	}
	p.topics[topic] = published{payload: payload, retain: retain}
	return &paho.DummyToken{}
}

func (p *fakePublisher) get(topic string) (published, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	pub, ok := p.topics[topic]
	return pub, ok
}

type testEnv struct {
	t      *testing.T
	bridge *Bridge
	device *sim.Device
	pub    *fakePublisher
	ctx    context.Context
	cancel context.CancelFunc
	errCh  chan error
}

func newTestEnv(t *testing.T) *testEnv {
	hostConn, devConn := net.Pipe()
	env := &testEnv{
		t:      t,
		device: sim.NewDevice(devConn),
		pub:    &fakePublisher{},
		errCh:  make(chan error, 1),
	}
	env.device.TickInterval = 20 * time.Millisecond
	conf := &Config{ID: "dev1", Device: "sim://", CallTimeout: time.Second}
	env.bridge = NewWithDevice(conf, &link.DeviceConn{ReadWriteCloser: hostConn})
	env.bridge.Publisher = env.pub
	env.ctx, env.cancel = context.WithCancel(context.Background())
	t.Cleanup(func() {
		env.cancel()
		devConn.Close()
	})
	go env.device.Run(env.ctx)
	go func() { env.errCh <- env.bridge.Run(env.ctx) }()
	env.waitReady()
	return env
}

func (e *testEnv) waitReady() {
	ping, err := msgs.EncodeRequest(msgs.NewRequest(msgs.Ping{}))
	require.NoError(e.t, err)
	require.Eventually(e.t, func() bool {
		return len(e.bridge.Handle(e.ctx, ping)) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (e *testEnv) call(req *wire.Variant) []byte {
	data, err := msgs.EncodeRequest(req)
	require.NoError(e.t, err)
	return e.bridge.Handle(e.ctx, data)
}

func TestBridgeHandle(t *testing.T) {
	env := newTestEnv(t)

	reply, err := msgs.DecodeReply(env.call(msgs.NewRequest(msgs.Ping{})))
	require.NoError(t, err)
	require.Equal(t, "1.0.0", wire.Get[msgs.Pong](reply).VersionString())

	reply, err = msgs.DecodeReply(env.call(msgs.NewRequest(msgs.SetPin{Pin: 5, High: true})))
	require.NoError(t, err)
	require.True(t, wire.Is[msgs.Ack](reply))
	require.True(t, env.device.Pin(5))

	require.Empty(t, env.call(msgs.NewRequest(msgs.SetPin{Pin: 99})))
	require.Empty(t, env.bridge.Handle(env.ctx, []byte{0}))
	require.Empty(t, env.bridge.Handle(env.ctx, nil))
}

func TestBridgeEvents(t *testing.T) {
	env := newTestEnv(t)

	var pub published
	require.Eventually(t, func() bool {
		var ok bool
		pub, ok = env.pub.get("dev1/time")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, pub.retain)
	var ts timestamp.Timestamp
	require.NoError(t, proto.Unmarshal(pub.payload, &ts))
	require.InDelta(t, time.Now().Unix(), ts.Seconds, 5)

	pub, ok := env.pub.get("dev1/evt/Tick")
	require.True(t, ok)
	require.False(t, pub.retain)
	var desc struct {
		Type string `json:"type"`
		Tag  int    `json:"tag"`
	}
	require.NoError(t, json.Unmarshal(pub.payload, &desc))
	require.Equal(t, "Tick", desc.Type)
	require.Equal(t, 1, desc.Tag)

	require.NoError(t, env.device.SetInput(3, true))
	require.Eventually(t, func() bool {
		_, ok := env.pub.get("dev1/evt/PinChanged")
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestBridgeMeta(t *testing.T) {
	env := newTestEnv(t)
	var meta mqtt.DeviceMeta
	require.Eventually(t, func() bool {
		pub, ok := env.pub.get("dev1/" + mqtt.MetaTopic)
		if !ok {
			return false
		}
		require.True(t, pub.retain)
		require.NoError(t, json.Unmarshal(pub.payload, &meta))
		return meta.Firmware != ""
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "dev1", meta.ID)
	require.Equal(t, "sim://", meta.Device)
	require.Equal(t, "1.0.0", meta.Firmware)
	require.Equal(t, env.bridge.Meta().Since.Unix(), meta.Since.Unix())
}

type chanPacketReadWriter struct {
	in, out chan []byte
	done    chan struct{}
	once    sync.Once
}

func (p *chanPacketReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.in:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

func (p *chanPacketReadWriter) WritePacket(pkt []byte) error {
	select {
	case p.out <- pkt:
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	}
}

func (p *chanPacketReadWriter) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func TestBridgeServe(t *testing.T) {
	env := newTestEnv(t)
	rw := &chanPacketReadWriter{
		in:   make(chan []byte, 1),
		out:  make(chan []byte, 1),
		done: make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(env.ctx)
	serveErr := make(chan error, 1)
	go func() { serveErr <- env.bridge.Serve(ctx, rw) }()

	req, err := msgs.EncodeRequest(msgs.NewRequest(msgs.GetUptime{}))
	require.NoError(t, err)
	rw.in <- req
	reply, err := msgs.DecodeReply(<-rw.out)
	require.NoError(t, err)
	require.True(t, wire.Is[msgs.Uptime](reply))

	rw.in <- []byte{0xff}
	require.Empty(t, <-rw.out)

	cancel()
	require.Equal(t, context.Canceled, <-serveErr)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestBridgeServeWebsocket(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(websocket.Handler(func(rw *websocket.ReadWriter) error {
		return env.bridge.Serve(env.ctx, rw)
	}))
	defer srv.Close()

	remote, err := websocket.Dial("ws" + strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	r := link.NewRemote(remote)
	defer r.Close()

	reply, err := r.Call(env.ctx, msgs.NewRequest(msgs.GetTime{}))
	require.NoError(t, err)
	require.True(t, wire.Is[msgs.CurrentTime](reply))
	require.NoError(t, wire.Get[msgs.CurrentTime](reply).Time.Validate())

	_, err = r.Call(env.ctx, msgs.NewRequest(msgs.SetPin{Pin: 200}))
	require.ErrorIs(t, err, link.ErrRemoteFailed)
}

func TestBridgeRunStops(t *testing.T) {
	env := newTestEnv(t)
	env.cancel()
	select {
	case err := <-env.errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge not stopped")
	}
}
