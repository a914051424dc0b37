package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
)

// DeviceMeta is published retained on id/meta while the bridge is online.
type DeviceMeta struct {
	ID       string    `json:"id"`
	Device   string    `json:"device"`
	Firmware string    `json:"firmware,omitempty"`
	Since    time.Time `json:"since"`
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Discover collects the devices announced on the broker until timeout.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) (res []DeviceMeta, err error) {
	resCh := make(chan DeviceMeta, 1)
	sub := q.SubDevice("+", MetaTopic, func(m *Message) {
		if len(m.Payload) == 0 {
			// cleared by the will
			return
		}
		var meta DeviceMeta
		if err := json.Unmarshal(m.Payload, &meta); err != nil {
			glog.Warningf("invalid meta on %q: %v", m.Topic, err)
			return
		}
		if meta.ID == "" {
			meta.ID = m.Device
		}
		select {
		case resCh <- meta:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	if timeout == 0 {
		timeout = DefaultDiscoverTimeout
	}
	expire := time.After(timeout)
	for {
		select {
		case meta := <-resCh:
			res = append(res, meta)
		case <-expire:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Dial connects to the broker and opens a client link to device id.
func Dial(brokerURL, id string) (*ReadWriter, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if err = q.Open(); err != nil {
		return nil, err
	}
	rw := NewPacketReadWriter(q).ForClient(id)
	rw.ownQueue = true
	if err = rw.Open(); err != nil {
		rw.Close()
		return nil, err
	}
	return rw, nil
}
