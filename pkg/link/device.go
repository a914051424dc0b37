package link

import (
	"context"
	"io"
	"net"
	"strings"

	"github.com/golang/glog"
	"github.com/robotalks/avr.go/pkg/l0/comm"
	"github.com/robotalks/avr.go/pkg/l0/sim"
	"github.com/robotalks/avr.go/pkg/link/serial"
)

// Device targets accepted by OpenDevice besides a serial device path.
const (
	TCPScheme = "tcp://"
	SimScheme = "sim://"
)

// DeviceConn is the byte stream to the device firmware.
type DeviceConn struct {
	io.ReadWriteCloser
	// ReadTimeout is set when reads return periodically without data.
	ReadTimeout bool
}

// NewFIFO creates the L0 FIFO on the connection.
func (c *DeviceConn) NewFIFO() *comm.FIFO {
	fifo := comm.NewFIFO(c)
	fifo.ReadTimeout = c.ReadTimeout
	return fifo
}

type simConn struct {
	net.Conn
	cancel context.CancelFunc
}

func (c *simConn) Close() error {
	c.cancel()
	return c.Conn.Close()
}

// OpenDevice opens a connection to the device firmware:
//
//	/dev/ttyUSB0     serial port at baud
//	tcp://host:port  ser2net style raw TCP
//	sim://           in-process simulated device
func OpenDevice(target string, baud int) (*DeviceConn, error) {
	switch {
	case strings.HasPrefix(target, TCPScheme):
		conn, err := net.Dial("tcp", strings.TrimPrefix(target, TCPScheme))
		if err != nil {
			return nil, err
		}
		return &DeviceConn{ReadWriteCloser: conn}, nil
	case strings.HasPrefix(target, SimScheme):
		host, dev := net.Pipe()
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			if err := sim.NewDevice(dev).Run(ctx); err != nil && err != context.Canceled {
				glog.Warningf("simulated device stopped: %v", err)
			}
			dev.Close()
		}()
		return &DeviceConn{ReadWriteCloser: &simConn{Conn: host, cancel: cancel}}, nil
	}
	if baud == 0 {
		baud = serial.DefaultBaud
	}
	port, err := serial.Open(target, baud)
	if err != nil {
		return nil, err
	}
	return &DeviceConn{ReadWriteCloser: port, ReadTimeout: port.ReadTimeout()}, nil
}
