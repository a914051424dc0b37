package serial

import (
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ReadInterval bounds each Read so the caller can run its timers.
const ReadInterval = 100 * time.Millisecond

var baudRates = map[int]uint32{
	1200:    unix.B1200,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	1000000: unix.B1000000,
}

// Port is an open serial port in raw mode. Reads give up after
// ReadInterval with a timeout error, so the FIFO on it must run with
// ReadTimeout set.
type Port struct {
	*os.File
}

// Open opens the device in raw 8N1 mode at baud.
func Open(dev string, baud int) (*Port, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, &BaudError{Baud: baud}
	}
	f, err := os.OpenFile(dev, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	if err = configure(int(f.Fd()), speed); err != nil {
		f.Close()
		return nil, &os.PathError{Op: "configure", Path: dev, Err: err}
	}
	return &Port{File: f}, nil
}

func configure(fd int, speed uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Ispeed, t.Ospeed = speed, speed
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err = unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return err
	}
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
}

// Read implements io.Reader.
func (p *Port) Read(buf []byte) (int, error) {
	if err := p.File.SetReadDeadline(time.Now().Add(ReadInterval)); err != nil {
		return 0, err
	}
	n, err := p.File.Read(buf)
	if n == 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadTimeout reports reads return periodically without data.
func (p *Port) ReadTimeout() bool {
	return true
}
