//go:build !linux

package serial

import "os"

var baudRates = map[int]uint32{}

// Port is an open serial port.
type Port struct {
	*os.File
}

// Open returns ErrUnsupported.
func Open(dev string, baud int) (*Port, error) {
	return nil, ErrUnsupported
}

// ReadTimeout reports reads return periodically without data.
func (p *Port) ReadTimeout() bool {
	return true
}
