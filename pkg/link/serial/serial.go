// Package serial opens the serial port a device is attached to.
package serial

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultBaud is the firmware's default UART speed.
const DefaultBaud = 115200

// ErrUnsupported is returned on platforms without termios support.
var ErrUnsupported = errors.New("serial port not supported on this platform")

// BaudError reports a baud rate without a termios constant.
type BaudError struct {
	Baud int
}

func (e *BaudError) Error() string {
	return fmt.Sprintf("unsupported baud rate %d", e.Baud)
}

// Rates lists the supported baud rates in ascending order.
func Rates() []int {
	rates := make([]int, 0, len(baudRates))
	for rate := range baudRates {
		rates = append(rates, rate)
	}
	sort.Ints(rates)
	return rates
}
