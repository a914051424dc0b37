// Package i2cdev implements ds1307.Bus on the Linux i2c-dev interface.
package i2cdev

import (
	"errors"
	"strconv"
)

// ErrUnsupported is returned on platforms without i2c-dev.
var ErrUnsupported = errors.New("i2cdev: unsupported platform")

// DevicePath returns the device node of the numbered adapter.
func DevicePath(adapter int) string {
	return "/dev/i2c-" + strconv.Itoa(adapter)
}
