package i2cdev

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avr.go/pkg/drivers/ds1307"
)

var _ ds1307.Bus = (*Bus)(nil)

func TestDevicePath(t *testing.T) {
	require.Equal(t, "/dev/i2c-0", DevicePath(0))
	require.Equal(t, "/dev/i2c-1", DevicePath(1))
	require.Equal(t, "/dev/i2c-12", DevicePath(12))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open("/nonexistent/i2c-99")
	require.Error(t, err)
}
