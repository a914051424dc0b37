//go:build !linux

package i2cdev

// Bus is not available on this platform.
type Bus struct{}

// Open always fails with ErrUnsupported.
func Open(path string) (*Bus, error) {
	return nil, ErrUnsupported
}

// Tx implements ds1307.Bus.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return ErrUnsupported
}

// Close implements io.Closer.
func (b *Bus) Close() error {
	return nil
}
