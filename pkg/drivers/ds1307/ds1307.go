// Package ds1307 drives the DS1307 real time clock over I2C.
package ds1307

import (
	"fmt"

	"github.com/robotalks/avr.go/pkg/avrtime"
)

// DefaultAddress is the fixed I2C address of the chip.
const DefaultAddress uint16 = 0x68

const (
	regSeconds = 0
	numRegs    = 7
	haltBit    = 0x80
	baseYear   = 2000
)

// Bus performs one I2C transaction: w is written to the device at addr,
// then len(r) bytes are read back (a repeated start is used when both are
// non-empty).
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// RTC is a DS1307 on a Bus.
type RTC struct {
	Bus     Bus
	Address uint16
}

// New creates an RTC at the default address.
func New(bus Bus) *RTC {
	return &RTC{Bus: bus, Address: DefaultAddress}
}

// Now reads the current time. The weekday register is ignored.
func (c *RTC) Now() (avrtime.DateTime, error) {
	var regs [numRegs]byte
	if err := c.Bus.Tx(c.Address, []byte{regSeconds}, regs[:]); err != nil {
		return avrtime.DateTime{}, fmt.Errorf("ds1307 read: %w", err)
	}
	return Decode(regs), nil
}

// Adjust sets the clock. Writing the seconds register also clears the
// halt bit, so the clock starts running.
func (c *RTC) Adjust(dt avrtime.DateTime) error {
	if dt.Year < baseYear || dt.Year > baseYear+99 {
		return fmt.Errorf("ds1307: year %d out of range", dt.Year)
	}
	regs := Encode(dt)
	w := append([]byte{regSeconds}, regs[:]...)
	if err := c.Bus.Tx(c.Address, w, nil); err != nil {
		return fmt.Errorf("ds1307 write: %w", err)
	}
	return nil
}

// IsRunning reports whether the oscillator is enabled.
func (c *RTC) IsRunning() (bool, error) {
	var sec [1]byte
	if err := c.Bus.Tx(c.Address, []byte{regSeconds}, sec[:]); err != nil {
		return false, fmt.Errorf("ds1307 read: %w", err)
	}
	return sec[0]&haltBit == 0, nil
}

// Decode converts the register image, starting at register 0.
func Decode(regs [numRegs]byte) avrtime.DateTime {
	return avrtime.DateTime{
		Seconds: bcd2bin(regs[0] &^ haltBit),
		Minutes: bcd2bin(regs[1]),
		Hours:   bcd2bin(regs[2]),
		Day:     bcd2bin(regs[4]),
		Month:   bcd2bin(regs[5]),
		Year:    uint16(bcd2bin(regs[6])) + baseYear,
	}
}

// Encode builds the register image for dt with weekday 0 and the clock
// running. dt.Year must be within 2000..2099.
func Encode(dt avrtime.DateTime) (regs [numRegs]byte) {
	regs[0] = bin2bcd(dt.Seconds)
	regs[1] = bin2bcd(dt.Minutes)
	regs[2] = bin2bcd(dt.Hours)
	regs[4] = bin2bcd(dt.Day)
	regs[5] = bin2bcd(dt.Month)
	regs[6] = bin2bcd(uint8(dt.Year - baseYear))
	return
}

func bcd2bin(x uint8) uint8 { return x - 6*(x>>4) }
func bin2bcd(x uint8) uint8 { return x + 6*(x/10) }
