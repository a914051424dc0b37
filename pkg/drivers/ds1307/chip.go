package ds1307

import (
	"fmt"
	"sync"
	"time"

	"github.com/robotalks/avr.go/pkg/avrtime"
)

// Chip emulates the DS1307 time keeping registers behind a Bus, for
// simulation and tests. The oscillator follows the supplied clock.
type Chip struct {
	Address uint16

	clock  func() time.Time
	base   time.Time
	setAt  time.Time
	halted bool
	lock   sync.Mutex
}

// NewChip creates a running Chip set to clock().
// A nil clock uses time.Now.
func NewChip(clock func() time.Time) *Chip {
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	return &Chip{Address: DefaultAddress, clock: clock, base: now, setAt: now}
}

// Halt stops the oscillator, as after a power loss without backup battery.
func (c *Chip) Halt() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.base, c.setAt, c.halted = c.now(), c.clock(), true
}

// Tx implements Bus. Register pointer wrap-around is not emulated.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	if addr != c.Address {
		return fmt.Errorf("no device at 0x%02x", addr)
	}
	if len(w) == 0 {
		return fmt.Errorf("register address missing")
	}
	reg := int(w[0])
	if reg+len(w)-1 > numRegs || reg+len(r) > numRegs {
		return fmt.Errorf("register 0x%02x out of range", reg)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	regs := Encode(avrtime.DateTimeOf(c.now()))
	if c.halted {
		regs[0] |= haltBit
	}
	if len(w) > 1 {
		copy(regs[reg:], w[1:])
		c.base = Decode(regs).Time()
		c.setAt = c.clock()
		c.halted = regs[0]&haltBit != 0
	}
	copy(r, regs[reg:])
	return nil
}

func (c *Chip) now() time.Time {
	if c.halted {
		return c.base
	}
	return c.base.Add(c.clock().Sub(c.setAt))
}
