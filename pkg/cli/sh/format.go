package sh

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/avr.go/pkg/avrtime"
	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/wire"
)

// FormatReply prints a reply into friendly string for display.
func FormatReply(reply *wire.Variant) (out string) {
	reply.Visit(
		wire.On(func(m *msgs.Pong) { out = "Pong " + m.VersionString() }),
		wire.On(func(*msgs.Ack) { out = "OK" }),
		wire.On(func(m *msgs.CurrentTime) { out = m.Time.String() }),
		wire.On(func(m *msgs.Uptime) {
			out = (time.Duration(m.Millis) * time.Millisecond).String()
		}),
	)
	return
}

// FormatEvent prints an event into friendly string for display.
func FormatEvent(evt *wire.Variant) (out string) {
	evt.Visit(
		wire.On(func(m *msgs.Tick) { out = "Tick " + m.Time.String() }),
		wire.On(func(m *msgs.PinChanged) {
			out = fmt.Sprintf("Pin %d %s", m.Pin, onOff(m.High))
		}),
		wire.On(func(m *msgs.Log) {
			out = fmt.Sprintf("Log [%s] %s", m.Level, m.Message())
		}),
	)
	return
}

func onOff(high bool) string {
	if high {
		return "on"
	}
	return "off"
}

// ParsePin parses "N on|off" into SetPin.
func ParsePin(args []string) (msgs.SetPin, error) {
	var m msgs.SetPin
	if len(args) != 2 {
		return m, fmt.Errorf("usage: pin N on|off")
	}
	pin, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return m, fmt.Errorf("invalid pin %q", args[0])
	}
	m.Pin = uint8(pin)
	switch strings.ToLower(args[1]) {
	case "on", "high", "1":
		m.High = true
	case "off", "low", "0":
	default:
		return m, fmt.Errorf("invalid level %q", args[1])
	}
	return m, nil
}

// ParseTime parses the settime argument, the local clock if omitted.
func ParseTime(args []string, now func() time.Time) (avrtime.DateTime, error) {
	if len(args) == 0 || args[0] == "now" {
		return avrtime.DateTimeOf(now()), nil
	}
	var d avrtime.DateTime
	if err := d.UnmarshalText([]byte(args[0])); err != nil {
		return d, err
	}
	return d, d.Validate()
}
