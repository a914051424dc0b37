package avrtime

import (
	"fmt"
	"io"
	"time"

	"github.com/golang/protobuf/ptypes"
	"github.com/golang/protobuf/ptypes/timestamp"

	"github.com/robotalks/avr.go/pkg/wire"
)

// DateTime is a calendar instant without time zone, always UTC.
// Month and Day are 1-based, matching the DS1307 registers. The firmware's
// conversion to struct tm passes Month as tm_mon unchanged, which is
// 0-based there, so its timestamps are one month ahead of TimestampOf.
type DateTime struct {
	Year    uint16
	Month   uint8
	Day     uint8
	Hours   uint8
	Minutes uint8
	Seconds uint8
}

// DateTimeSerializer encodes a DateTime in 7 bytes.
var DateTimeSerializer = wire.NewSerializer(
	wire.NewField(func(d *DateTime) *uint16 { return &d.Year }, wire.Uint16),
	wire.NewField(func(d *DateTime) *uint8 { return &d.Month }, wire.Uint8),
	wire.NewField(func(d *DateTime) *uint8 { return &d.Day }, wire.Uint8),
	wire.NewField(func(d *DateTime) *uint8 { return &d.Hours }, wire.Uint8),
	wire.NewField(func(d *DateTime) *uint8 { return &d.Minutes }, wire.Uint8),
	wire.NewField(func(d *DateTime) *uint8 { return &d.Seconds }, wire.Uint8),
)

// DateTimeSize is the encoded size of a DateTime.
const DateTimeSize = 7

// SerializeTo implements wire.Serializable.
func (d *DateTime) SerializeTo(w io.ByteWriter) wire.Optional[int] {
	return DateTimeSerializer.Serialize(d, w)
}

// DeserializeFrom implements wire.Serializable.
func (d *DateTime) DeserializeFrom(r io.ByteReader) wire.Optional[int] {
	return DateTimeSerializer.Deserialize(d, r)
}

// DateTimeOf converts t to UTC and truncates it to seconds.
// Years outside uint16 are clamped.
func DateTimeOf(t time.Time) DateTime {
	t = t.UTC()
	year := t.Year()
	if year < 0 {
		year = 0
	} else if year > 0xffff {
		year = 0xffff
	}
	return DateTime{
		Year:    uint16(year),
		Month:   uint8(t.Month()),
		Day:     uint8(t.Day()),
		Hours:   uint8(t.Hour()),
		Minutes: uint8(t.Minute()),
		Seconds: uint8(t.Second()),
	}
}

// Validate reports the first out-of-range field.
func (d DateTime) Validate() error {
	switch {
	case d.Month < 1 || d.Month > 12:
		return &RangeError{Field: "month", Value: int(d.Month)}
	case d.Day < 1 || int(d.Day) > daysIn(d.Year, d.Month):
		return &RangeError{Field: "day", Value: int(d.Day)}
	case d.Hours > 23:
		return &RangeError{Field: "hours", Value: int(d.Hours)}
	case d.Minutes > 59:
		return &RangeError{Field: "minutes", Value: int(d.Minutes)}
	case d.Seconds > 59:
		return &RangeError{Field: "seconds", Value: int(d.Seconds)}
	}
	return nil
}

// Time returns the time.Time in UTC. Out-of-range fields are normalized
// the way time.Date does.
func (d DateTime) Time() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hours), int(d.Minutes), int(d.Seconds), 0, time.UTC)
}

// Proto converts d into a protobuf Timestamp.
func (d DateTime) Proto() (*timestamp.Timestamp, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return ptypes.TimestampProto(d.Time())
}

// DateTimeFromProto converts a protobuf Timestamp.
func DateTimeFromProto(ts *timestamp.Timestamp) (DateTime, error) {
	t, err := ptypes.Timestamp(ts)
	if err != nil {
		return DateTime{}, err
	}
	return DateTimeOf(t), nil
}

// Layout is the text form of a DateTime, RFC 3339 without zone.
const Layout = "2006-01-02T15:04:05"

// String formats d with Layout.
func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		d.Year, d.Month, d.Day, d.Hours, d.Minutes, d.Seconds)
}

// MarshalText implements encoding.TextMarshaler.
func (d DateTime) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts Layout or full RFC 3339.
func (d *DateTime) UnmarshalText(text []byte) error {
	t, err := time.Parse(Layout, string(text))
	if err != nil {
		if t, err = time.Parse(time.RFC3339, string(text)); err != nil {
			return err
		}
	}
	*d = DateTimeOf(t)
	return nil
}

// RangeError reports a DateTime field out of range.
type RangeError struct {
	Field string
	Value int
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("avrtime: %s %d out of range", e.Field, e.Value)
}

func isLeap(year uint16) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysIn(year uint16, month uint8) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}
