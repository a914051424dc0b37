package avrtime

import (
	"io"
	"math"
	"time"

	"github.com/robotalks/avr.go/pkg/wire"
)

// Timestamp counts seconds since the Unix epoch, as the firmware clock does.
type Timestamp struct {
	Seconds uint32
}

// TimestampSerializer encodes a Timestamp in 4 bytes.
var TimestampSerializer = wire.NewSerializer(
	wire.NewField(func(t *Timestamp) *uint32 { return &t.Seconds }, wire.Uint32),
)

// SerializeTo implements wire.Serializable.
func (t *Timestamp) SerializeTo(w io.ByteWriter) wire.Optional[int] {
	return TimestampSerializer.Serialize(t, w)
}

// DeserializeFrom implements wire.Serializable.
func (t *Timestamp) DeserializeFrom(r io.ByteReader) wire.Optional[int] {
	return TimestampSerializer.Deserialize(t, r)
}

// TimestampOf converts d. An invalid DateTime, or one not representable
// in 32 bits since the epoch, gives the zero Timestamp.
func TimestampOf(d DateTime) Timestamp {
	if d.Validate() != nil {
		return Timestamp{}
	}
	secs := d.Time().Unix()
	if secs < 0 || secs > math.MaxUint32 {
		return Timestamp{}
	}
	return Timestamp{Seconds: uint32(secs)}
}

// DateTime converts t back to a calendar instant.
func (t Timestamp) DateTime() DateTime {
	return DateTimeOf(t.Time())
}

// Time returns t as time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t.Seconds), 0).UTC()
}

// IsZero reports whether t is the epoch, also used for "unknown".
func (t Timestamp) IsZero() bool {
	return t.Seconds == 0
}

func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339)
}

// MarshalText implements encoding.TextMarshaler.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts RFC 3339.
func (t *Timestamp) UnmarshalText(text []byte) error {
	v, err := time.Parse(time.RFC3339, string(text))
	if err != nil {
		return err
	}
	*t = TimestampOf(DateTimeOf(v))
	return nil
}
