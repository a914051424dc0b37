package msgs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/robotalks/avr.go/pkg/avrtime"
	"github.com/robotalks/avr.go/pkg/wire"
)

// Ping checks the firmware is alive, answered by Pong.
type Ping struct{}

// GetTime reads the RTC, answered by CurrentTime.
type GetTime struct{}

// SetTime adjusts the RTC, answered by Ack.
type SetTime struct {
	Time avrtime.DateTime
}

// GetUptime reads the firmware clock, answered by Uptime.
type GetUptime struct{}

// SetPin drives a digital output, answered by Ack.
type SetPin struct {
	Pin  uint8
	High bool
}

// Pong carries the firmware version.
type Pong struct {
	Version [3]uint8
}

// VersionString formats the version as major.minor.patch.
func (p Pong) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", p.Version[0], p.Version[1], p.Version[2])
}

// Ack confirms a command without data.
type Ack struct{}

// CurrentTime is the RTC time.
type CurrentTime struct {
	Time avrtime.DateTime
}

// Uptime is the milliseconds since the firmware started.
type Uptime struct {
	Millis uint64
}

// Tick is sent by the firmware every second.
type Tick struct {
	Time avrtime.Timestamp
}

// PinChanged reports a digital input level change.
type PinChanged struct {
	Pin  uint8
	High bool
}

// LogLevel is the severity of a Log event.
type LogLevel uint8

// Log levels.
const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

var logLevelNames = []string{"debug", "info", "warning", "error"}

func (l LogLevel) String() string {
	if int(l) < len(logLevelNames) {
		return logLevelNames[l]
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *LogLevel) UnmarshalText(text []byte) error {
	for n, name := range logLevelNames {
		if strings.EqualFold(name, string(text)) {
			*l = LogLevel(n)
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", text)
}

// LogTextSize is the fixed size of Log.Text.
const LogTextSize = 16

// Log is a short log line from the firmware. Text is NUL padded.
type Log struct {
	Level LogLevel
	Text  [LogTextSize]byte
}

// NewLog creates a Log, truncating text to LogTextSize bytes.
func NewLog(level LogLevel, text string) Log {
	l := Log{Level: level}
	copy(l.Text[:], text)
	return l
}

// Message returns Text without padding.
func (l Log) Message() string {
	if n := bytes.IndexByte(l.Text[:], 0); n >= 0 {
		return string(l.Text[:n])
	}
	return string(l.Text[:])
}

type logJSON struct {
	Level LogLevel `json:"level"`
	Text  string   `json:"text"`
}

// MarshalJSON renders Text as a string.
func (l Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(logJSON{Level: l.Level, Text: l.Message()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Log) UnmarshalJSON(data []byte) error {
	var v logJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v.Text) > LogTextSize {
		return fmt.Errorf("log text longer than %d bytes", LogTextSize)
	}
	*l = NewLog(v.Level, v.Text)
	return nil
}

// SerializeTo implements wire.Serializable.
func (l *Log) SerializeTo(w io.ByteWriter) wire.Optional[int] {
	return logSerializer.Serialize(l, w)
}

// DeserializeFrom implements wire.Serializable.
func (l *Log) DeserializeFrom(r io.ByteReader) wire.Optional[int] {
	return logSerializer.Deserialize(l, r)
}

var logSerializer = wire.NewSerializer(
	wire.NewField(func(l *Log) *LogLevel { return &l.Level }, wire.Enum[LogLevel]()),
	wire.ArrayField(func(l *Log) []byte { return l.Text[:] }, wire.Uint8),
)

var pinSerializer = wire.NewSerializer(
	wire.NewField(func(m *SetPin) *uint8 { return &m.Pin }, wire.Uint8),
	wire.NewField(func(m *SetPin) *bool { return &m.High }, wire.Bool),
)

// Requests are sent by the host.
var Requests = wire.NewVariantType(
	wire.Alt[Ping](wire.NewSerializer[Ping]()),
	wire.Alt[GetTime](wire.NewSerializer[GetTime]()),
	wire.Alt[SetTime](wire.NewSerializer(
		wire.FieldOf(func(m *SetTime) *avrtime.DateTime { return &m.Time }),
	)),
	wire.Alt[GetUptime](wire.NewSerializer[GetUptime]()),
	wire.Alt[SetPin](pinSerializer),
)

// Replies answer Requests.
var Replies = wire.NewVariantType(
	wire.Alt[Pong](wire.NewSerializer(
		wire.ArrayField(func(m *Pong) []uint8 { return m.Version[:] }, wire.Uint8),
	)),
	wire.Alt[Ack](wire.NewSerializer[Ack]()),
	wire.Alt[CurrentTime](wire.NewSerializer(
		wire.NewField(func(m *CurrentTime) *avrtime.DateTime { return &m.Time }, wire.Custom[avrtime.DateTime]()),
	)),
	wire.Alt[Uptime](wire.NewSerializer(
		wire.NewField(func(m *Uptime) *uint64 { return &m.Millis }, wire.Uint64),
	)),
)

// Events are pushed by the firmware.
var Events = wire.NewVariantType(
	wire.Alt[Tick](wire.NewSerializer(
		wire.FieldOf(func(m *Tick) *avrtime.Timestamp { return &m.Time }),
	)),
	wire.Alt[PinChanged](wire.NewSerializer(
		wire.NewField(func(m *PinChanged) *uint8 { return &m.Pin }, wire.Uint8),
		wire.NewField(func(m *PinChanged) *bool { return &m.High }, wire.Bool),
	)),
	wire.AltOf[Log](),
)
