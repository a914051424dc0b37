package bridge

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/avr.go/pkg/link/serial"
)

// Config provides the options of a bridge.
type Config struct {
	// Device is a serial device path, tcp://host:port or sim://.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// ID names the device on command links and in topics.
	ID string `yaml:"id"`
	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// WebsocketAddr is the listen address of the websocket command link.
	WebsocketAddr string `yaml:"websocket"`
	WebsocketPath string `yaml:"websocket-path"`
	// CallTimeout bounds each request forwarded to the device.
	CallTimeout time.Duration `yaml:"call-timeout"`
}

var defaultConfig = Config{
	Device:        "/dev/ttyUSB0",
	Baud:          serial.DefaultBaud,
	WebsocketPath: "/avr",
	CallTimeout:   time.Second,
}

func init() {
	if val := os.Getenv("AVR_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("AVR_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		} else {
			glog.Warningf("ignore invalid AVR_BAUD %q", val)
		}
	}
	defaultConfig.ID = os.Getenv("AVR_ID")
	defaultConfig.MQTTBrokerURL = os.Getenv("AVR_MQTT_URL")
	defaultConfig.WebsocketAddr = os.Getenv("AVR_WS_ADDR")
}

// MachineIDLen is the length of IDs derived from the machine ID.
const MachineIDLen = 16

// MachineID retrieves the unique ID identifying the machine, hashed with
// the application name so the raw ID never leaves the host.
func MachineID() (string, error) {
	id, err := machineid.ProtectedID("avr")
	if err != nil {
		return "", err
	}
	if len(id) > MachineIDLen {
		id = id[:MachineIDLen]
	}
	return id, nil
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides the config with a YAML file. Unknown keys are errors.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil {
		return fmt.Errorf("config %s: %w", fn, err)
	}
	return nil
}

// SetupFlags sets command line flags.
func (c *Config) SetupFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Device, "device", "d", c.Device, "Serial device, tcp://HOST:PORT or sim://")
	fs.IntVarP(&c.Baud, "baud", "b", c.Baud, "Serial baud rate")
	fs.StringVar(&c.ID, "id", c.ID, "Device ID, machine ID if empty")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL")
	fs.StringVar(&c.WebsocketAddr, "ws", c.WebsocketAddr, "Websocket listen address")
	fs.StringVar(&c.WebsocketPath, "ws-path", c.WebsocketPath, "Websocket path")
	fs.DurationVar(&c.CallTimeout, "timeout", c.CallTimeout, "Device call timeout")
}

// Complete fills the ID and validates the config.
func (c *Config) Complete() error {
	if c.Device == "" {
		return fmt.Errorf("device must be specified")
	}
	if c.ID == "" {
		id, err := MachineID()
		if err != nil {
			return fmt.Errorf("machine id: %w", err)
		}
		c.ID = id
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = defaultConfig.CallTimeout
	}
	if c.WebsocketAddr != "" && c.WebsocketPath == "" {
		c.WebsocketPath = "/"
	}
	return nil
}

// Overlay applies the flags changed in fs on top of the config.
func (c *Config) Overlay(fs *pflag.FlagSet) error {
	own := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	c.SetupFlags(own)
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err == nil && own.Lookup(f.Name) != nil {
			err = own.Set(f.Name, f.Value.String())
		}
	})
	return err
}
