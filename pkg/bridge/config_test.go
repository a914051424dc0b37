package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestConfigFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
device: tcp://localhost:2000
baud: 57600
id: bench
mqtt: mqtt://localhost:1883/avr
websocket: :8080
call-timeout: 250ms
`), 0644))
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, "tcp://localhost:2000", conf.Device)
	require.Equal(t, 57600, conf.Baud)
	require.Equal(t, "bench", conf.ID)
	require.Equal(t, "mqtt://localhost:1883/avr", conf.MQTTBrokerURL)
	require.Equal(t, ":8080", conf.WebsocketAddr)
	require.Equal(t, "/avr", conf.WebsocketPath)
	require.Equal(t, 250*time.Millisecond, conf.CallTimeout)
}

func TestConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, NewConfig().LoadFile(filepath.Join(dir, "missing.yaml")))

	fn := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("devise: /dev/ttyS0\n"), 0644))
	require.Error(t, NewConfig().LoadFile(fn))
}

func TestConfigFlags(t *testing.T) {
	conf := NewConfig()
	fs := pflag.NewFlagSet("bridge", pflag.ContinueOnError)
	conf.SetupFlags(fs)
	require.NoError(t, fs.Parse([]string{"-d", "sim://", "--id", "x", "--timeout", "2s", "-b", "9600"}))
	require.Equal(t, "sim://", conf.Device)
	require.Equal(t, "x", conf.ID)
	require.Equal(t, 9600, conf.Baud)
	require.Equal(t, 2*time.Second, conf.CallTimeout)
	// flags never touch the defaults
	require.NotEqual(t, "x", NewConfig().ID)
}

func TestConfigComplete(t *testing.T) {
	conf := &Config{}
	require.Error(t, conf.Complete())

	conf = &Config{Device: "sim://", ID: "x", WebsocketAddr: ":0"}
	require.NoError(t, conf.Complete())
	require.Equal(t, time.Second, conf.CallTimeout)
	require.Equal(t, "/", conf.WebsocketPath)
}

func TestConfigOverlay(t *testing.T) {
	flags := NewConfig()
	fs := pflag.NewFlagSet("bridge", pflag.ContinueOnError)
	flags.SetupFlags(fs)
	fs.Bool("verbose", false, "not a config flag")
	require.NoError(t, fs.Parse([]string{"--id", "from-flag", "--timeout", "3s", "--verbose"}))

	conf := &Config{Device: "sim://", ID: "from-file", Baud: 9600, CallTimeout: time.Second}
	require.NoError(t, conf.Overlay(fs))
	require.Equal(t, "from-flag", conf.ID)
	require.Equal(t, 3*time.Second, conf.CallTimeout)
	require.Equal(t, "sim://", conf.Device)
	require.Equal(t, 9600, conf.Baud)
}
