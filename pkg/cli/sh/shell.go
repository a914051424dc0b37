// Package sh provides the interactive shell talking to a device.
package sh

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/link/mqtt"
	"github.com/robotalks/avr.go/pkg/link/serial"
	"github.com/robotalks/avr.go/pkg/wire"
)

// Options configures a Shell.
type Options struct {
	Interactive bool
	OutputJSON  bool
	// Target is connected before running commands if not empty.
	Target   string
	DeviceID string
	Baud     int
	Timeout  time.Duration
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Options

	Shell *ishell.Shell
	Conn  Conn

	events atomic.Bool
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var commands = []*ishell.Cmd{
	&DiscoverCmd,
	&ConnectCmd,
	&DisconnectCmd,
	&EventsCmd,
	&PingCmd,
	&TimeCmd,
	&SetTimeCmd,
	&UptimeCmd,
	&PinCmd,
	&SendCmd,
}

// New creates a new shell.
func New(opts Options) *Shell {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	if opts.Baud == 0 {
		opts.Baud = serial.DefaultBaud
	}
	s := &Shell{Options: opts, Shell: ishell.New()}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Call sends a request and prints the reply.
func Call(c *ishell.Context, req *wire.Variant) error {
	s := ShellFrom(c)
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	reply, err := s.Conn.Call(ctx, req)
	if err != nil {
		c.Err(err)
		return err
	}
	if s.OutputJSON {
		out, err := msgs.MarshalJSON(reply)
		if err != nil {
			c.Err(err)
			return err
		}
		c.Println(string(out))
		return nil
	}
	c.Println(FormatReply(reply))
	return nil
}

// ShowEvents turns printing events on or off.
func (s *Shell) ShowEvents(on bool) {
	s.events.Store(on)
}

func (s *Shell) printEvent(evt *wire.Variant) {
	if !s.events.Load() {
		return
	}
	if s.OutputJSON {
		if out, err := msgs.MarshalJSON(evt); err == nil {
			s.Shell.Println(string(out))
		}
		return
	}
	s.Shell.Println(FormatEvent(evt))
}

// Discover lists devices announced on a broker.
func (s *Shell) Discover(brokerURL string) ([]mqtt.DeviceMeta, error) {
	q, err := mqtt.NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if err = q.Open(); err != nil {
		return nil, err
	}
	defer q.Close()
	return mqtt.Discover(context.Background(), q, mqtt.DefaultDiscoverTimeout)
}

// SelectDevice discovers devices on a broker and asks for a choice.
func (s *Shell) SelectDevice(brokerURL string) (string, error) {
	metas, err := s.Discover(brokerURL)
	if err != nil {
		return "", err
	}
	switch len(metas) {
	case 0:
		return "", fmt.Errorf("no device discovered")
	case 1:
		return metas[0].ID, nil
	}
	if !s.Interactive {
		return "", fmt.Errorf("more than 1 devices discovered in non-interactive mode")
	}
	items := make([]string, len(metas))
	for n, meta := range metas {
		items[n] = FormatMeta(meta)
	}
	index := s.Shell.MultiChoice(items, "Which one to connect?")
	if index < 0 {
		return "", fmt.Errorf("nothing selected")
	}
	return metas[index].ID, nil
}

// FormatMeta prints DeviceMeta into friendly string for display.
func FormatMeta(meta mqtt.DeviceMeta) string {
	str := meta.ID + ": " + meta.Device
	if meta.Firmware != "" {
		str += " firmware " + meta.Firmware
	}
	return str
}

// Connect connects the target, replacing the current connection.
func (s *Shell) Connect(target, id string) error {
	if IsBrokerURL(target) && id == "" {
		var err error
		if id, err = s.SelectDevice(target); err != nil {
			return err
		}
	}
	conn, err := Dial(target, id, s.Baud, s.printEvent)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conn.Name()))
	return nil
}

// Disconnect disconnects current device.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) error {
	defer s.Disconnect()
	if s.Target != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Target)
		}
		if err := s.Connect(s.Target, s.DeviceID); err != nil {
			return fmt.Errorf("connect %q failed: %w", s.Target, err)
		}
	}

	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}
