package sh

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/avr.go/pkg/l0/msgs"
	"github.com/robotalks/avr.go/pkg/link/mqtt"
)

var (
	// DiscoverCmd lists devices announced on a broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "MQTT-URL",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("broker URL expected"))
				return
			}
			s := ShellFrom(c)
			metas, err := s.Discover(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(metas) == 0 {
					// in case metas is nil, make it empty slice.
					metas = []mqtt.DeviceMeta{}
				}
				out, err := json.Marshal(metas)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(metas) == 0 {
				c.Println("No devices found")
				return
			}
			for _, meta := range metas {
				c.Println(FormatMeta(meta))
			}
		},
	}

	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "DEV | tcp://HOST:PORT | sim:// | ws://HOST:PORT/PATH | mqtt://HOST:PORT/PREFIX [ID]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 || len(c.Args) > 2 {
				c.Err(fmt.Errorf("target expected"))
				return
			}
			var id string
			if len(c.Args) > 1 {
				id = c.Args[1]
			}
			if err := ShellFrom(c).Connect(c.Args[0], id); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// EventsCmd toggles printing events of a directly attached device.
	EventsCmd = ishell.Cmd{
		Name: "events",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 0 {
				c.Println(onOff(s.events.Load()))
				return
			}
			switch strings.ToLower(c.Args[0]) {
			case "on":
				s.ShowEvents(true)
			case "off":
				s.ShowEvents(false)
			default:
				c.Err(fmt.Errorf("on or off expected"))
			}
		},
	}

	// PingCmd checks the device is alive and shows the firmware version.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			Call(c, msgs.NewRequest(msgs.Ping{}))
		}),
	}

	// TimeCmd shows the RTC time.
	TimeCmd = ishell.Cmd{
		Name: "time",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			Call(c, msgs.NewRequest(msgs.GetTime{}))
		}),
	}

	// SetTimeCmd adjusts the RTC.
	SetTimeCmd = ishell.Cmd{
		Name: "settime",
		Help: "[RFC3339|now]",
		Func: MustBeConnected(func(c *ishell.Context) {
			t, err := ParseTime(c.Args, time.Now)
			if err != nil {
				c.Err(err)
				return
			}
			Call(c, msgs.NewRequest(msgs.SetTime{Time: t}))
		}),
	}

	// UptimeCmd shows the time since the firmware started.
	UptimeCmd = ishell.Cmd{
		Name: "uptime",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			Call(c, msgs.NewRequest(msgs.GetUptime{}))
		}),
	}

	// PinCmd sets a digital output.
	PinCmd = ishell.Cmd{
		Name: "pin",
		Help: "N on|off",
		Func: MustBeConnected(func(c *ishell.Context) {
			m, err := ParsePin(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			Call(c, msgs.NewRequest(m))
		}),
	}

	// SendCmd sends any request by name, e.g. send SetPin {"Pin":3,"High":true}.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "REQUEST [JSON]",
		Completer: func([]string) []string {
			return msgs.Names(msgs.Requests)
		},
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("request name expected, one of %s",
					strings.Join(msgs.Names(msgs.Requests), ", ")))
				return
			}
			req, err := msgs.ParseByName(msgs.Requests, c.Args[0], strings.Join(c.Args[1:], " "))
			if err != nil {
				c.Err(err)
				return
			}
			Call(c, req)
		}),
	}
)
