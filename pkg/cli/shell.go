package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/robotalks/avr.go/pkg/cli/sh"
	"github.com/robotalks/avr.go/pkg/link/serial"
)

func newShellCmd() *cobra.Command {
	var (
		opts     sh.Options
		evalOnly bool
	)
	cmd := &cobra.Command{
		Use:   "shell [COMMAND ARGS...]",
		Short: "Interactive shell, or run a single shell command",
		Example: `  avrctl shell -t /dev/ttyUSB0
  avrctl shell -t mqtt://localhost:1883/avr --id bench time
  avrctl shell -t sim:// --json pin 13 on`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Interactive = !evalOnly
			return sh.New(opts).Run(args...)
		},
	}
	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Device or bridge to connect")
	cmd.Flags().StringVar(&opts.DeviceID, "id", "", "Device ID on the MQTT broker")
	cmd.Flags().IntVarP(&opts.Baud, "baud", "b", serial.DefaultBaud, "Serial baud rate")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", time.Second, "Request timeout")
	cmd.Flags().BoolVarP(&evalOnly, "eval", "e", false, "Evaluation only, no interactive shell")
	cmd.Flags().BoolVar(&opts.OutputJSON, "json", false, "Print output in JSON")
	return cmd
}
