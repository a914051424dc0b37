package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/robotalks/avr.go/pkg/link/mqtt"
)

func newDiscoverCmd() *cobra.Command {
	var (
		timeout    time.Duration
		outputJSON bool
	)
	cmd := &cobra.Command{
		Use:   "discover MQTT-URL",
		Short: "List devices announced by bridges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := mqtt.NewQueueFromURL(args[0])
			if err != nil {
				return err
			}
			if err = q.Open(); err != nil {
				return err
			}
			defer q.Close()
			metas, err := mqtt.Discover(context.Background(), q, timeout)
			if err != nil {
				return err
			}
			if outputJSON {
				if metas == nil {
					metas = []mqtt.DeviceMeta{}
				}
				return printJSON(cmd.OutOrStdout(), metas)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDEVICE\tFIRMWARE\tSINCE")
			for _, meta := range metas {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", meta.ID, meta.Device, meta.Firmware,
					meta.Since.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", mqtt.DefaultDiscoverTimeout, "Time to wait for announcements")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print output in JSON")
	return cmd
}
