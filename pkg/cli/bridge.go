package cli

import (
	"github.com/spf13/cobra"

	"github.com/robotalks/avr.go/pkg/bridge"
	fx "github.com/robotalks/avr.go/pkg/framework"
)

func newBridgeCmd() *cobra.Command {
	conf := bridge.NewConfig()
	var configFile string
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Serve a device over MQTT and websocket",
		Long: `Serve a device over MQTT and websocket.

Options are read from AVR_DEVICE, AVR_BAUD, AVR_ID, AVR_MQTT_URL and
AVR_WS_ADDR, then the config file, then the flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				fileConf := bridge.NewConfig()
				if err := fileConf.LoadFile(configFile); err != nil {
					return err
				}
				if err := fileConf.Overlay(cmd.Flags()); err != nil {
					return err
				}
				conf = fileConf
			}
			b, err := bridge.New(conf)
			if err != nil {
				return err
			}
			return fx.NewRunner().HandleSignals().Go(fx.NamedRun("bridge", b)).Wait()
		},
	}
	conf.SetupFlags(cmd.Flags())
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	return cmd
}
