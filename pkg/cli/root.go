// Package cli implements the avrctl commands.
package cli

import (
	"flag"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the avrctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "avrctl",
		Short:        "Talk to the AVR firmware, directly or through a bridge",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// glog checks the Go flag set has been parsed.
			return flag.CommandLine.Parse(nil)
		},
	}
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	root.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newBridgeCmd(),
		newShellCmd(),
		newDiscoverCmd(),
	)
	return root
}

// Main is a helper to provide a single call in main.
func Main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
