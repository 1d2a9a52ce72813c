package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd wires the subcommands. With no subcommand the bot runs.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "upbot",
		Short: "Website availability bot",
		Long: `upbot probes one URL on a fixed interval and posts a status card to a
chat channel and a direct message whenever the site changes state or
stays down past the failure threshold.

Configuration comes from the environment, an optional .env file and an
optional YAML file named by CONFIG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newPreflightCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newVersionCmd())
	return root
}
