package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/cloudtracker/internal/config"
)

// env carries the loaded configuration to subcommands.
type env struct {
	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "cloudtracker",
		Short:         "Identify and collect clouds from sky photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		serveCommand(e),
		captureCommand(e),
		listCommand(e),
		showCommand(e),
		deleteCommand(e),
		seedCommand(e),
	)
	return root
}
