package main

import (
	"jig/internal/version"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the "jig version" subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jig version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printf(cmd.OutOrStdout(), "jig %s\n", version.String())
			return nil
		},
	}
}
