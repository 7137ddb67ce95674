package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the site into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := c.app.Build(cmd.Context(), options(cmd))
			return err
		},
	}
}
