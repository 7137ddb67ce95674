package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/weave/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			return c.app.Clean(cmd.Context(), app.CleanOptions{
				Options: options(cmd),
				Cache:   cache,
			})
		},
	}
	cmd.Flags().Bool("cache", false, "Also remove the remote fetch cache")
	return cmd
}
