package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/weave/internal/app"
)

func (c *CLI) newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Build, serve and rebuild on change with live updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			return c.app.Dev(cmd.Context(), app.DevOptions{
				Options: options(cmd),
				Addr:    addr,
			})
		},
	}
	cmd.Flags().StringP("addr", "a", "", "Address to serve on (default from dev.addr)")
	return cmd
}
