// Package commands implements the CLI commands for weave.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/weave/internal/app"
	"go.trai.ch/weave/internal/build"
	"go.trai.ch/weave/internal/engine/builder"
)

// CLI represents the command line interface for weave.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, opts app.Options) (*builder.Report, error)
	Dev(ctx context.Context, opts app.DevOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "weave",
		Short:         "An incremental static site builder",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	// Persistent flags go first so the version flag does not take the -v shorthand.
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the weave.yaml configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output and keep a debug log in .weave")
	rootCmd.PersistentFlags().Bool("trace", false, "Write build spans to the debug log")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newDevCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// options reads the persistent flags shared by every command.
func options(cmd *cobra.Command) app.Options {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	trace, _ := cmd.Flags().GetBool("trace")
	return app.Options{ConfigPath: configPath, Verbose: verbose, Trace: trace}
}
