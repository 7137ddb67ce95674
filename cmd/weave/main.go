// Package main is the entry point for the weave site builder.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/weave/cmd/weave/commands"
	"go.trai.ch/weave/internal/app"
	_ "go.trai.ch/weave/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, func(ctx context.Context) (*app.Components, error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := provider(ctx)
	if err != nil {
		// The logger is not available yet.
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	for _, opt := range opts {
		opt(components.App)
	}

	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return 1
	}
	return 0
}
