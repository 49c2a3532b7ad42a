package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tilix4/kdenlive/internal/app"
)

func newRunCmd(g *globalOptions) *cobra.Command {
	var dumpHistory bool

	cmd := &cobra.Command{
		Use:   "run <script.lua>",
		Short: "Run an edit script",
		Long:  "Runs a Lua edit script against an empty timeline. The script reaches the timeline through require(\"timeline\").",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.Application) error {
				if err := a.RunFile(ctx, args[0]); err != nil {
					return err
				}
				if dumpHistory {
					return a.DumpHistory(cmd.OutOrStdout())
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dumpHistory, "dump-history", false, "print the undo history as YAML after the script")
	return cmd
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <script.lua>",
		Short: "Run an edit script and audit the timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.Application) error {
				if err := a.RunFile(ctx, args[0]); err != nil {
					return err
				}
				if err := a.Check(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "timeline is consistent")
				return nil
			})
		},
	}
}

// withApp starts an application, runs fn with a context cancelled on SIGINT
// or SIGTERM, and shuts the application down.
func withApp(cmd *cobra.Command, g *globalOptions, fn func(context.Context, *app.Application) error) error {
	a, err := app.New(g.appOptions(cmd))
	if err != nil {
		return err
	}
	defer a.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}
