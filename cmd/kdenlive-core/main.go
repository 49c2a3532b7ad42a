// Package main is the entry point for kdenlive-core, which applies Lua edit
// scripts to a timeline and audits the result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tilix4/kdenlive/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	assetDirs  []string
}

func (g *globalOptions) appOptions(cmd *cobra.Command) app.Options {
	return app.Options{
		ConfigPath:   g.configPath,
		AssetDirs:    g.assetDirs,
		LogLevel:     g.logLevel,
		LogOutput:    cmd.ErrOrStderr(),
		ScriptOutput: cmd.OutOrStdout(),
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "kdenlive-core",
		Short:         "Scriptable timeline editing core",
		Long:          "kdenlive-core runs Lua edit scripts against a timeline of clips, compositions and effect stacks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "path to configuration file")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringSliceVar(&g.assetDirs, "asset-dir", nil, "additional asset definition directory")

	cmd.AddCommand(newRunCmd(g))
	cmd.AddCommand(newCheckCmd(g))
	cmd.AddCommand(newAssetsCmd(g))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kdenlive-core %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
