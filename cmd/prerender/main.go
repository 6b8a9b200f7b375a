// Package main is the entry point for the prerender CLI.
//
// prerender renders every route of a compiled server bundle to static HTML
// and writes the client routes script next to it.
//
// Usage:
//
//	prerender export -c prerender.yaml   # Export static pages
//	prerender validate -c prerender.yaml # Validate configuration
//	prerender preview -c prerender.yaml  # Serve the exported pages locally
//	prerender version                    # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/prerender/config"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "prerender",
	Short: "Export a server-rendered build as static HTML",
	Long: `prerender exports a server-rendered build as static pages.

It loads the compiled export bundle, renders every route the bundle lists,
writes <public>/<route>/index.html (and page-data.json for routes with data)
and injects a script naming every exported route.

Quick start:
  1. Build your app so build/static_export.js exists
  2. Run: prerender export
  3. Check the result: prerender preview

Example config:
  mode: production
  paths:
    build: build
  experimental:
    static_export:
      parallel: 8`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this prerender binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "prerender %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "path to config file (defaults apply when omitted)")
	flags.StringSlice("env-file", nil, "env files to load before reading config (default .env if present)")
	flags.String("log-format", "json", "log format: json or text")
	flags.BoolP("verbose", "v", false, "log per-route progress")
}

// newLogger creates a logger for CLI use, writing to stderr.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	format, _ := cmd.Flags().GetString("log-format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json or text)", format)
	}
}

// loadConfig loads env files and the config file named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return config.Default()
	}
	return config.Load(configFile)
}
