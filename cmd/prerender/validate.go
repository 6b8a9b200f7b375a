package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/prerender"
	"github.com/jpalmerr/prerender/config"
)

// validateCmd validates a config file without exporting.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a prerender configuration file without exporting.

This command parses the YAML, expands environment variables, and validates
all fields, including the static export options. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  prerender validate -c prerender.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// an empty bundle is enough to check every exporter option
	opts := append(config.BuildOptions(cfg), prerender.WithBundle(prerender.Exports{}))
	exp, err := prerender.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	se := cfg.Experimental.StaticExport
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Mode:          %s\n", cfg.Mode)
	fmt.Fprintf(out, "  Public dir:    %s\n", exp.PublicDir())
	fmt.Fprintf(out, "  Routes script: %s\n", exp.RoutesScriptPath())
	switch cfg.Bundle.Type {
	case config.BundleHTTP:
		fmt.Fprintf(out, "  Bundle:        %s (timeout %s)\n", cfg.Bundle.URL, cfg.Bundle.RequestTimeout())
	default:
		fmt.Fprintf(out, "  Bundle:        %s\n", cfg.Paths.ServerBundle)
	}
	fmt.Fprintf(out, "  Exports:       %s, %s\n", se.RoutesExport, se.RenderExport)
	fmt.Fprintf(out, "  Parallel:      %d\n", exp.Parallel())
	fmt.Fprintf(out, "  Inline script: %t\n", exp.ScriptInline())

	if cfg.Bundle.Type == config.BundleJS {
		if _, err := os.Stat(cfg.Paths.ServerBundle); err != nil {
			fmt.Fprintf(out, "\nWarning: %s does not exist yet, run build before export.\n", cfg.Paths.ServerBundle)
		}
	}

	return nil
}
