package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/prerender"
	"github.com/jpalmerr/prerender/config"
	"github.com/jpalmerr/prerender/internal/sizes"
)

// exportCmd renders every route to static HTML.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export static pages",
	Long: `Render every route of the server bundle to static HTML.

The export will:
  - Load the bundle named by paths.server_bundle (or call bundle.url)
  - Render each route, at most static_export.parallel at a time
  - Write <public>/<route>/index.html and page-data.json for routes with data
  - Write static_routes.js, or inline it into every page with script_inline

Pages whose render reports an error are still written and logged. A missing
bundle or export, or a render that throws, fails the export with exit code 1.

Example:
  prerender export
  prerender export -c prerender.yaml --verbose`,
	RunE:          runExport,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	err := export(cmd, out)
	if err != nil {
		color.New(color.FgRed).Fprintln(out, "Failed to export static.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, err)
		fmt.Fprintln(out)
	}
	return err
}

func export(cmd *cobra.Command, out io.Writer) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bundle, err := config.OpenBundle(ctx, cfg, logger)
	if errors.Is(err, prerender.ErrBundleNotFound) {
		return &missingBundleError{path: cfg.Paths.ServerBundle, err: err}
	}
	if err != nil {
		return err
	}
	defer bundle.Close()

	logger.Info("bundle opened",
		"type", cfg.Bundle.Type,
		"mode", cfg.Mode,
	)

	opts := append(config.BuildOptions(cfg),
		prerender.WithBundle(bundle),
		prerender.WithLogger(logger),
	)
	exp, err := prerender.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid export options: %w", err)
	}

	result, err := exp.Export(ctx)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintln(out, "Exported static successfully.")
	fmt.Fprintln(out)

	if failed := result.Failed(); len(failed) > 0 {
		warn := color.New(color.FgYellow)
		warn.Fprintf(out, "%d of %d pages reported errors:\n", len(failed), len(result.Outcomes))
		for _, o := range failed {
			fmt.Fprintf(out, "  /%s: %v\n", o.Pathname, o.Err)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "File sizes after gzip:")
	fmt.Fprintln(out)
	sizes.Print(out, result.Stats, result.Previous, cfg.Paths.Public)
	fmt.Fprintln(out)

	return nil
}

// missingBundleError reports a missing server bundle the way a build tool
// user expects to read it.
type missingBundleError struct {
	path string
	err  error
}

func (e *missingBundleError) Error() string {
	return fmt.Sprintf("No %s found in %s, run build before export.",
		filepath.Base(e.path), filepath.Dir(e.path))
}

func (e *missingBundleError) Unwrap() error {
	return e.err
}
