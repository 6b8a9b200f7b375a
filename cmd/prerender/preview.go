package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/prerender/internal/server"
)

// previewCmd serves the exported public directory.
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve the exported pages locally",
	Long: `Serve the exported public directory over HTTP.

Each route is served from its index.html, the way a static host would serve
the export. The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  prerender preview
  prerender preview -c prerender.yaml --addr 127.0.0.1:8080`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().String("addr", ":3000", "address to listen on")
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := os.Stat(cfg.Paths.Public); err != nil {
		return fmt.Errorf("nothing to preview, run export first: %w", err)
	}

	addr, _ := cmd.Flags().GetString("addr")

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg.Paths.Public, addr, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info("preview server started",
		"addr", srv.Addr(),
		"public_dir", cfg.Paths.Public,
	)

	<-ctx.Done()
	logger.Info("shutdown complete")
	return nil
}
