package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/prerender"
	"github.com/jpalmerr/prerender/bundle/httpbundle"
)

func main() {
	// start mock render server (see render_server.go)
	go StartRenderServer(":9999")
	time.Sleep(100 * time.Millisecond)

	bundle, err := httpbundle.New("http://localhost:9999", httpbundle.WithTimeout(5*time.Second))
	if err != nil {
		slog.Error("failed to create bundle", "error", err)
		os.Exit(1)
	}
	defer bundle.Close()

	publicDir := "example/build/public"

	exp, err := prerender.New(
		prerender.WithBundle(bundle),
		prerender.WithPublicDir(publicDir),
		prerender.WithParallel(3),
		prerender.WithRenderTimeout(2*time.Second),
		prerender.WithOutcomeCallback(func(o prerender.RenderOutcome) {
			fmt.Printf("  exported /%s (data: %t)\n", o.Pathname, o.HasData)
		}),
	)
	if err != nil {
		slog.Error("failed to create exporter", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Exporting from mock render server")
	result, err := exp.Export(ctx)
	if err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d routes, %d with data, written to %s\n",
		len(result.Routes), len(result.DataRoutes), publicDir)
	fmt.Println("Preview with: go run ./cmd/prerender preview -c example/prerender.yaml")
}
