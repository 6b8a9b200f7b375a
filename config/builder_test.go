package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpalmerr/prerender"
	"github.com/jpalmerr/prerender/bundle/httpbundle"
	"github.com/jpalmerr/prerender/bundle/jsbundle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildOptions_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	exp, err := prerender.New(append(BuildOptions(cfg), prerender.WithBundle(prerender.Exports{}))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if exp.PublicDir() != cfg.Paths.Public {
		t.Errorf("PublicDir() = %q, want %q", exp.PublicDir(), cfg.Paths.Public)
	}
	if exp.RoutesScriptPath() != cfg.Paths.RoutesScript {
		t.Errorf("RoutesScriptPath() = %q, want %q", exp.RoutesScriptPath(), cfg.Paths.RoutesScript)
	}
	if exp.Parallel() != 5 {
		t.Errorf("Parallel() = %d, want exporter default 5", exp.Parallel())
	}
	if exp.ScriptInline() {
		t.Error("ScriptInline() = true, want false")
	}
}

func TestBuildOptions_Custom(t *testing.T) {
	yaml := `
paths:
  public: www
experimental:
  static_export:
    parallel: 3
    script_inline: true
    script_replacement: "<!-- routes -->"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	exp, err := prerender.New(append(BuildOptions(cfg), prerender.WithBundle(prerender.Exports{}))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if exp.PublicDir() != "www" {
		t.Errorf("PublicDir() = %q, want www", exp.PublicDir())
	}
	if exp.Parallel() != 3 {
		t.Errorf("Parallel() = %d, want 3", exp.Parallel())
	}
	if !exp.ScriptInline() {
		t.Error("ScriptInline() = false, want true")
	}
}

func TestBuildOptions_InvalidWindowVariable(t *testing.T) {
	cfg, err := Parse([]byte("experimental: {static_export: {window_routes_variable: 'not-valid'}}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = prerender.New(append(BuildOptions(cfg), prerender.WithBundle(prerender.Exports{}))...)
	if err == nil {
		t.Error("New() expected error for invalid window variable, got nil")
	}
}

func TestOpenBundle_JS(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "static_export.js")
	if err := os.WriteFile(bundlePath, []byte(`exports.routes = [process.env.NODE_ENV];`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Parse([]byte("mode: development\npaths: {server_bundle: " + bundlePath + "}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	b, err := OpenBundle(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("OpenBundle() error = %v", err)
	}
	defer b.Close()

	if _, ok := b.(*jsbundle.Bundle); !ok {
		t.Fatalf("OpenBundle() = %T, want *jsbundle.Bundle", b)
	}

	provider, err := b.RoutesProvider("routes")
	if err != nil {
		t.Fatalf("RoutesProvider() error = %v", err)
	}
	routes, err := provider.Routes(context.Background())
	if err != nil {
		t.Fatalf("Routes() error = %v", err)
	}
	if len(routes) != 1 || routes[0] != "development" {
		t.Errorf("routes = %v, want [development] from mode", routes)
	}
}

func TestOpenBundle_JSMissing(t *testing.T) {
	cfg, err := Parse([]byte("paths: {build: " + t.TempDir() + "}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = OpenBundle(context.Background(), cfg, testLogger())
	if !errors.Is(err, prerender.ErrBundleNotFound) {
		t.Errorf("OpenBundle() error = %v, want ErrBundleNotFound", err)
	}
}

func TestOpenBundle_HTTP(t *testing.T) {
	cfg, err := Parse([]byte("bundle: {type: http, url: 'http://localhost:3001'}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	b, err := OpenBundle(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("OpenBundle() error = %v", err)
	}
	defer b.Close()

	if _, ok := b.(*httpbundle.Bundle); !ok {
		t.Errorf("OpenBundle() = %T, want *httpbundle.Bundle", b)
	}
}
