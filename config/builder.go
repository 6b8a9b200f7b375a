package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpalmerr/prerender"
	"github.com/jpalmerr/prerender/bundle/httpbundle"
	"github.com/jpalmerr/prerender/bundle/jsbundle"
)

// Bundle is a [prerender.Bundle] holding resources that must be released.
type Bundle interface {
	prerender.Bundle
	io.Closer
}

// BuildOptions converts parsed configuration into exporter options.
// The bundle and logger are supplied by the caller.
func BuildOptions(cfg *Config) []prerender.Option {
	se := cfg.Experimental.StaticExport

	opts := []prerender.Option{
		prerender.WithPublicDir(cfg.Paths.Public),
		prerender.WithRoutesScriptPath(cfg.Paths.RoutesScript),
		prerender.WithPublicPath(cfg.PublicPath),
		prerender.WithRenderExport(se.RenderExport),
		prerender.WithRoutesExport(se.RoutesExport),
		prerender.WithScriptInline(se.ScriptInline),
		prerender.WithWindowVariables(se.WindowRoutesVariable, se.WindowRoutesDataVariable),
		prerender.WithRenderTimeout(se.RenderTimeout.Duration()),
	}

	if se.Parallel != 0 {
		opts = append(opts, prerender.WithParallel(se.Parallel))
	}
	if se.ScriptReplacement != "" {
		opts = append(opts, prerender.WithScriptReplacement(se.ScriptReplacement))
	}

	return opts
}

// OpenBundle opens the bundle described by cfg. The caller must Close it.
func OpenBundle(ctx context.Context, cfg *Config, logger *slog.Logger) (Bundle, error) {
	switch cfg.Bundle.Type {
	case BundleJS:
		b, err := jsbundle.Open(ctx, cfg.Paths.ServerBundle,
			jsbundle.WithMode(cfg.Mode),
			jsbundle.WithEnv(map[string]string{"PUBLIC_PATH": cfg.PublicPath}),
			jsbundle.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BundleHTTP:
		b, err := httpbundle.New(cfg.Bundle.URL,
			httpbundle.WithTimeout(cfg.Bundle.RequestTimeout()),
			httpbundle.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown bundle type %q", cfg.Bundle.Type)
	}
}
