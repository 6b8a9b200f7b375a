package prerender

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// exportConfig holds mutable state during Exporter construction.
type exportConfig struct {
	bundle             Bundle
	publicDir          string
	routesScriptPath   string
	publicPath         string
	renderExport       string
	routesExport       string
	parallel           int
	marker             *regexp.Regexp
	scriptInline       bool
	routesVariable     string
	dataRoutesVariable string
	renderTimeout      time.Duration
	logger             *slog.Logger
	outcomeCallbacks   []func(RenderOutcome)
}

// Option is a function that configures an [Exporter] during construction.
//
// Options return an error if validation fails, which [New] reports.
type Option func(*exportConfig) error

// WithBundle sets the compiled server bundle to export. Required.
func WithBundle(b Bundle) Option {
	return func(cfg *exportConfig) error {
		if b == nil {
			return errors.New("bundle cannot be nil")
		}
		cfg.bundle = b
		return nil
	}
}

// WithPublicDir sets the directory pages are written into. Required.
// Each route is written to <dir>/<route>/index.html.
func WithPublicDir(dir string) Option {
	return func(cfg *exportConfig) error {
		if dir == "" {
			return errors.New("public dir cannot be empty")
		}
		cfg.publicDir = dir
		return nil
	}
}

// WithRoutesScriptPath sets where the external routes script is written.
// Defaults to <public dir>/static_routes.js.
func WithRoutesScriptPath(path string) Option {
	return func(cfg *exportConfig) error {
		cfg.routesScriptPath = path
		return nil
	}
}

// WithPublicPath sets the URL prefix used in the external script tag.
// Defaults to "/".
func WithPublicPath(prefix string) Option {
	return func(cfg *exportConfig) error {
		cfg.publicPath = prefix
		return nil
	}
}

// WithRenderExport sets the name of the bundle's render export.
// Defaults to "render".
func WithRenderExport(name string) Option {
	return func(cfg *exportConfig) error {
		if name == "" {
			return errors.New("render export name cannot be empty")
		}
		cfg.renderExport = name
		return nil
	}
}

// WithRoutesExport sets the name of the bundle's routes export.
// Defaults to "routes".
func WithRoutesExport(name string) Option {
	return func(cfg *exportConfig) error {
		if name == "" {
			return errors.New("routes export name cannot be empty")
		}
		cfg.routesExport = name
		return nil
	}
}

// WithParallel sets the maximum number of renders, and later of page
// patches, in flight at once. Defaults to 5.
//
// Returns an error if n is zero or negative.
func WithParallel(n int) Option {
	return func(cfg *exportConfig) error {
		if n <= 0 {
			return errors.New("parallel must be positive")
		}
		cfg.parallel = n
		return nil
	}
}

// WithScriptReplacement sets the regular expression locating the marker that
// is replaced by the routes script tag. The first match in each page is
// replaced. Defaults to a literal <!-- razzle_static_js --> comment.
//
// Returns an error if pattern does not compile or is empty.
func WithScriptReplacement(pattern string) Option {
	return func(cfg *exportConfig) error {
		if pattern == "" {
			return errors.New("script replacement pattern cannot be empty")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid script replacement pattern: %w", err)
		}
		cfg.marker = re
		return nil
	}
}

// WithScriptInline embeds the routes script in every page instead of writing
// a separate static_routes.js.
func WithScriptInline(inline bool) Option {
	return func(cfg *exportConfig) error {
		cfg.scriptInline = inline
		return nil
	}
}

// WithWindowVariables sets the global names the routes script assigns.
// Defaults to RAZZLE_STATIC_ROUTES and RAZZLE_STATIC_DATA_ROUTES.
//
// Returns an error if either name is not a valid JavaScript identifier.
func WithWindowVariables(routesVar, dataRoutesVar string) Option {
	return func(cfg *exportConfig) error {
		for _, name := range []string{routesVar, dataRoutesVar} {
			if !jsIdentifier.MatchString(name) {
				return fmt.Errorf("window variable %q is not a valid identifier", name)
			}
		}
		cfg.routesVariable = routesVar
		cfg.dataRoutesVariable = dataRoutesVar
		return nil
	}
}

// WithRenderTimeout bounds how long a single route may take to complete.
// A route that times out is logged and recorded with [ErrRenderTimeout];
// the export continues. Zero, the default, means no timeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(cfg *exportConfig) error {
		if d < 0 {
			return errors.New("render timeout cannot be negative")
		}
		cfg.renderTimeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. Defaults to [slog.Default].
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *exportConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithOutcomeCallback registers a function called after each route's page
// has been written. Callbacks run on render workers, so they may be called
// concurrently and must not block. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithOutcomeCallback(cb func(RenderOutcome)) Option {
	return func(cfg *exportConfig) error {
		if cb == nil {
			return nil
		}
		cfg.outcomeCallbacks = append(cfg.outcomeCallbacks, cb)
		return nil
	}
}
