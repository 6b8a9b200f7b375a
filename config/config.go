// Package config provides YAML configuration parsing for the prerender CLI.
//
// Example configuration:
//
//	mode: production
//	public_path: ${PUBLIC_PATH:-/}
//
//	paths:
//	  build: build
//	  server_bundle: build/static_export.js
//
//	bundle:
//	  type: js
//
//	experimental:
//	  static_export:
//	    parallel: 8
//	    script_inline: true
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/prerender"
)

// Bundle types.
const (
	BundleJS   = "js"
	BundleHTTP = "http"
)

// Modes accepted by the mode field.
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

const (
	defaultBuildDir      = "build"
	defaultPublicPath    = "${PUBLIC_PATH:-/}"
	defaultServerBundle  = "static_export.js"
	defaultBundleTimeout = 30 * time.Second
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Mode is exposed to the bundle as process.env.NODE_ENV.
	// Defaults to "production".
	Mode string `yaml:"mode"`

	// PublicPath prefixes the routes script URL. Defaults to $PUBLIC_PATH,
	// or "/" when unset.
	PublicPath string `yaml:"public_path"`

	Paths        PathsConfig        `yaml:"paths"`
	Bundle       BundleConfig       `yaml:"bundle"`
	Experimental ExperimentalConfig `yaml:"experimental"`
}

// PathsConfig locates the build output. Relative paths are resolved against
// the working directory.
type PathsConfig struct {
	// Build is the build directory. Defaults to "build".
	Build string `yaml:"build"`

	// Public is where pages are written. Defaults to <build>/public.
	Public string `yaml:"public"`

	// ServerBundle is the compiled export bundle, for bundle type js.
	// Defaults to <build>/static_export.js.
	ServerBundle string `yaml:"server_bundle"`

	// RoutesScript is where static_routes.js is written.
	// Defaults to <public>/static_routes.js.
	RoutesScript string `yaml:"routes_script"`
}

// BundleConfig selects where routes and renders come from.
type BundleConfig struct {
	// Type is "js" (load ServerBundle in-process) or "http" (call a running
	// render server at URL). Defaults to "js".
	Type string `yaml:"type"`

	// URL is the render server base URL, for type http.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Timeout bounds each request to the render server. Defaults to 30s
	// when unset; an explicit 0s leaves requests bounded only by the
	// export's context.
	Timeout *Duration `yaml:"timeout"`
}

// RequestTimeout returns the per-request timeout, or the default when
// Timeout is unset.
func (b BundleConfig) RequestTimeout() time.Duration {
	if b.Timeout == nil {
		return defaultBundleTimeout
	}
	return b.Timeout.Duration()
}

// ExperimentalConfig mirrors the experimental block of the build config.
type ExperimentalConfig struct {
	StaticExport StaticExportConfig `yaml:"static_export"`
}

// StaticExportConfig holds the export options. Zero values take the
// exporter's defaults.
type StaticExportConfig struct {
	RenderExport             string   `yaml:"render_export"`
	RoutesExport             string   `yaml:"routes_export"`
	Parallel                 int      `yaml:"parallel"`
	ScriptReplacement        string   `yaml:"script_replacement"`
	ScriptInline             bool     `yaml:"script_inline"`
	WindowRoutesVariable     string   `yaml:"window_routes_variable"`
	WindowRoutesDataVariable string   `yaml:"window_routes_data_variable"`
	RenderTimeout            Duration `yaml:"render_timeout"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadEnv loads variables from the given .env files into the process
// environment. Variables already set are kept. With no files, ".env" is
// loaded if it exists.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return Parse(nil)
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates it.
//
// Environment variables are expanded in mode, public_path, paths and
// bundle.url.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeProduction
	}
	if c.PublicPath == "" {
		c.PublicPath = defaultPublicPath
	}
	if c.Bundle.Type == "" {
		c.Bundle.Type = BundleJS
	}
	if c.Bundle.Timeout == nil {
		d := Duration(defaultBundleTimeout)
		c.Bundle.Timeout = &d
	}

	se := &c.Experimental.StaticExport
	if se.RenderExport == "" {
		se.RenderExport = prerender.DefaultRenderExport
	}
	if se.RoutesExport == "" {
		se.RoutesExport = prerender.DefaultRoutesExport
	}
	if se.WindowRoutesVariable == "" {
		se.WindowRoutesVariable = prerender.DefaultRoutesVariable
	}
	if se.WindowRoutesDataVariable == "" {
		se.WindowRoutesDataVariable = prerender.DefaultDataRoutesVariable
	}
}

// expandAndValidate expands environment variables, derives dependent paths
// and validates the config.
func (c *Config) expandAndValidate() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"mode", &c.Mode},
		{"public_path", &c.PublicPath},
		{"paths.build", &c.Paths.Build},
		{"paths.public", &c.Paths.Public},
		{"paths.server_bundle", &c.Paths.ServerBundle},
		{"paths.routes_script", &c.Paths.RoutesScript},
		{"bundle.url", &c.Bundle.URL},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}

	// derived after expansion so ${VAR} in build carries through
	if c.Paths.Build == "" {
		c.Paths.Build = defaultBuildDir
	}
	if c.Paths.Public == "" {
		c.Paths.Public = filepath.Join(c.Paths.Build, "public")
	}
	if c.Paths.ServerBundle == "" {
		c.Paths.ServerBundle = filepath.Join(c.Paths.Build, defaultServerBundle)
	}
	if c.Paths.RoutesScript == "" {
		c.Paths.RoutesScript = filepath.Join(c.Paths.Public, prerender.RoutesScriptName)
	}

	if c.Mode != ModeProduction && c.Mode != ModeDevelopment {
		return fmt.Errorf("mode must be %s or %s, got %q", ModeProduction, ModeDevelopment, c.Mode)
	}

	switch c.Bundle.Type {
	case BundleJS:
	case BundleHTTP:
		if c.Bundle.URL == "" {
			return fmt.Errorf("bundle: url is required for type %s", BundleHTTP)
		}
		parsedURL, err := url.Parse(c.Bundle.URL)
		if err != nil {
			return fmt.Errorf("bundle: invalid url: %w", err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("bundle: url scheme must be http or https, got %q", parsedURL.Scheme)
		}
	default:
		return fmt.Errorf("bundle: type must be %s or %s, got %q", BundleJS, BundleHTTP, c.Bundle.Type)
	}
	if c.Bundle.RequestTimeout() < 0 {
		return fmt.Errorf("bundle: timeout cannot be negative, got %s", c.Bundle.RequestTimeout())
	}

	se := c.Experimental.StaticExport
	if se.Parallel < 0 {
		return fmt.Errorf("experimental.static_export: parallel cannot be negative, got %d", se.Parallel)
	}
	if se.ScriptReplacement != "" {
		if _, err := regexp.Compile(se.ScriptReplacement); err != nil {
			return fmt.Errorf("experimental.static_export: invalid script_replacement: %w", err)
		}
	}
	if se.RenderTimeout.Duration() < 0 {
		return fmt.Errorf("experimental.static_export: render_timeout cannot be negative, got %s",
			se.RenderTimeout.Duration())
	}

	return nil
}
