package httpbundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpalmerr/prerender"
	"github.com/jpalmerr/prerender/internal/fetch"
)

// DefaultTimeout bounds each request to the render server.
const DefaultTimeout = 30 * time.Second

// Bundle talks to a render server over HTTP.
//
// Bundle is safe for concurrent use.
type Bundle struct {
	baseURL string
	timeout time.Duration
	client  *fetch.Client
	logger  *slog.Logger
}

// Option configures a [Bundle] in [New].
type Option func(*Bundle)

// WithTimeout sets the per-request timeout. Zero means requests are bounded
// only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(b *Bundle) {
		if d >= 0 {
			b.timeout = d
		}
	}
}

// WithLogger sets a custom logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundle) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a Bundle for the render server at baseURL.
func New(baseURL string, opts ...Option) (*Bundle, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid render server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("render server URL must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("render server URL has no host: %q", baseURL)
	}

	b := &Bundle{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
		client:  fetch.NewClient(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Close releases idle connections.
func (b *Bundle) Close() error {
	b.client.Close()
	return nil
}

func (b *Bundle) endpoint(name string) string {
	return b.baseURL + "/" + url.PathEscape(name)
}

// RoutesProvider implements [prerender.Bundle]. The routes are fetched when
// the provider is invoked.
func (b *Bundle) RoutesProvider(name string) (prerender.RoutesProvider, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty routes export name", prerender.ErrExportNotFound)
	}
	return prerender.RoutesFunc(func(ctx context.Context) ([]string, error) {
		return b.routes(ctx, name)
	}), nil
}

func (b *Bundle) routes(ctx context.Context, name string) ([]string, error) {
	resp := b.client.Fetch(ctx, http.MethodGet, b.endpoint(name), nil, b.timeout)
	if err := checkResponse(resp, name); err != nil {
		return nil, err
	}

	var routes []string
	if err := json.Unmarshal(resp.Body, &routes); err != nil {
		return nil, fmt.Errorf("routes export %q must be a JSON list of strings: %w", name, err)
	}

	b.logger.Debug("routes fetched", "count", len(routes), "latency", resp.Latency)
	return routes, nil
}

// RenderFunc implements [prerender.Bundle].
func (b *Bundle) RenderFunc(name string) (prerender.RenderFunc, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty render export name", prerender.ErrExportNotFound)
	}
	return func(ctx context.Context, req *prerender.Request, res *prerender.Response) error {
		page, err := b.render(ctx, name, req.URL)
		if err != nil {
			return err
		}
		res.JSON(page)
		return nil
	}, nil
}

// renderResponse is the body returned by the render endpoint.
type renderResponse struct {
	HTML  *string         `json:"html"`
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

func (b *Bundle) render(ctx context.Context, name, route string) (prerender.Page, error) {
	body, err := json.Marshal(map[string]string{"url": route})
	if err != nil {
		return prerender.Page{}, err
	}

	resp := b.client.Fetch(ctx, http.MethodPost, b.endpoint(name), body, b.timeout)
	if resp.Error != nil {
		return prerender.Page{}, resp.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		return prerender.Page{}, fmt.Errorf("%w: render server has no %q endpoint", prerender.ErrExportNotFound, name)
	}

	var result renderResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil || result.HTML == nil {
		// a server error page rather than a rendered one
		if resp.StatusCode >= 400 {
			return prerender.Page{}, fmt.Errorf("render server returned status %d", resp.StatusCode)
		}
		if err == nil {
			err = errors.New("missing html field")
		}
		return prerender.Page{}, fmt.Errorf("invalid render response: %w", err)
	}

	b.logger.Debug("route rendered", "route", route, "status", resp.StatusCode, "latency", resp.Latency)

	page := prerender.Page{HTML: *result.HTML, Err: pageError(result.Error)}
	if len(result.Data) > 0 {
		page.Data = result.Data
	}
	return page, nil
}

// pageError decodes the error field, which may be a string or an object
// with a message. Falsy values mean no error.
func pageError(raw json.RawMessage) error {
	switch s := strings.TrimSpace(string(raw)); s {
	case "", "null", "false", `""`, "0":
		return nil
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return errors.New(msg)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return errors.New(obj.Message)
	}
	return errors.New(string(raw))
}

func checkResponse(resp fetch.Response, name string) error {
	switch {
	case resp.Error != nil:
		return resp.Error
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: render server has no %q endpoint", prerender.ErrExportNotFound, name)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("render server returned status %d for %q", resp.StatusCode, name)
	}
	return nil
}

// compile-time check
var _ prerender.Bundle = (*Bundle)(nil)
