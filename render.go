package prerender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Default export names looked up on a [Bundle].
const (
	DefaultRenderExport = "render"
	DefaultRoutesExport = "routes"
)

var (
	// ErrBundleNotFound is returned when the compiled server bundle does not
	// exist. Run the build before exporting.
	ErrBundleNotFound = errors.New("server bundle not found")

	// ErrExportNotFound is returned when a bundle has no export with the
	// requested name, or the export has the wrong shape.
	ErrExportNotFound = errors.New("export not found")

	// ErrRenderTimeout is recorded on an outcome whose render did not
	// complete within the configured render timeout.
	ErrRenderTimeout = errors.New("render timed out")
)

// Request is the minimal request handed to a render callback.
type Request struct {
	// URL is the normalized route being rendered.
	URL string
}

// Page is what a render callback hands to [Response.JSON].
type Page struct {
	// HTML is the rendered document.
	HTML string

	// Data is the page's data payload, written to page-data.json when
	// present. A json.RawMessage is written as-is.
	Data any

	// Err reports a problem rendering this page. It is logged, but the page
	// is still written and the export carries on.
	Err error
}

// Response collects the single [Page] produced by a render callback.
//
// Only the first call to [Response.JSON] counts. Response is safe to
// complete from any goroutine.
type Response struct {
	once  sync.Once
	done  chan struct{}
	page  Page
	calls atomic.Int32
}

// NewResponse returns a Response waiting for completion.
func NewResponse() *Response {
	return &Response{done: make(chan struct{})}
}

// JSON completes the response with p.
func (r *Response) JSON(p Page) {
	r.calls.Add(1)
	r.once.Do(func() {
		r.page = p
		close(r.done)
	})
}

// Done is closed once JSON has been called.
func (r *Response) Done() <-chan struct{} {
	return r.done
}

// Page returns the completed page and whether JSON has been called.
func (r *Response) Page() (Page, bool) {
	select {
	case <-r.done:
		return r.page, true
	default:
		return Page{}, false
	}
}

// Calls reports how many times JSON was called.
func (r *Response) Calls() int {
	return int(r.calls.Load())
}

// RenderFunc renders one route.
//
// The callback completes res, possibly after returning. A returned error is
// not a page problem but a broken render callback: it aborts the export.
// Use [Page.Err] for errors that should be logged and tolerated.
type RenderFunc func(ctx context.Context, req *Request, res *Response) error

// Bundle is a compiled server bundle exposing named exports.
type Bundle interface {
	// RenderFunc returns the render callback exported under name.
	RenderFunc(name string) (RenderFunc, error)

	// RoutesProvider returns the routes exported under name.
	RoutesProvider(name string) (RoutesProvider, error)
}

// Exports is an in-process [Bundle] backed by a map of Go values.
//
// Render exports may be a [RenderFunc] or a function of the same signature.
// Routes exports may be a [RoutesProvider], a []string, or a
// func(context.Context) ([]string, error).
type Exports map[string]any

// RenderFunc implements [Bundle].
func (e Exports) RenderFunc(name string) (RenderFunc, error) {
	switch v := e[name].(type) {
	case RenderFunc:
		if v != nil {
			return v, nil
		}
	case func(context.Context, *Request, *Response) error:
		if v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: no render export %q", ErrExportNotFound, name)
}

// RoutesProvider implements [Bundle].
func (e Exports) RoutesProvider(name string) (RoutesProvider, error) {
	switch v := e[name].(type) {
	case RoutesFunc:
		if v != nil {
			return v, nil
		}
	case func(context.Context) ([]string, error):
		if v != nil {
			return RoutesFunc(v), nil
		}
	case RoutesProvider:
		if v != nil {
			return v, nil
		}
	case []string:
		return StaticRoutes(v), nil
	}
	return nil, fmt.Errorf("%w: no routes export %q", ErrExportNotFound, name)
}
