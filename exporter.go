package prerender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpalmerr/prerender/internal/output"
	"github.com/jpalmerr/prerender/internal/pool"
	"github.com/jpalmerr/prerender/internal/sizes"
	"github.com/jpalmerr/prerender/internal/store"
)

const defaultParallel = 5

// Exporter renders every route of a server bundle to static HTML.
//
// An Exporter is created with [New] and run with [Exporter.Export]. It holds
// no per-run state, so the same Exporter can export repeatedly; each run
// overwrites the pages it writes.
type Exporter struct {
	bundle             Bundle
	publicDir          string
	routesScriptPath   string
	scriptTag          string
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

	// patchFile rewrites one page in the inline pass.
	patchFile func(path string, fn func(string) string) (bool, error)
}

// New creates an [Exporter] with the given options.
//
// [WithBundle] and [WithPublicDir] are required. Other options default to:
//   - render export "render", routes export "routes"
//   - parallel 5
//   - marker <!-- razzle_static_js -->, external script mode
//   - window variables RAZZLE_STATIC_ROUTES / RAZZLE_STATIC_DATA_ROUTES
//   - no render timeout
//
// Example:
//
//	exp, err := prerender.New(
//	    prerender.WithBundle(bundle),
//	    prerender.WithPublicDir("build/public"),
//	    prerender.WithParallel(8),
//	)
func New(opts ...Option) (*Exporter, error) {
	cfg := &exportConfig{
		renderExport:       DefaultRenderExport,
		routesExport:       DefaultRoutesExport,
		parallel:           defaultParallel,
		marker:             defaultMarkerPattern,
		routesVariable:     DefaultRoutesVariable,
		dataRoutesVariable: DefaultDataRoutesVariable,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.bundle == nil {
		return nil, errors.New("a bundle is required")
	}
	if cfg.publicDir == "" {
		return nil, errors.New("a public dir is required")
	}

	routesScriptPath := cfg.routesScriptPath
	if routesScriptPath == "" {
		routesScriptPath = filepath.Join(cfg.publicDir, RoutesScriptName)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Exporter{
		bundle:             cfg.bundle,
		publicDir:          cfg.publicDir,
		routesScriptPath:   routesScriptPath,
		scriptTag:          ScriptTag(cfg.publicPath, scriptURLPath(cfg.publicDir, routesScriptPath)),
		renderExport:       cfg.renderExport,
		routesExport:       cfg.routesExport,
		parallel:           cfg.parallel,
		marker:             cfg.marker,
		scriptInline:       cfg.scriptInline,
		routesVariable:     cfg.routesVariable,
		dataRoutesVariable: cfg.dataRoutesVariable,
		renderTimeout:      cfg.renderTimeout,
		logger:             logger,
		outcomeCallbacks:   cfg.outcomeCallbacks,
		patchFile:          output.PatchFile,
	}, nil
}

// scriptURLPath returns the URL path of the routes script relative to the
// public dir. A script written outside the public dir is addressed by name.
func scriptURLPath(publicDir, scriptPath string) string {
	rel, err := filepath.Rel(publicDir, scriptPath)
	if err != nil || escapes(rel) {
		return filepath.Base(scriptPath)
	}
	return filepath.ToSlash(rel)
}

// escapes reports whether a relative path leaves its base directory.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Export renders every route and injects the routes script.
//
// Export runs in three phases:
//  1. Resolve the bundle's routes and render exports and normalize routes.
//  2. Render routes with at most parallel renders in flight, writing each
//     page as it completes. A page-data.json from an earlier run is then
//     removed from every directory that got no data in this run.
//  3. Write static_routes.js, or in inline mode patch the script into every
//     written page with the same concurrency cap.
//
// Page-level errors ([Page.Err], render timeouts) are logged and recorded on
// the outcome. A missing export, a render callback returning an error, a
// failed write, or a cancelled context abort the export with an error.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	previous, err := sizes.Measure(e.publicDir)
	if err != nil {
		return nil, err
	}

	routesProvider, err := e.bundle.RoutesProvider(e.routesExport)
	if err != nil {
		return nil, err
	}
	render, err := e.bundle.RenderFunc(e.renderExport)
	if err != nil {
		return nil, err
	}

	routes, err := ResolveRoutes(ctx, routesProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve routes: %w", err)
	}

	e.logger.Info("static export starting",
		"routes", len(routes),
		"parallel", e.parallel,
		"inline_script", e.scriptInline,
	)

	outcomes, err := e.renderAll(ctx, render, routes)
	if err != nil {
		return nil, err
	}
	if err := e.removeStaleData(outcomes); err != nil {
		return nil, err
	}

	dataRoutes := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.HasData {
			dataRoutes = append(dataRoutes, o.Pathname)
		}
	}
	script := BuildScript(e.routesVariable, e.dataRoutesVariable, routes, dataRoutes)

	if err := e.injectScript(ctx, script, outcomes); err != nil {
		return nil, err
	}

	stats, err := sizes.Measure(e.publicDir)
	if err != nil {
		return nil, err
	}

	e.logger.Info("static export finished",
		"routes", len(routes),
		"data_routes", len(dataRoutes),
	)

	return &Result{
		Outcomes:   outcomes,
		Routes:     routes,
		DataRoutes: dataRoutes,
		Script:     script,
		Stats:      stats,
		Previous:   previous,
	}, nil
}

// renderAll renders every route through the worker pool and returns the
// outcomes in route order.
func (e *Exporter) renderAll(ctx context.Context, render RenderFunc, routes []string) ([]RenderOutcome, error) {
	collected := store.NewMemoryStore(len(routes))
	locks := &dirLocks{}

	err := pool.Run(ctx, e.parallel, len(routes), func(ctx context.Context, i int) error {
		outcome, err := e.renderRoute(ctx, render, routes[i], locks)
		if err != nil {
			return err
		}
		collected.Set(i, outcomeToStore(outcome))
		e.notify(outcome)
		return nil
	}, e.logger)
	if err != nil {
		return nil, err
	}

	if pending := collected.Pending(); len(pending) > 0 {
		return nil, fmt.Errorf("%d routes finished without an outcome", len(pending))
	}

	stored := collected.All()
	outcomes := make([]RenderOutcome, len(stored))
	for i, o := range stored {
		outcomes[i] = outcomeFromStore(o)
	}
	return outcomes, nil
}

// renderRoute renders one route and writes its page.
//
// The route is finished once the render callback has returned and the
// response has been completed, in either order.
func (e *Exporter) renderRoute(ctx context.Context, render RenderFunc, route string, locks *dirLocks) (RenderOutcome, error) {
	dir, err := e.routeDir(route)
	if err != nil {
		return RenderOutcome{}, err
	}

	rctx := ctx
	if e.renderTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, e.renderTimeout)
		defer cancel()
	}

	res := NewResponse()
	if err := render(rctx, &Request{URL: route}, res); err != nil {
		if timedOut(ctx, rctx) {
			return e.timeoutOutcome(route), nil
		}
		return RenderOutcome{}, fmt.Errorf("failed to render %q: %w", route, err)
	}

	select {
	case <-res.Done():
	case <-rctx.Done():
	}

	page, ok := res.Page()
	if !ok {
		if timedOut(ctx, rctx) {
			return e.timeoutOutcome(route), nil
		}
		return RenderOutcome{}, ctx.Err()
	}

	if n := res.Calls(); n > 1 {
		e.logger.Warn("render completed more than once", "route", route, "calls", n)
	}
	if page.Err != nil {
		e.logger.Error("route rendered with error", "route", route, "error", page.Err)
	}

	html := page.HTML
	if !e.scriptInline {
		html = ReplaceMarker(e.marker, html, e.scriptTag)
	}

	unlock := locks.lock(dir)
	htmlFile, hasData, err := output.WritePage(dir, html, page.Data)
	unlock()
	if err != nil {
		return RenderOutcome{}, fmt.Errorf("failed to export %q: %w", route, err)
	}

	e.logger.Debug("route exported", "route", route, "html_file", htmlFile, "has_data", hasData)

	return RenderOutcome{
		Pathname: route,
		HTMLFile: htmlFile,
		HasData:  hasData,
		Err:      page.Err,
	}, nil
}

// removeStaleData deletes page-data.json from written directories where no
// outcome of this run had data. Duplicate routes share a directory, so a
// data file written by one copy is kept even if another copy had none.
func (e *Exporter) removeStaleData(outcomes []RenderOutcome) error {
	withData := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if o.HTMLFile == "" {
			continue
		}
		dir := filepath.Dir(o.HTMLFile)
		withData[dir] = withData[dir] || o.HasData
	}

	for dir, hasData := range withData {
		if hasData {
			continue
		}
		if err := output.RemoveData(dir); err != nil {
			return err
		}
	}
	return nil
}

// dirLocks serializes page writes per output directory.
type dirLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the lock for dir and returns its release.
func (d *dirLocks) lock(dir string) func() {
	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[string]*sync.Mutex)
	}
	l, ok := d.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		d.locks[dir] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// timedOut reports whether rctx ended because of the render timeout rather
// than because the export itself was cancelled.
func timedOut(parent, rctx context.Context) bool {
	return parent.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded)
}

func (e *Exporter) timeoutOutcome(route string) RenderOutcome {
	e.logger.Error("route render timed out", "route", route, "timeout", e.renderTimeout.String())
	return RenderOutcome{Pathname: route, Err: ErrRenderTimeout}
}

// routeDir returns the output directory for a route.
func (e *Exporter) routeDir(route string) (string, error) {
	dir := filepath.Join(e.publicDir, filepath.FromSlash(route))
	rel, err := filepath.Rel(e.publicDir, dir)
	if err != nil || escapes(rel) {
		return "", fmt.Errorf("route %q resolves outside the public dir", route)
	}
	return dir, nil
}

// injectScript delivers the routes script, either as a separate file or by
// patching it into every written page.
func (e *Exporter) injectScript(ctx context.Context, script string, outcomes []RenderOutcome) error {
	if !e.scriptInline {
		if err := output.WriteFile(e.routesScriptPath, []byte(script)); err != nil {
			return err
		}
		e.logger.Info("routes script written", "path", e.routesScriptPath)
		return nil
	}

	// duplicate routes share a file; patch it once
	seen := make(map[string]bool, len(outcomes))
	files := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.HTMLFile == "" || seen[o.HTMLFile] {
			continue
		}
		seen[o.HTMLFile] = true
		files = append(files, o.HTMLFile)
	}

	tag := InlineScriptTag(script)
	var patched atomic.Int32

	err := pool.Run(ctx, e.parallel, len(files), func(ctx context.Context, i int) error {
		ok, err := e.patchFile(files[i], func(content string) string {
			return ReplaceMarker(e.marker, content, tag)
		})
		if ok {
			patched.Add(1)
		}
		return err
	}, e.logger)
	if err != nil {
		return fmt.Errorf("failed to inline routes script: %w", err)
	}

	e.logger.Info("routes script inlined", "pages", patched.Load())
	return nil
}

// notify invokes the outcome callbacks.
func (e *Exporter) notify(outcome RenderOutcome) {
	for _, cb := range e.outcomeCallbacks {
		invokeCallbackSafe(cb, outcome, e.logger)
	}
}

// invokeCallbackSafe calls an outcome callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(RenderOutcome), outcome RenderOutcome, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("outcome callback panicked",
				"panic", r,
				"route", outcome.Pathname,
			)
		}
	}()
	cb(outcome)
}

// PublicDir returns the directory pages are written into.
func (e *Exporter) PublicDir() string {
	return e.publicDir
}

// RoutesScriptPath returns where the external routes script is written.
func (e *Exporter) RoutesScriptPath() string {
	return e.routesScriptPath
}

// Parallel returns the concurrency cap for renders and page patches.
func (e *Exporter) Parallel() int {
	return e.parallel
}

// ScriptInline reports whether the routes script is inlined into pages.
func (e *Exporter) ScriptInline() bool {
	return e.scriptInline
}
