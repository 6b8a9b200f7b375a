package jsbundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/jpalmerr/prerender"
)

// errLoopStopped is returned for calls made after [Bundle.Close].
var errLoopStopped = errors.New("bundle event loop stopped")

// Bundle is a server bundle running on a JavaScript event loop.
//
// Bundle is safe for concurrent use. Close it to stop the loop.
type Bundle struct {
	path   string
	env    map[string]string
	logger *slog.Logger
	loop   *eventloop.EventLoop
	closed atomic.Bool

	// exports is only touched on the loop goroutine
	exports *goja.Object
}

// Option configures a [Bundle] in [Open].
type Option func(*Bundle)

// WithEnv adds variables to the bundle's process.env.
// Later calls add to, and override, earlier ones.
func WithEnv(env map[string]string) Option {
	return func(b *Bundle) {
		for k, v := range env {
			b.env[k] = v
		}
	}
}

// WithMode sets process.env.NODE_ENV, which most bundles consult to pick
// production or development behaviour.
func WithMode(mode string) Option {
	return func(b *Bundle) {
		if mode != "" {
			b.env["NODE_ENV"] = mode
		}
	}
}

// WithLogger sets the logger receiving the bundle's console output.
// Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundle) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Open loads the CommonJS module at path and starts its event loop.
//
// Returns an error wrapping [prerender.ErrBundleNotFound] if the file does
// not exist, or the module's own error if evaluating it throws.
func Open(ctx context.Context, path string, opts ...Option) (*Bundle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bundle path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", prerender.ErrBundleNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat bundle: %w", err)
	}

	b := &Bundle{
		path:   abs,
		env:    map[string]string{"NODE_ENV": "production"},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(slogPrinter{logger: b.logger}))

	b.loop = eventloop.NewEventLoop(eventloop.WithRegistry(registry))
	b.loop.Start()

	err = b.run(ctx, func(vm *goja.Runtime) error {
		return b.load(vm)
	})
	if err != nil {
		b.loop.Stop()
		return nil, fmt.Errorf("failed to load bundle %s: %w", path, err)
	}

	b.logger.Debug("bundle loaded", "path", abs, "node_env", b.env["NODE_ENV"])
	return b, nil
}

// load evaluates the module and keeps its exports. Runs on the loop.
func (b *Bundle) load(vm *goja.Runtime) error {
	env := vm.NewObject()
	for k, v := range b.env {
		if err := env.Set(k, v); err != nil {
			return err
		}
	}
	process := vm.NewObject()
	if err := process.Set("env", env); err != nil {
		return err
	}
	if err := vm.Set("process", process); err != nil {
		return err
	}
	if err := vm.Set("global", vm.GlobalObject()); err != nil {
		return err
	}

	requireFn, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return errors.New("require is not available")
	}
	module, err := requireFn(goja.Undefined(), vm.ToValue(filepath.ToSlash(b.path)))
	if err != nil {
		return err
	}
	if isNullish(module) {
		return errors.New("module has no exports")
	}
	b.exports = module.ToObject(vm)
	return nil
}

// Close stops the event loop. Pending timers are discarded and later calls
// into the bundle fail.
func (b *Bundle) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.loop.Stop()
	return nil
}

// Path returns the absolute path of the loaded module.
func (b *Bundle) Path() string {
	return b.path
}

// run executes fn on the loop and waits for it to return.
func (b *Bundle) run(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	if b.closed.Load() {
		return errLoopStopped
	}
	errc := make(chan error, 1)
	if !b.loop.RunOnLoop(func(vm *goja.Runtime) {
		errc <- fn(vm)
	}) {
		return errLoopStopped
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lookup returns the named export, falling back to exports.default.
// Runs on the loop.
func (b *Bundle) lookup(vm *goja.Runtime, name string) (goja.Value, error) {
	if v := b.exports.Get(name); !isNullish(v) {
		return v, nil
	}
	if def := b.exports.Get("default"); !isNullish(def) {
		if v := def.ToObject(vm).Get(name); !isNullish(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: bundle has no export %q", prerender.ErrExportNotFound, name)
}

// RoutesProvider implements [prerender.Bundle]. The export may be an array
// of strings or a function returning one, or a promise of one.
func (b *Bundle) RoutesProvider(name string) (prerender.RoutesProvider, error) {
	var callable bool
	err := b.run(context.Background(), func(vm *goja.Runtime) error {
		v, err := b.lookup(vm, name)
		if err != nil {
			return err
		}
		_, callable = goja.AssertFunction(v)
		if !callable && !isArray(vm, v) {
			return fmt.Errorf("%w: routes export %q is neither an array nor a function", prerender.ErrExportNotFound, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return prerender.RoutesFunc(func(ctx context.Context) ([]string, error) {
		return b.routes(ctx, name)
	}), nil
}

func (b *Bundle) routes(ctx context.Context, name string) ([]string, error) {
	type result struct {
		routes []string
		err    error
	}
	resc := make(chan result, 1)

	err := b.run(ctx, func(vm *goja.Runtime) error {
		v, err := b.lookup(vm, name)
		if err != nil {
			return err
		}
		if fn, ok := goja.AssertFunction(v); ok {
			if v, err = fn(goja.Undefined()); err != nil {
				return err
			}
		}
		settle(vm, v, func(v goja.Value, err error) {
			if err != nil {
				resc <- result{err: err}
				return
			}
			var routes []string
			if err := vm.ExportTo(v, &routes); err != nil {
				resc <- result{err: fmt.Errorf("routes must be a list of strings: %w", err)}
				return
			}
			resc <- result{routes: routes}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-resc:
		return r.routes, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RenderFunc implements [prerender.Bundle].
//
// The JavaScript render is called as render(req, res) with req.url set.
// It completes the page with res.json({html, data, error}). A throw, or a
// rejected promise returned by render, is reported as the render error.
func (b *Bundle) RenderFunc(name string) (prerender.RenderFunc, error) {
	err := b.run(context.Background(), func(vm *goja.Runtime) error {
		v, err := b.lookup(vm, name)
		if err != nil {
			return err
		}
		if _, ok := goja.AssertFunction(v); !ok {
			return fmt.Errorf("%w: render export %q is not a function", prerender.ErrExportNotFound, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, req *prerender.Request, res *prerender.Response) error {
		return b.render(ctx, name, req, res)
	}, nil
}

func (b *Bundle) render(ctx context.Context, name string, req *prerender.Request, res *prerender.Response) error {
	settled := make(chan error, 1)

	err := b.run(ctx, func(vm *goja.Runtime) error {
		v, err := b.lookup(vm, name)
		if err != nil {
			return err
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return fmt.Errorf("%w: render export %q is not a function", prerender.ErrExportNotFound, name)
		}

		jsReq := vm.NewObject()
		if err := jsReq.Set("url", req.URL); err != nil {
			return err
		}
		jsRes := vm.NewObject()
		if err := jsRes.Set("json", func(call goja.FunctionCall) goja.Value {
			res.JSON(toPage(vm, call.Argument(0)))
			return goja.Undefined()
		}); err != nil {
			return err
		}

		ret, err := fn(goja.Undefined(), jsReq, jsRes)
		if err != nil {
			return err
		}
		settle(vm, ret, func(_ goja.Value, err error) {
			settled <- err
		})
		return nil
	})
	if err != nil {
		return err
	}

	select {
	case err := <-settled:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// toPage converts the argument of res.json. Runs on the loop.
func toPage(vm *goja.Runtime, arg goja.Value) prerender.Page {
	var page prerender.Page
	if isNullish(arg) {
		return page
	}
	obj := arg.ToObject(vm)

	if html := obj.Get("html"); !isNullish(html) {
		page.HTML = html.String()
	}
	if data := obj.Get("data"); data != nil && data.ToBoolean() {
		raw, err := stringify(vm, data)
		switch {
		case err != nil:
			page.Err = fmt.Errorf("failed to serialize page data: %w", err)
		case raw != nil:
			page.Data = raw
		}
	}
	if e := obj.Get("error"); e != nil && e.ToBoolean() && page.Err == nil {
		page.Err = errors.New(e.String())
	}
	return page
}

// stringify serializes v with the runtime's own JSON.stringify so key order
// matches what the bundle produced. Returns nil for values JSON drops.
func stringify(vm *goja.Runtime, v goja.Value) (json.RawMessage, error) {
	stringifyFn, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, errors.New("JSON.stringify is not available")
	}
	out, err := stringifyFn(goja.Undefined(), v)
	if err != nil {
		return nil, err
	}
	if isNullish(out) {
		return nil, nil
	}
	return json.RawMessage(out.String()), nil
}

// settle calls done with v, or with the outcome of v if it is a promise.
// done always runs on the loop.
func settle(vm *goja.Runtime, v goja.Value, done func(goja.Value, error)) {
	p, ok := exportedPromise(v)
	if !ok {
		done(v, nil)
		return
	}

	switch p.State() {
	case goja.PromiseStateFulfilled:
		done(p.Result(), nil)
		return
	case goja.PromiseStateRejected:
		done(nil, rejection(p.Result()))
		return
	}

	promise := v.ToObject(vm)
	then, ok := goja.AssertFunction(promise.Get("then"))
	if !ok {
		done(nil, errors.New("promise has no then method"))
		return
	}
	onFulfilled := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		done(call.Argument(0), nil)
		return goja.Undefined()
	})
	onRejected := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		done(nil, rejection(call.Argument(0)))
		return goja.Undefined()
	})
	if _, err := then(promise, onFulfilled, onRejected); err != nil {
		done(nil, err)
	}
}

func exportedPromise(v goja.Value) (*goja.Promise, bool) {
	if isNullish(v) {
		return nil, false
	}
	p, ok := v.Export().(*goja.Promise)
	return p, ok
}

// rejection turns a promise rejection reason into a Go error.
func rejection(reason goja.Value) error {
	if isNullish(reason) {
		return errors.New("promise rejected")
	}
	if err, ok := reason.Export().(error); ok {
		return err
	}
	return errors.New(reason.String())
}

func isArray(vm *goja.Runtime, v goja.Value) bool {
	isArrayFn, ok := goja.AssertFunction(vm.Get("Array").ToObject(vm).Get("isArray"))
	if !ok {
		return false
	}
	out, err := isArrayFn(goja.Undefined(), v)
	return err == nil && out.ToBoolean()
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// compile-time check
var _ prerender.Bundle = (*Bundle)(nil)
