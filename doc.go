// Package prerender exports a server-rendered build as static HTML.
//
// A compiled server bundle exposes two exports: a list of routes and a render
// function. The exporter renders every route with bounded concurrency, writes
// <public>/<route>/index.html (plus page-data.json when the page has data),
// and then publishes a client script that names every exported route and the
// routes that carry preloaded data:
//
//	window.RAZZLE_STATIC_ROUTES = ["","about","blog/hello"];
//	window.RAZZLE_STATIC_DATA_ROUTES = ["blog/hello"];
//
// # Quick Start
//
// Any [Bundle] works. [Exports] wraps Go functions; the jsbundle and
// httpbundle packages load a compiled JavaScript bundle or call a running
// render server:
//
//	bundle := prerender.Exports{
//	    "routes": []string{"/", "/about/"},
//	    "render": prerender.RenderFunc(func(ctx context.Context, req *prerender.Request, res *prerender.Response) error {
//	        res.JSON(prerender.Page{HTML: renderPage(req.URL)})
//	        return nil
//	    }),
//	}
//
//	exp, err := prerender.New(
//	    prerender.WithBundle(bundle),
//	    prerender.WithPublicDir("build/public"),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := exp.Export(ctx)
//
// # Script Injection
//
// Pages mark where the routes script goes with a placeholder, by default
// <!-- razzle_static_js -->. In the default external mode the placeholder
// becomes a <script src> tag pointing at static_routes.js. With
// [WithScriptInline] the script body is patched into every page instead,
// once all routes have rendered.
//
// # Errors
//
// A render that reports [Page.Err] is logged and its page is still written.
// A missing export, a render callback that returns an error or panics, or a
// failed write aborts the export and cancels renders in flight.
//
// # Architecture
//
// The exporter is built from several internal packages (under internal/):
//
//   - internal/pool: fixed worker pool over an indexed batch
//   - internal/output: page and data file writing
//   - internal/store: position-keyed outcome collection
//   - internal/sizes: gzip size snapshots and the size report
//   - internal/fetch: pooled HTTP client for render servers
//   - internal/server: static preview server
//
// The internal packages are not part of the public API and may change
// without notice.
package prerender
