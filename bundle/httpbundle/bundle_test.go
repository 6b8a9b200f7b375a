package httpbundle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/prerender"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// renderServer is a minimal render server with routes and render endpoints.
func renderServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /routes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["/a/","b","broken"]`))
	})
	mux.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "want json", http.StatusBadRequest)
			return
		}
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch req.URL {
		case "b":
			_, _ = w.Write([]byte(`{"html":"<p>b</p><!-- razzle_static_js -->","data":{"z":1,"a":2}}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"html":"<p>oops</p>","error":{"message":"db down"}}`))
		case "crash":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		default:
			_, _ = w.Write([]byte(`{"html":"<p>` + req.URL + `</p>","data":null,"error":null}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newBundle(t *testing.T, url string, opts ...Option) *Bundle {
	t.Helper()
	b, err := New(url, append([]Option{WithLogger(testLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func render(t *testing.T, b *Bundle, route string) (prerender.Page, error) {
	t.Helper()
	fn, err := b.RenderFunc("render")
	if err != nil {
		t.Fatalf("RenderFunc() error = %v", err)
	}
	res := prerender.NewResponse()
	if err := fn(context.Background(), &prerender.Request{URL: route}, res); err != nil {
		return prerender.Page{}, err
	}
	page, ok := res.Page()
	if !ok {
		t.Fatal("render returned without completing the response")
	}
	return page, nil
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []string{"", "localhost:3001", "ftp://host/", "http://"}
	for _, u := range tests {
		t.Run(u, func(t *testing.T) {
			if _, err := New(u); err == nil {
				t.Errorf("New(%q) expected error", u)
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	srv := renderServer(t)
	b := newBundle(t, srv.URL+"/")

	provider, err := b.RoutesProvider("routes")
	if err != nil {
		t.Fatalf("RoutesProvider() error = %v", err)
	}
	routes, err := provider.Routes(context.Background())
	if err != nil {
		t.Fatalf("Routes() error = %v", err)
	}
	if want := []string{"/a/", "b", "broken"}; !reflect.DeepEqual(routes, want) {
		t.Errorf("routes = %v, want %v", routes, want)
	}
}

func TestRoutes_NotFound(t *testing.T) {
	srv := renderServer(t)
	b := newBundle(t, srv.URL)

	provider, err := b.RoutesProvider("paths")
	if err != nil {
		t.Fatalf("RoutesProvider() error = %v", err)
	}
	_, err = provider.Routes(context.Background())
	if !errors.Is(err, prerender.ErrExportNotFound) {
		t.Errorf("Routes() error = %v, want ErrExportNotFound", err)
	}
}

func TestRender(t *testing.T) {
	srv := renderServer(t)
	b := newBundle(t, srv.URL)

	tests := []struct {
		route    string
		wantHTML string
		wantData string
		wantErr  string
	}{
		{route: "a", wantHTML: "<p>a</p>", wantData: "null"},
		{route: "b", wantHTML: "<p>b</p><!-- razzle_static_js -->", wantData: `{"z":1,"a":2}`},
		{route: "broken", wantHTML: "<p>oops</p>", wantErr: "db down"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			page, err := render(t, b, tt.route)
			if err != nil {
				t.Fatalf("render error = %v", err)
			}
			if page.HTML != tt.wantHTML {
				t.Errorf("HTML = %q, want %q", page.HTML, tt.wantHTML)
			}

			var gotData string
			if raw, ok := page.Data.(json.RawMessage); ok {
				gotData = string(raw)
			}
			if gotData != tt.wantData {
				t.Errorf("Data = %q, want %q", gotData, tt.wantData)
			}

			var gotErr string
			if page.Err != nil {
				gotErr = page.Err.Error()
			}
			if gotErr != tt.wantErr {
				t.Errorf("Err = %q, want %q", gotErr, tt.wantErr)
			}
		})
	}
}

func TestRender_ServerError(t *testing.T) {
	srv := renderServer(t)
	b := newBundle(t, srv.URL)

	_, err := render(t, b, "crash")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("render error = %v, want status 502 error", err)
	}
}

func TestRender_NotFound(t *testing.T) {
	srv := renderServer(t)
	b := newBundle(t, srv.URL)

	fn, err := b.RenderFunc("renderPage")
	if err != nil {
		t.Fatalf("RenderFunc() error = %v", err)
	}
	err = fn(context.Background(), &prerender.Request{URL: "a"}, prerender.NewResponse())
	if !errors.Is(err, prerender.ErrExportNotFound) {
		t.Errorf("render error = %v, want ErrExportNotFound", err)
	}
}

func TestRender_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	b := newBundle(t, srv.URL, WithTimeout(50*time.Millisecond))
	if _, err := render(t, b, "slow"); err == nil {
		t.Error("render expected timeout error, got nil")
	}
}

func TestPageError(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"null", ""},
		{"false", ""},
		{`""`, ""},
		{`"boom"`, "boom"},
		{`{"message":"boom","stack":"at x"}`, "boom"},
		{`{"code":7}`, `{"code":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := pageError(json.RawMessage(tt.raw))
			var got string
			if err != nil {
				got = err.Error()
			}
			if got != tt.want {
				t.Errorf("pageError(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExport_EndToEnd(t *testing.T) {
	srv := renderServer(t)
	b := newBundle(t, srv.URL)

	publicDir := t.TempDir()
	exp, err := prerender.New(
		prerender.WithBundle(b),
		prerender.WithPublicDir(publicDir),
		prerender.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := exp.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if want := []string{"b"}; !reflect.DeepEqual(result.DataRoutes, want) {
		t.Errorf("DataRoutes = %v, want %v", result.DataRoutes, want)
	}
	if failed := result.Failed(); len(failed) != 1 || failed[0].Pathname != "broken" {
		t.Errorf("Failed() = %+v, want the broken route", failed)
	}

	html, err := os.ReadFile(filepath.Join(publicDir, "b", "index.html"))
	if err != nil {
		t.Fatalf("b page missing: %v", err)
	}
	if want := `<p>b</p><script src="/static_routes.js" defer crossorigin></script>`; string(html) != want {
		t.Errorf("b/index.html = %q, want %q", html, want)
	}
	if _, err := os.Stat(filepath.Join(publicDir, "a", "page-data.json")); !os.IsNotExist(err) {
		t.Errorf("a/page-data.json should not exist, stat err = %v", err)
	}
}
