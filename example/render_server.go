package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// posts is the content served by the mock render server.
var posts = map[string]string{
	"hello-world":  "Hello, world",
	"going-static": "Going static",
}

// routes lists every page the mock site has. The last post is missing so
// the export shows a page-level error.
func routes() []string {
	return []string{"/", "/about/", "/blog/hello-world/", "/blog/going-static/", "/blog/draft/"}
}

// StartRenderServer runs a mock render server implementing the routes and
// render endpoints. Renders take 20-100ms to mimic data fetching.
// Call this in a goroutine before exporting.
func StartRenderServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /routes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(routes()); err != nil {
			slog.Error("failed to encode routes", "error", err)
		}
	})

	mux.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		resp := map[string]any{"html": page(req.URL, "Page "+req.URL)}
		if slug, ok := strings.CutPrefix(req.URL, "blog/"); ok {
			title, found := posts[slug]
			if !found {
				resp["error"] = "post not found: " + slug
			} else {
				resp["html"] = page(req.URL, title)
				resp["data"] = map[string]string{"slug": slug, "title": title}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode render response", "error", err)
		}
	})

	slog.Info("mock render server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock render server failed", "error", err)
	}
}

func page(route, title string) string {
	return "<!doctype html><html><head><title>" + title + "</title>" +
		"<!-- razzle_static_js --></head><body><h1>" + title + "</h1>" +
		"<p>/" + route + "</p></body></html>"
}
