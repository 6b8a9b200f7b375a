// Standalone mock render server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/renderserver
//
// Then in another terminal:
//
//	go run ./cmd/prerender export -c example/prerender.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

func main() {
	fmt.Println("Mock render server starting on :9999")
	fmt.Println("GET /routes lists pages, POST /render renders one")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	routes := []string{"/", "/about/", "/contact/"}

	http.HandleFunc("GET /routes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(routes)
	})

	http.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		html := "<!doctype html><html><head><!-- razzle_static_js --></head>" +
			"<body><h1>/" + req.URL + "</h1></body></html>"
		resp := map[string]any{"html": html}
		if req.URL == "contact" {
			resp["data"] = map[string]string{"email": "hello@example.com"}
		}

		fmt.Printf("  rendered /%s\n", req.URL)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
