package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

const (
	shutdownTimeout = 5 * time.Second

	// notFoundPage is served for unknown paths when present.
	notFoundPage = "404.html"
)

// Server serves a public directory over HTTP.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	root       fs.FS
	addr       string
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server] for the directory dir.
//
// Parameters:
//   - dir: the exported public directory
//   - addr: TCP address to listen on, e.g. ":3000" or "127.0.0.1:0"
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(dir, addr string, logger *slog.Logger) *Server {
	return &Server{
		root:   os.DirFS(dir),
		addr:   addr,
		logger: logger,
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.logRequests(http.HandlerFunc(s.handleStatic)))
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify the address synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on, or the configured
// address before [Server.Start].
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// handleStatic serves files from the public directory.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)[1:]
	if name == "" {
		name = "."
	}

	info, err := fs.Stat(s.root, name)
	if err == nil && info.IsDir() {
		if _, err := fs.Stat(s.root, path.Join(name, "index.html")); err != nil {
			s.notFound(w, r)
			return
		}
	}
	if err != nil {
		s.notFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.FileServerFS(s.root).ServeHTTP(w, r)
}

// notFound serves 404.html when the export has one.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	content, err := fs.ReadFile(s.root, notFoundPage)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(content); err != nil {
		s.logger.Error("failed to write not found page", "error", err)
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
