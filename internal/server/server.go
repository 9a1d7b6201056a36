// Package server serves a synthesized index tree over HTTP so resolvers can
// install against it locally before the tree is published:
//
//	pip install --index-url http://localhost:8080/simple/ <package>
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the index server.
type Options struct {
	Addr     string
	SiteDir  string // synthesized tree (index.html, simple/, packages/)
	Registry *prom.Registry
}

// Server is a static HTTP server for the index tree.
type Server struct {
	opts Options
	http *http.Server
}

// New creates a server for the given options.
func New(opts Options) *Server {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(opts.SiteDir)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if opts.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	return &Server{
		opts: opts,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           loggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks until the context is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		slog.Info("Serving index", "addr", s.opts.Addr, "dir", s.opts.SiteDir)
		errChan <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("index server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// loggingMiddleware logs method, path, status and duration per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
