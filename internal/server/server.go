// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	POST /v1/layout           keys as JSON, responds with the diagram JSON
//	POST /v1/render/{format}  keys as JSON, responds with one rendered format
//	GET  /healthz             liveness
//	GET  /metrics             Prometheus metrics, when a gatherer is set
//
// Errors are JSON objects carrying the error code; the status code follows
// [errors.HTTPStatus].
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/schemaplot/pkg/pipeline"
)

// DefaultMaxBodyBytes limits request bodies.
const DefaultMaxBodyBytes = 8 << 20

// ShutdownTimeout bounds the graceful shutdown in [Server.ListenAndServe].
const ShutdownTimeout = 10 * time.Second

// Config configures a [Server].
type Config struct {
	// Defaults supply the layout configuration, compact flag and PNG scale
	// a request starts from. Refresh applies to every request.
	Defaults pipeline.Options

	// Gatherer serves /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	MaxBodyBytes int64
	Logger       *log.Logger
}

// Server serves the HTTP API over a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	cfg    Config
	logger *log.Logger
}

// New returns a server running layouts through runner.
func New(runner *pipeline.Runner, cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, cfg: cfg, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if s.cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/render/{format}", s.handleRender)
	})
	return r
}

// HTTPServer returns an http.Server for addr with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := s.HTTPServer(addr)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
