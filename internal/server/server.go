// Package server exposes resolution over HTTP for "fsm serve".
//
// Routes:
//
//	POST /v1/resolve     {root, packages, check_versions}            -> {order}
//	POST /v1/available   {root, packages, repository, check_versions} -> {order, missing, shortfalls}
//	GET  /healthz
//	GET  /metrics
//
// Package lists use the manifest record shape. Errors are returned as
// {code, message} with a status derived from the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/fsm/pkg/cache"
	"github.com/matzehuels/fsm/pkg/deps"
	"github.com/matzehuels/fsm/pkg/repo"
)

const (
	DefaultAddr     = "127.0.0.1:8080"
	DefaultCacheTTL = 10 * time.Minute
	maxBodySize     = 8 << 20
)

// Config configures a Server.
type Config struct {
	Addr string
	// Strict selects strict validation of request packages; otherwise
	// problems are logged as warnings.
	Strict bool
	// CheckVersions is the default when a request does not say.
	CheckVersions bool
	MaxDepth      int
	// Repository is the target for /v1/available requests that carry none.
	Repository *repo.Repository
	// Cache stores response bodies. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// Gatherer backs /metrics. Nil selects the default registry.
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

// WithDefaults returns a copy of Config with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	cfg := c
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return cfg
}

// Server holds the HTTP server dependencies.
type Server struct {
	cfg   Config
	keyer cache.Keyer
	mode  deps.Mode
}

// New creates a Server.
func New(cfg Config) *Server {
	cfg = cfg.WithDefaults()
	mode := deps.Strict()
	if !cfg.Strict {
		logger := cfg.Logger
		mode = deps.Permissive(func(msg string, args ...any) { logger.Warn(msg, args...) })
	}
	return &Server{
		cfg:   cfg,
		keyer: cache.NewScopedKeyer(cache.NewDefaultKeyer(), "server:"),
		mode:  mode,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/available", s.handleAvailable)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
