// Package server exposes the orders dashboard as a JSON API with a CSV
// download, keeping per-viewer filter state in cookie-keyed sessions.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orderdash/internal/export"
	"orderdash/internal/observability"
	"orderdash/internal/pipeline"
	"orderdash/internal/session"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "orderdash_session"

// Loader supplies the completed table; *pipeline.Pipeline satisfies it.
type Loader interface {
	Load(ctx context.Context) (pipeline.Dataset, error)
	Invalidate()
}

var _ Loader = (*pipeline.Pipeline)(nil)

// Server serves the dashboard API.
type Server struct {
	loader      Loader
	sessions    *session.Store
	metrics     *observability.Metrics
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
	fileName    string
	sessionIdle time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics counts exports in m and serves g on /metrics
func WithMetrics(m *observability.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithFileName sets the CSV download attachment name
func WithFileName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.fileName = name
		}
	}
}

// WithSessionIdle sets how long an unused session is kept
func WithSessionIdle(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.sessionIdle = d
		}
	}
}

// New creates a server reading through loader.
func New(loader Loader, opts ...Option) *Server {
	s := &Server{
		loader:      loader,
		sessions:    session.NewStore(),
		logger:      zap.NewNop(),
		gatherer:    prometheus.DefaultGatherer,
		fileName:    export.DefaultFileName,
		sessionIdle: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("server")
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/orders", s.handleOrders)
		r.Get("/summary", s.handleSummary)
		r.Get("/charts", s.handleCharts)
		r.Post("/filters", s.handleFilters)
		r.Post("/filters/reset", s.handleReset)
	})
	r.Get("/download", s.handleDownload)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.sweepSessions(ctx)
		return nil
	})
	return g.Wait()
}

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(s.sessionIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sessions.Sweep(now, s.sessionIdle); n > 0 {
				s.logger.Debug("expired sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
