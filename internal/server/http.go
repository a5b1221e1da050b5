package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/engine"
	"github.com/dmmcquay/reversi-mcp/internal/health"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/metrics"
	"github.com/dmmcquay/reversi-mcp/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the HTTP server. Engine, Checker and Logger are
// required; a nil Limiter disables rate limiting.
type Options struct {
	Addr    string
	Engine  engine.EngineInterface
	Limiter *ratelimit.Limiter
	Checker *health.Checker
	Logger  logging.ContextLogger
}

// HTTPServer serves the move endpoint, health checks and metrics.
type HTTPServer struct {
	server     *http.Server
	logger     logging.ContextLogger
	engine     engine.EngineInterface
	limiter    *ratelimit.Limiter
	prometheus *metrics.PrometheusCollector

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer builds the router.
func NewHTTPServer(opts Options) *HTTPServer {
	s := &HTTPServer{
		logger:     opts.Logger,
		engine:     opts.Engine,
		limiter:    opts.Limiter,
		prometheus: metrics.NewPrometheusCollector(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(PrometheusMiddleware(s.prometheus))
	r.Use(middleware.Recoverer)

	r.Get("/health", opts.Checker.LivenessHandler())
	r.Get("/ready", opts.Checker.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/move", s.handleMove)
		r.Post("/legal-moves", s.handleLegalMoves)
	})

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the address and serves in the background. Bind errors are
// returned; later serve errors are logged.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Stop gracefully stops the HTTP server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// requestContext moves chi's request id into the logging context and echoes
// it back to the caller.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := logging.EnsureRequestID(r.Context(), middleware.GetReqID(r.Context()))
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
