package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sundayezeilo/edgelink/internal/config"
	"github.com/sundayezeilo/edgelink/internal/httpx"
	"github.com/sundayezeilo/edgelink/internal/idgen"
	"github.com/sundayezeilo/edgelink/internal/shortener"
	"github.com/sundayezeilo/edgelink/internal/telemetry"
)

// Server represents the HTTP server with all dependencies.
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	links   *shortener.Handler
	metrics *telemetry.HTTPMetrics
	server  *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on GET /x/metrics.
func WithMetrics(m *telemetry.HTTPMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, links *shortener.Handler, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
		links:  links,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully wired HTTP handler: routes plus middleware.
func (s *Server) Handler() http.Handler {
	handler := s.applyMiddleware(s.setupRoutes())
	if s.config.Observability.Enabled {
		handler = otelhttp.NewHandler(handler, "http.server")
	}
	return handler
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		s.logger.Info("context cancelled, stopping server")
		return s.stop()

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.stop()
	}
}

func (s *Server) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// setupRoutes configures all HTTP routes. /x/ is reserved for operational endpoints;
// any other single segment is a link key.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /x/health", s.healthCheckHandler)
	if s.metrics != nil {
		mux.Handle("GET /x/metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /{$}", s.links.Index)
	mux.HandleFunc("GET /links", s.links.ListLinks)
	mux.HandleFunc("POST /new-link", s.links.NewLink)
	mux.HandleFunc("GET /{key}", s.links.Redirect)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
// Everything inside RequestID passes the request through unchanged so the
// logging and metrics middleware can read the pattern the mux matched.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	chain := []httpx.Middleware{
		httpx.Recovery(s.logger),
		httpx.RequestID(idgen.NewV7()),
		httpx.Logger(s.logger),
	}
	if s.metrics != nil {
		chain = append(chain, httpx.Metrics(s.metrics))
	}
	if s.config.Observability.Enabled {
		chain = append(chain, httpx.SpanName)
	}
	chain = append(chain, httpx.CORS(nil))

	return httpx.Chain(chain...)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.Observability.ServiceName,
		"version": s.config.Observability.ServiceVersion,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}
