// Package core provides the HTTP chassis for the demo service. It builds a chi
// router that serves both the standalone HTTP listener and the Lambda adapter,
// and applies the cross-cutting concerns (recovery, request IDs, logging,
// compression, metrics) before requests reach the page handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"devopsdemo/internal/config"
	"devopsdemo/internal/secrets"
)

// MetricsCollector defines the interface for recording API telemetry.
// Implementations record request latency and count metrics to CloudWatch
// or equivalent backends.
type MetricsCollector interface {
	// RecordRequest records API request metrics including latency and count.
	// endpoint is the matched route pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// SecretSource produces the masked secret shown by the page handlers.
// *secrets.Service is the production implementation.
type SecretSource interface {
	Retrieve(ctx context.Context) secrets.Result
}

// Server encapsulates all dependencies of the HTTP layer, allowing for easy
// injection during testing.
type Server struct {
	Config          *config.Config
	Logger          *slog.Logger
	Secrets         SecretSource
	Metrics         MetricsCollector
	ReadinessProbes []HealthProbe

	// Internal router
	router *chi.Mux
}

// NewServer validates dependencies and prepares an empty router. The caller
// mounts routes with MountRoutes after setting optional fields.
func NewServer(cfg *config.Config, source SecretSource, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("secret source must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:  cfg,
		Logger:  logger,
		Secrets: source,
		router:  chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
// Used by http.Server (local) and the Lambda adapter.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server resources. The HTTP layer itself holds none; the
// listener is drained by the caller's http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
