package core

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"devopsdemo/internal/types"
)

// maxRequestIDLength caps propagated X-Request-Id values. Longer values are
// replaced with a generated ID.
const maxRequestIDLength = 128

// compressMinSize is the smallest response body gzip is applied to.
const compressMinSize = 512

// defaultRedactedHeaders lists header names whose values are masked in request
// logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Amz-Security-Token",
}

// MountRoutes registers the global middleware chain and every route.
func (s *Server) MountRoutes() error {
	if err := s.registerGlobalMiddleware(); err != nil {
		return err
	}

	s.router.Get("/", s.HandleIndex)
	s.router.Get("/health", s.HandleHealth)
	s.router.Get("/api/info", s.HandleInfo)
	s.router.Get("/ready", s.HandleReady)
	s.router.Get("/version", s.HandleVersion)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "route not found", nil).
			WithDetails(requestDetails(r)))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeMethodNotAllowed, "method not allowed", nil).
			WithDetails(requestDetails(r)))
	})
	return nil
}

// requestDetails echoes the rejected method and path in error envelopes.
func requestDetails(r *http.Request) map[string]any {
	return map[string]any{"method": r.Method, "path": r.URL.Path}
}

// registerGlobalMiddleware applies middleware in strict order.
//
//  1. Recoverer        - outermost, so every panic becomes a 500 envelope.
//  2. RequestID        - correlation ID and request-scoped logger.
//  3. SecurityHeaders  - present on every response, errors included.
//  4. RequestLogger    - structured access log with redacted headers.
//  5. Metrics          - request count and latency per route pattern.
//  6. Compression      - innermost, so the layers above see the real status.
func (s *Server) registerGlobalMiddleware() error {
	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		return err
	}

	s.router.Use(s.Recoverer)
	s.router.Use(s.RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(s.MetricsMiddleware)
	s.router.Use(func(next http.Handler) http.Handler { return gzip(next) })
	return nil
}

// RequestIDMiddleware propagates the caller's X-Request-Id or generates a
// UUID. The ID is stored in the context together with a logger that carries
// it, and echoed in the response header.
func (s *Server) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		ctx = types.WithLogger(ctx, s.Logger.With("request_id", requestID))

		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
