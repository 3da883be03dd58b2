package core

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devopsdemo/internal/secrets"
	"devopsdemo/internal/types"
)

// newTestServerForRoutes creates a fully-wired test Server with MountRoutes called.
func newTestServerForRoutes(t *testing.T, source SecretSource) (*Server, *mockMetricsCollector) {
	t.Helper()

	srv, err := NewServer(testConfig(), source, discardLogger())
	require.NoError(t, err)

	metrics := &mockMetricsCollector{}
	srv.Metrics = metrics
	require.NoError(t, srv.MountRoutes())
	return srv, metrics
}

func serve(srv *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMountRoutes_MiddlewareCount(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})
	assert.Len(t, srv.Router().Middlewares(), 6)
}

func TestMountRoutes_RegisteredRoutes(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{result: secrets.Result{Masked: "****"}})

	for _, path := range []string{"/", "/health", "/api/info", "/ready", "/version"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestMountRoutes_NotFound(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})

	rec := serve(srv, http.MethodGet, "/does-not-exist", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeNotFoundRoute), resp.Error.Code)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), resp.Error.RequestID)
	assert.Equal(t, map[string]any{"method": "GET", "path": "/does-not-exist"}, resp.Error.Details)
}

func TestMountRoutes_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})

	rec := serve(srv, http.MethodPost, "/api/info", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeMethodNotAllowed), resp.Error.Code)
	assert.Equal(t, map[string]any{"method": "POST", "path": "/api/info"}, resp.Error.Details)
}

func TestMountRoutes_SecurityHeaders(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})

	rec := serve(srv, http.MethodGet, "/health", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestMountRoutes_RequestIDGenerated(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})

	rec := serve(srv, http.MethodGet, "/health", nil)

	id := rec.Header().Get("X-Request-Id")
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated request ID should be a UUID, got %q", id)
}

func TestMountRoutes_RequestIDPropagated(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})

	rec := serve(srv, http.MethodGet, "/health", http.Header{"X-Request-Id": {"trace-abc-123"}})

	assert.Equal(t, "trace-abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDMiddleware_RejectsOversizedID(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})

	long := strings.Repeat("x", maxRequestIDLength+1)
	rec := serve(srv, http.MethodGet, "/health", http.Header{"X-Request-Id": {long}})

	assert.NotEqual(t, long, rec.Header().Get("X-Request-Id"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDMiddleware_InjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	srv, err := NewServer(testConfig(), &stubSource{}, slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, err)

	handler := srv.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types.LoggerFromContext(r.Context(), nil).Info("inside handler")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), "inside handler")
}

func TestMountRoutes_MetricsUseRoutePattern(t *testing.T) {
	srv, metrics := newTestServerForRoutes(t, &stubSource{})

	serve(srv, http.MethodGet, "/api/info", nil)
	serve(srv, http.MethodGet, "/wp-admin/setup.php", nil)

	require.Len(t, metrics.calls, 2)
	assert.Equal(t, "/api/info", metrics.calls[0].endpoint)
	assert.Equal(t, "200", metrics.calls[0].status)
	assert.Equal(t, unmatchedRoute, metrics.calls[1].endpoint)
	assert.Equal(t, "404", metrics.calls[1].status)
}

func TestMountRoutes_GzipCompression(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})
	payload := strings.Repeat("masked secret ", 200)
	srv.Router().Get("/large", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, payload)
	})

	rec := serve(srv, http.MethodGet, "/large", http.Header{"Accept-Encoding": {"gzip"}})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestMountRoutes_NoGzipWithoutAcceptEncoding(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})
	srv.Router().Get("/large", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("a", 4096))
	})

	rec := serve(srv, http.MethodGet, "/large", nil)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, 4096, rec.Body.Len())
}

func TestMountRoutes_RecovererCatchesPanics(t *testing.T) {
	srv, _ := newTestServerForRoutes(t, &stubSource{})
	srv.Router().Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := serve(srv, http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
}
