package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// mockHealthProbe implements HealthProbe for testing.
type mockHealthProbe struct {
	name     string
	checkErr error
	// delay simulates slow dependencies; Check blocks for this duration.
	delay time.Duration
	// panicValue, if set, makes Check panic.
	panicValue any
	called     atomic.Bool
}

func (m *mockHealthProbe) Name() string { return m.name }

func (m *mockHealthProbe) Check(ctx context.Context) error {
	m.called.Store(true)
	if m.panicValue != nil {
		panic(m.panicValue)
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.checkErr
}

func newTestServerForHealth(probes ...HealthProbe) *Server {
	srv, _ := NewServer(testConfig(), &stubSource{}, discardLogger())
	srv.ReadinessProbes = probes
	return srv
}

func decodeReadiness(t *testing.T, rec *httptest.ResponseRecorder) readinessResponse {
	t.Helper()
	var resp readinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandleHealth_FixedPayload(t *testing.T) {
	source := &stubSource{}
	srv, _ := NewServer(testConfig(), source, discardLogger())
	srv.ReadinessProbes = []HealthProbe{&mockHealthProbe{name: "secret_store", checkErr: errors.New("down")}}

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"status":"healthy","service":"aws-devops-demo"}` {
		t.Errorf("unexpected body: %s", got)
	}
	if source.calls.Load() != 0 {
		t.Error("/health must not touch the secret store")
	}
}

func TestHandleHealth_IgnoresServiceNameOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Service = "checkout-api"
	srv, _ := NewServer(cfg, &stubSource{}, discardLogger())

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"status":"healthy","service":"aws-devops-demo"}` {
		t.Errorf("unexpected body: %s", got)
	}
}

func TestHandleReady_AllHealthy(t *testing.T) {
	srv := newTestServerForHealth(&mockHealthProbe{name: "secret_store"}, &mockHealthProbe{name: "metrics"})

	rec := httptest.NewRecorder()
	srv.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	resp := decodeReadiness(t, rec)
	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
	for name, c := range resp.Components {
		if c.Status != "healthy" {
			t.Errorf("component %s: expected healthy, got %q", name, c.Status)
		}
	}
}

func TestHandleReady_OneUnhealthy(t *testing.T) {
	srv := newTestServerForHealth(
		&mockHealthProbe{name: "secret_store", checkErr: errors.New("AccessDeniedException")},
		&mockHealthProbe{name: "metrics"},
	)

	rec := httptest.NewRecorder()
	srv.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	resp := decodeReadiness(t, rec)
	if resp.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %q", resp.Status)
	}
	if c := resp.Components["secret_store"]; c.Status != "unhealthy" || c.Message != "AccessDeniedException" {
		t.Errorf("unexpected secret_store component: %+v", c)
	}
	if c := resp.Components["metrics"]; c.Status != "healthy" {
		t.Errorf("unexpected metrics component: %+v", c)
	}
}

func TestHandleReady_Timeout(t *testing.T) {
	srv := newTestServerForHealth(&mockHealthProbe{name: "secret_store", delay: 10 * time.Second})

	start := time.Now()
	rec := httptest.NewRecorder()
	srv.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if elapsed := time.Since(start); elapsed > readinessTimeout+time.Second {
		t.Errorf("readiness check took %v, expected at most ~%v", elapsed, readinessTimeout)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	resp := decodeReadiness(t, rec)
	if resp.Components["secret_store"].Status != "unhealthy" {
		t.Errorf("slow probe should be unhealthy, got %+v", resp.Components["secret_store"])
	}
}

func TestHandleReady_NoProbes(t *testing.T) {
	srv := newTestServerForHealth()

	rec := httptest.NewRecorder()
	srv.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	resp := decodeReadiness(t, rec)
	if resp.Status != "healthy" || resp.Components != nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleReady_ConcurrentExecution(t *testing.T) {
	srv := newTestServerForHealth(
		&mockHealthProbe{name: "a", delay: 300 * time.Millisecond},
		&mockHealthProbe{name: "b", delay: 300 * time.Millisecond},
		&mockHealthProbe{name: "c", delay: 300 * time.Millisecond},
	)

	start := time.Now()
	rec := httptest.NewRecorder()
	srv.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if elapsed := time.Since(start); elapsed > 800*time.Millisecond {
		t.Errorf("probes appear to run sequentially: took %v", elapsed)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestHandleReady_ProbePanic(t *testing.T) {
	panicky := &mockHealthProbe{name: "secret_store", panicValue: "boom"}
	srv := newTestServerForHealth(panicky)

	rec := httptest.NewRecorder()
	srv.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	resp := decodeReadiness(t, rec)
	if msg := resp.Components["secret_store"].Message; msg != "probe panicked: boom" {
		t.Errorf("unexpected message %q", msg)
	}
	if !panicky.called.Load() {
		t.Error("probe was not called")
	}
}
