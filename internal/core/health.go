package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// readinessTimeout is the maximum time allowed for all readiness probes to
// complete. A probe still running at the deadline is reported as timed out.
const readinessTimeout = 2 * time.Second

// HealthProbe defines the interface for a dependency check run by /ready.
type HealthProbe interface {
	// Name returns the component key used in the response (e.g. "secret_store").
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) error
}

// livenessResponse is the fixed /health payload.
type livenessResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// componentStatus represents the state of a single dependency.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// readinessResponse is the JSON body for /ready.
type readinessResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth is the liveness check. It never touches the secret store and
// always answers 200.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, livenessResponse{
		Status:  "healthy",
		Service: healthServiceName,
	})
}

// HandleReady executes all readiness probes concurrently under a 2 second
// deadline derived from the request context. It returns 200 when every probe
// succeeds and 503 otherwise.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	probes := s.ReadinessProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, readinessResponse{Status: "healthy"})
		return
	}

	var (
		mu        sync.Mutex
		completed = make(map[string]error, len(probes))
		wg        sync.WaitGroup
	)

	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("probe panicked: %v", r)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			completed[p.Name()] = err
			mu.Unlock()
		}(probe)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Report whatever finished; the rest count as timed out.
	}

	components := make(map[string]componentStatus, len(probes))
	allHealthy := true

	mu.Lock()
	for _, probe := range probes {
		name := probe.Name()
		err, ok := completed[name]
		switch {
		case !ok:
			allHealthy = false
			components[name] = componentStatus{Status: "unhealthy", Message: "readiness check timed out"}
		case err != nil:
			allHealthy = false
			components[name] = componentStatus{Status: "unhealthy", Message: err.Error()}
		default:
			components[name] = componentStatus{Status: "healthy"}
		}
	}
	mu.Unlock()

	resp := readinessResponse{Components: components}
	if allHealthy {
		resp.Status = "healthy"
		JSON(w, r, http.StatusOK, resp)
		return
	}

	s.Logger.WarnContext(r.Context(), "readiness check failed", "components", components)
	resp.Status = "unhealthy"
	JSON(w, r, http.StatusServiceUnavailable, resp)
}
