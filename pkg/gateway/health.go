package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"tilekeep/pkg/config"
	"tilekeep/pkg/persistence"
	"tilekeep/pkg/room"
)

// HealthStatus is the outcome of a single check or the aggregate response.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of one named health check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// HealthResponse is the aggregate health check payload.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Checks    []CheckResult `json:"checks"`
}

// HealthChecker runs named checks against the gateway's dependencies:
// the room registry, the persistence store, and the loaded configuration.
type HealthChecker struct {
	checks map[string]func(context.Context) error
}

// NewHealthChecker registers the default checks for a running gateway.
func NewHealthChecker(registry *room.Registry, store persistence.Store, cfg *config.Config) *HealthChecker {
	hc := &HealthChecker{checks: make(map[string]func(context.Context) error)}

	hc.RegisterCheck("registry", func(ctx context.Context) error {
		if registry == nil {
			return fmt.Errorf("room registry is not initialized")
		}
		return nil
	})
	hc.RegisterCheck("persistence", func(ctx context.Context) error {
		if store == nil {
			return fmt.Errorf("persistence store is not initialized")
		}
		return nil
	})
	hc.RegisterCheck("configuration", func(ctx context.Context) error {
		if cfg == nil || cfg.ServerPort == 0 {
			return fmt.Errorf("server port not configured")
		}
		return nil
	})

	return hc
}

// RegisterCheck adds a named check, replacing any existing check with the
// same name.
func (hc *HealthChecker) RegisterCheck(name string, check func(context.Context) error) {
	hc.checks[name] = check
}

// RunHealthChecks executes every registered check with a bounded per-check
// timeout and aggregates the results.
func (hc *HealthChecker) RunHealthChecks(ctx context.Context) HealthResponse {
	start := time.Now()
	resp := HealthResponse{
		Timestamp: start,
		Checks:    make([]CheckResult, 0, len(hc.checks)),
		Status:    HealthStatusHealthy,
	}

	for name, check := range hc.checks {
		checkStart := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check(checkCtx)
		cancel()

		result := CheckResult{Name: name, Status: HealthStatusHealthy, Duration: time.Since(checkStart)}
		if err != nil {
			result.Status = HealthStatusUnhealthy
			result.Error = err.Error()
			resp.Status = HealthStatusUnhealthy
			logrus.WithFields(logrus.Fields{"check": name, "error": err}).Error("health check failed")
		}
		resp.Checks = append(resp.Checks, result)
	}

	resp.Duration = time.Since(start)
	return resp
}

// HealthHandler serves the full health report.
func (hc *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := hc.RunHealthChecks(r.Context())

	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logrus.WithError(err).Error("failed to encode health response")
	}
}

// ReadinessHandler reports whether the gateway should receive traffic.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	resp := hc.RunHealthChecks(r.Context())
	if resp.Status == HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Not Ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// LivenessHandler reports basic process liveness.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Alive"))
}
