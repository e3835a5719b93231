package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/bankrates/internal/ingest"
	"github.com/rickgao/bankrates/internal/model"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReportSource exposes the most recent ingestion cycle.
type ReportSource interface {
	LastReport() (ingest.CycleReport, bool)
}

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"  // serving, but the last cycle had failures
	StatusUnhealthy = "unhealthy" // a dependency is unreachable
)

// Health is the /health response body.
type Health struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// HealthChecker builds Health from dependency pings and the last cycle.
type HealthChecker struct {
	Deps    map[string]Pinger // component name -> dependency
	Reports ReportSource      // optional
	Timeout time.Duration
}

// Check pings every dependency and summarizes the last cycle.
func (h HealthChecker) Check(ctx context.Context) Health {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	health := Health{
		Status:     StatusHealthy,
		Components: make(map[string]any),
	}

	for name, p := range h.Deps {
		if err := p.Ping(ctx); err != nil {
			health.Status = StatusUnhealthy
			health.Components[name] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
			continue
		}
		health.Components[name] = "connected"
	}

	if h.Reports != nil {
		report, ok := h.Reports.LastReport()
		if !ok {
			health.Components["last_cycle"] = "pending"
		} else {
			failed := make([]model.Source, 0)
			for _, o := range report.Failed() {
				failed = append(failed, o.Source)
			}
			health.Components["last_cycle"] = map[string]any{
				"started_at": report.StartedAt,
				"duration":   report.Duration.String(),
				"written":    report.TotalWritten(),
				"failed":     failed,
			}
			if len(failed) > 0 && health.Status == StatusHealthy {
				health.Status = StatusDegraded
			}
		}
	}

	return health
}

// StatusCode maps a Health to its HTTP status.
func (h Health) StatusCode() int {
	if h.Status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Handler returns a plain net/http handler serving /health, for processes
// that do not run the full API.
func (h HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(health.StatusCode())
		json.NewEncoder(w).Encode(health)
	})
	return mux
}
