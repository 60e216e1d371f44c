package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chunkrelay/internal/contextutil"
)

// Pinger reports whether a remote dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	converter          Pinger
	converterName      string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. A nil converter means the
// engine runs in-process and is always reported as ok.
func NewHealthHandler(converter Pinger, converterName string) *HealthHandler {
	return &HealthHandler{
		converter:          converter,
		converterName:      converterName,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK if healthy, 503 Service Unavailable if the conversion
// engine cannot be reached.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"engine": h.converterName}
	var issues []string

	if h.converter == nil {
		checks["converter"] = "ok"
	} else if err := h.converter.Ping(checkCtx); err != nil {
		logger.WarnContext(ctx, "converter health check failed", "error", err)
		checks["converter"] = "error"
		issues = append(issues, "converter_unavailable")
	} else {
		checks["converter"] = "ok"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
