package handlers

import (
	"net/http"
	"time"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/queries"
)

type (
	livenessResponse struct {
		Status    model.HealthStatus `json:"status"`
		Timestamp time.Time          `json:"timestamp"`
		Version   string             `json:"version"`
	}

	dependencyCheckResponse struct {
		Status      model.DependencyStatus `json:"status"`
		LatencyMs   uint64                 `json:"latencyMs"`
		Message     string                 `json:"message,omitempty"`
		LastChecked time.Time              `json:"lastChecked"`
	}

	readinessResponse struct {
		Status    model.HealthStatus                 `json:"status"`
		Timestamp time.Time                          `json:"timestamp"`
		Version   string                             `json:"version"`
		Checks    map[string]dependencyCheckResponse `json:"checks"`
	}

	HealthHandler struct {
		app    *usecases.WebApplication
		logger logger.Logger
	}
)

func NewHealthHandler(app *usecases.WebApplication, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		app:    app,
		logger: log,
	}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchLiveness.Execute(r.Context(), queries.FetchLivenessQuery{})
	if err != nil {
		writeUseCaseError(w, r, h.logger, err)

		return
	}

	writeJSONResponse(w, http.StatusOK, livenessResponse{
		Status:    report.Status,
		Timestamp: report.Timestamp,
		Version:   report.Version,
	})
}

// Readiness reports the dependency checks; it answers 503 once a critical
// dependency is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Queries.FetchReadiness.Execute(r.Context(), queries.FetchReadinessQuery{})
	if err != nil {
		writeUseCaseError(w, r, h.logger, err)

		return
	}

	checks := make(map[string]dependencyCheckResponse, len(report.Checks))
	for name, check := range report.Checks {
		checks[name] = dependencyCheckResponse(check)
	}

	status := http.StatusOK
	if report.Status == model.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, status, readinessResponse{
		Status:    report.Status,
		Timestamp: report.Timestamp,
		Version:   report.Version,
		Checks:    checks,
	})
}
