package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	logger *slog.Logger
	db     *sql.DB
}

// NewHealthHandler creates a new health handler.
// db may be nil; the database component is then reported as skipped.
func NewHealthHandler(logger *slog.Logger, db *sql.DB) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		db:     db,
	}
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health
// Verifies database connectivity in addition to process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "healthy",
		Components: map[string]string{
			"api":      "healthy",
			"database": "skipped",
		},
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check: database unreachable", slog.Any("error", err))
			resp.Status = "unhealthy"
			resp.Components["database"] = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			resp.Components["database"] = "healthy"
		}
	}

	sendJSON(h.logger, w, resp, status)
}
