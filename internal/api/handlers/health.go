package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/niftron/pkg/database"
	"github.com/wonny/niftron/pkg/logger"
)

// HealthChecker reports database reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler reports service health
type HealthHandler struct {
	db     HealthChecker
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: log}
}

// Health returns server health status
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	dbStatus, err := h.db.HealthCheck(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Database health check failed")
		status, code = "degraded", http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]interface{}{
		"status":   status,
		"service":  "niftron-api",
		"database": dbStatus,
	})
}
