package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
)

const readinessCheckTimeout = 5 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	checks  map[string]CheckFunc
	log     logging.Logger
}

// NewHealthHandler builds the probe handler. checks maps a component name
// (e.g. "postgres", "redis") to its probe; nil checks means always ready.
func NewHealthHandler(version string, checks map[string]CheckFunc, log logging.Logger) *HealthHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HealthHandler{
		version: version,
		checks:  checks,
		log:     log.Named("health"),
	}
}

// Liveness reports that the process is up.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Readiness probes every registered dependency and reports 503 when any
// fails. Individual component states are always included so operators can
// see which dependency is degraded.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			healthy = false
			components[name] = "unhealthy"
			h.log.Warn("readiness check failed",
				logging.String("component", name),
				logging.Err(err))
			continue
		}
		components[name] = "healthy"
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status":     state,
		"version":    h.version,
		"components": components,
	})
}
