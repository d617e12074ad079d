package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	runs RunSource
}

func NewHealthHandler(runs RunSource) *HealthHandler {
	return &HealthHandler{
		runs: runs,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "nhl-projections",
	})
}

// GetReady returns readiness status - only returns 200 once a slate has been
// built, so load balancers don't route to an instance with nothing to serve
func (h *HealthHandler) GetReady(c *gin.Context) {
	run, err := h.runs.Latest()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"run_id":     run.RunID,
		"slate_date": run.SlateDate,
		"built_at":   run.BuiltAt,
	})
}
