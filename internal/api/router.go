package api

import (
	"github.com/adpsports/nhl-projections/internal/api/handlers"
	"github.com/adpsports/nhl-projections/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, refresher *services.RefreshService, pipeline *services.PipelineService, logger *logrus.Logger) {
	projectionsHandler := handlers.NewProjectionsHandler(refresher, pipeline, logger)
	healthHandler := handlers.NewHealthHandler(refresher)

	// Run endpoints
	group.GET("/run", projectionsHandler.GetRun)
	group.GET("/games", projectionsHandler.GetGames)

	// Projection endpoints
	group.GET("/projections/skaters", projectionsHandler.GetSkaters)
	group.GET("/projections/goalies", projectionsHandler.GetGoalies)
	group.GET("/projections/stacks", projectionsHandler.GetStacks)
	group.POST("/projections/refresh", projectionsHandler.Refresh)

	// Readiness endpoint (liveness is registered at the server root)
	group.GET("/ready", healthHandler.GetReady)
}
