package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/adpsports/nhl-projections/internal/projections"
	"github.com/adpsports/nhl-projections/internal/services"
	"github.com/adpsports/nhl-projections/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RunSource serves the most recent slate build and can trigger a rebuild.
type RunSource interface {
	Latest() (*services.RunResult, error)
	RefreshNow(ctx context.Context) (*services.RunResult, error)
}

// RunCache looks up previously built slates by date.
type RunCache interface {
	Cached(ctx context.Context, slateDate string) (*services.RunResult, bool)
}

type ProjectionsHandler struct {
	runs   RunSource
	cache  RunCache
	logger *logrus.Logger
}

func NewProjectionsHandler(runs RunSource, cache RunCache, logger *logrus.Logger) *ProjectionsHandler {
	return &ProjectionsHandler{
		runs:   runs,
		cache:  cache,
		logger: logger,
	}
}

// GetRun returns the full latest run: games, skaters, goalies, and stacks.
// With ?date=YYYY-MM-DD it serves that slate's cached run instead.
func (h *ProjectionsHandler) GetRun(c *gin.Context) {
	run, ok := h.resolveRun(c)
	if !ok {
		return
	}
	utils.SendSuccess(c, run)
}

// GetSkaters returns skater projections for the latest run, optionally
// filtered by team.
func (h *ProjectionsHandler) GetSkaters(c *gin.Context) {
	run, ok := h.resolveRun(c)
	if !ok {
		return
	}

	skaters := run.Skaters
	if team := strings.ToUpper(c.Query("team")); team != "" {
		filtered := make([]projections.SkaterProjection, 0, len(skaters))
		for _, s := range skaters {
			if s.Team == team {
				filtered = append(filtered, s)
			}
		}
		skaters = filtered
	}

	utils.SendSuccessWithMeta(c, skaters, &utils.Meta{
		Total:     len(skaters),
		SlateDate: run.SlateDate,
		RunID:     run.RunID,
	})
}

// GetGoalies returns goalie projections for the latest run, optionally
// filtered by team.
func (h *ProjectionsHandler) GetGoalies(c *gin.Context) {
	run, ok := h.resolveRun(c)
	if !ok {
		return
	}

	goalies := run.Goalies
	if team := strings.ToUpper(c.Query("team")); team != "" {
		filtered := make([]projections.GoalieProjection, 0, len(goalies))
		for _, g := range goalies {
			if g.Team == team {
				filtered = append(filtered, g)
			}
		}
		goalies = filtered
	}

	utils.SendSuccessWithMeta(c, goalies, &utils.Meta{
		Total:     len(goalies),
		SlateDate: run.SlateDate,
		RunID:     run.RunID,
	})
}

// GetStacks returns line and power-play stacks for the latest run, optionally
// filtered by team.
func (h *ProjectionsHandler) GetStacks(c *gin.Context) {
	run, ok := h.resolveRun(c)
	if !ok {
		return
	}

	stacks := run.Stacks
	if team := strings.ToUpper(c.Query("team")); team != "" {
		filtered := make([]projections.Stack, 0, len(stacks))
		for _, s := range stacks {
			if s.Team == team {
				filtered = append(filtered, s)
			}
		}
		stacks = filtered
	}

	utils.SendSuccessWithMeta(c, stacks, &utils.Meta{
		Total:     len(stacks),
		SlateDate: run.SlateDate,
		RunID:     run.RunID,
	})
}

// GetGames returns the slate's schedule from the latest run.
func (h *ProjectionsHandler) GetGames(c *gin.Context) {
	run, ok := h.resolveRun(c)
	if !ok {
		return
	}
	utils.SendSuccessWithMeta(c, run.Games, &utils.Meta{
		Total:     len(run.Games),
		SlateDate: run.SlateDate,
		RunID:     run.RunID,
	})
}

// Refresh rebuilds the current slate synchronously and returns the new run.
func (h *ProjectionsHandler) Refresh(c *gin.Context) {
	run, err := h.runs.RefreshNow(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("On-demand refresh failed")
		utils.SendError(c, http.StatusBadGateway, utils.NewAppError(utils.ErrCodeSource, "Refresh failed", err.Error()))
		return
	}
	utils.SendSuccess(c, run)
}

// resolveRun picks the run a request addresses: an explicit ?date slate from
// the cache, otherwise the latest build. Replies with the appropriate error
// itself and reports false when no run can be served.
func (h *ProjectionsHandler) resolveRun(c *gin.Context) (*services.RunResult, bool) {
	if date := c.Query("date"); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			utils.SendValidationError(c, "Invalid date, expected YYYY-MM-DD", err.Error())
			return nil, false
		}
		run, ok := h.cache.Cached(c.Request.Context(), date)
		if !ok {
			utils.SendNotFound(c, "No run cached for "+date)
			return nil, false
		}
		return run, true
	}

	run, err := h.runs.Latest()
	if err != nil {
		_ = c.Error(err)
		utils.SendUnavailable(c, err.Error())
		return nil, false
	}
	return run, true
}
