package projections

import (
	"fmt"

	"github.com/adpsports/nhl-projections/internal/nhl"
)

// Scoring weight keys. These mirror the site's scoring categories.
const (
	WeightGoal         = "Goal"
	WeightAssist       = "Assist"
	WeightShot         = "SOG"
	WeightBlock        = "Block"
	WeightSave         = "Save"
	WeightGoalsAgainst = "GA"
	WeightWin          = "Win"
)

// ScoringWeights maps scoring categories to fantasy points per unit.
// Externally configured; GA is negative.
type ScoringWeights map[string]float64

// Validate checks that every referenced scoring category has a weight.
// A structurally incomplete weight table is the one fatal condition in the
// core and must be rejected before any entity processing begins.
func (w ScoringWeights) Validate() error {
	for _, key := range []string{WeightGoal, WeightAssist, WeightShot, WeightBlock, WeightSave, WeightGoalsAgainst} {
		if _, ok := w[key]; !ok {
			return fmt.Errorf("scoring weights missing category %q", key)
		}
	}
	return nil
}

// SkaterProjection is the final per-skater output: adjusted per-game stat
// projections, fantasy points, and salary-relative value.
type SkaterProjection struct {
	AdjustedEntity
	ProjGoals   float64  `json:"proj_goals"`
	ProjAssists float64  `json:"proj_assists"`
	ProjShots   float64  `json:"proj_shots"`
	ProjBlocks  float64  `json:"proj_blocks"`
	Points      float64  `json:"points"`
	Value       *float64 `json:"value,omitempty"`
}

// GoalieProjection is the final per-goalie output. Saves and goals against
// derive from the opponent's shot volume and the blended save fraction.
type GoalieProjection struct {
	nhl.Entity
	SavePct          float64  `json:"save_pct"`
	ProjSaves        float64  `json:"proj_saves"`
	ProjGoalsAgainst float64  `json:"proj_goals_against"`
	Points           float64  `json:"points"`
	Value            *float64 `json:"value,omitempty"`
}

// valueScore is points per thousand dollars of salary, absent whenever
// salary is absent or non-positive. Inf and NaN never escape.
func valueScore(points float64, salary *float64) *float64 {
	if salary == nil || *salary <= 0 {
		return nil
	}
	v := points / (*salary / 1000.0)
	return &v
}

func rate(a AdjustedEntity, m nhl.Metric) float64 {
	if v := a.Adjusted[m]; v != nil {
		return *v
	}
	return 0
}

// ScoreSkater converts an adjusted skater into a fantasy-point projection.
// Adjusted per-60 rates stand in for per-game stat projections on the
// slate's scale.
func ScoreSkater(a AdjustedEntity, w ScoringWeights) SkaterProjection {
	p := SkaterProjection{
		AdjustedEntity: a,
		ProjGoals:      rate(a, nhl.MetricGoals),
		ProjAssists:    rate(a, nhl.MetricAssists),
		ProjShots:      rate(a, nhl.MetricShots),
		ProjBlocks:     rate(a, nhl.MetricBlocks),
	}
	p.Points = p.ProjGoals*w[WeightGoal] +
		p.ProjAssists*w[WeightAssist] +
		p.ProjShots*w[WeightShot] +
		p.ProjBlocks*w[WeightBlock]
	p.Value = valueScore(p.Points, a.Salary)
	return p
}

// ScoreGoalie projects a goalie against the opponent's shot volume:
// saves at the blended save fraction, goals against at its complement.
// Missing opponent data falls back to the league-average shot rate; a
// missing save fraction falls back to the league-average save percentage.
func ScoreGoalie(e nhl.Entity, opp *nhl.TeamContext, league LeagueAverages, w ScoringWeights) GoalieProjection {
	sv := league.SavePct
	if v := e.Rates[nhl.MetricSavePct]; v != nil {
		sv = *v
	}
	oppShots := league.ShotsFor60
	if opp != nil && opp.ShotsFor60 != nil {
		oppShots = *opp.ShotsFor60
	}

	p := GoalieProjection{
		Entity:           e,
		SavePct:          sv,
		ProjSaves:        oppShots * sv,
		ProjGoalsAgainst: oppShots * (1 - sv),
	}
	p.Points = p.ProjSaves*w[WeightSave] + p.ProjGoalsAgainst*w[WeightGoalsAgainst]
	p.Value = valueScore(p.Points, e.Salary)
	return p
}
