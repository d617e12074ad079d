package projections

import "github.com/adpsports/nhl-projections/internal/nhl"

// LeagueAverages are the league-wide rates used as denominators for opponent
// factors and as last-resort context fallbacks. Externally configured.
type LeagueAverages struct {
	SavePct           float64 `json:"save_pct"`
	ShotsFor60        float64 `json:"shots_for_60"`
	ShotsAllowed60    float64 `json:"shots_allowed_60"`
	AttemptsAllowed60 float64 `json:"attempts_allowed_60"`
	XGoalsAllowed60   float64 `json:"xgoals_allowed_60"`
}

// AssignmentMultipliers maps assignment labels (line, pairing, power-play
// unit) to a multiplicative opportunity factor. Unknown labels and
// "unassigned" resolve to 1.0.
type AssignmentMultipliers map[string]float64

// Factor returns the multiplier for an assignment label, neutral by default.
func (m AssignmentMultipliers) Factor(assignment string) float64 {
	if v, ok := m[assignment]; ok {
		return v
	}
	return 1.0
}

// AdjustedEntity is an entity with context-adjusted per-60 rates alongside
// its blended baselines.
type AdjustedEntity struct {
	nhl.Entity
	Adjusted map[nhl.Metric]*float64 `json:"adjusted"`
}

// Factors are the independent multiplicative context factors for one entity.
// Each is exactly 1.0 when the underlying data is unavailable; factors are
// never extrapolated.
type Factors struct {
	Shots      float64 `json:"shots"`       // opponent shots allowed vs league
	XGoals     float64 `json:"xgoals"`      // opponent expected goals allowed vs league
	Blocks     float64 `json:"blocks"`      // opponent attempt volume, shrunk toward neutral
	Assignment float64 `json:"assignment"`  // line / PP unit opportunity
}

// ComputeFactors derives the context factors for an entity facing opp.
// opp nil means the opponent's table was unavailable: all opponent factors
// stay neutral. The block factor shrinks the opponent attempts-against ratio
// halfway toward 1.0 since blocked-shot volume tracks attempt volume loosely.
func ComputeFactors(e nhl.Entity, opp *nhl.TeamContext, league LeagueAverages, mult AssignmentMultipliers) Factors {
	f := Factors{Shots: 1.0, XGoals: 1.0, Blocks: 1.0, Assignment: mult.Factor(e.Assignment)}
	if opp == nil {
		return f
	}
	if opp.ShotsAllowed60 != nil && league.ShotsAllowed60 > 0 {
		f.Shots = *opp.ShotsAllowed60 / league.ShotsAllowed60
	}
	if opp.XGoalsAllowed60 != nil && league.XGoalsAllowed60 > 0 {
		f.XGoals = *opp.XGoalsAllowed60 / league.XGoalsAllowed60
	}
	if opp.AttemptsAllowed60 != nil && league.AttemptsAllowed60 > 0 {
		ratio := *opp.AttemptsAllowed60 / league.AttemptsAllowed60
		f.Blocks = 1.0 + (ratio-1.0)/2
	}
	return f
}

// Adjust applies the context factors to an entity's blended rates and returns
// a new AdjustedEntity; the input is not modified. Goal- and assist-type
// metrics scale by the expected-goals factor, shots by the shot factor,
// blocks by the shrunk attempt factor, and everything by the assignment
// factor. All factors are independent and multiplicative, so application
// order cannot matter.
func Adjust(e nhl.Entity, opp *nhl.TeamContext, league LeagueAverages, mult AssignmentMultipliers) AdjustedEntity {
	f := ComputeFactors(e, opp, league, mult)

	adjusted := make(map[nhl.Metric]*float64, len(e.Rates))
	for m, v := range e.Rates {
		if v == nil {
			adjusted[m] = nil
			continue
		}
		var factor float64
		switch m {
		case nhl.MetricGoals, nhl.MetricAssists:
			factor = f.XGoals * f.Assignment
		case nhl.MetricShots:
			factor = f.Shots * f.Assignment
		case nhl.MetricBlocks:
			factor = f.Blocks * f.Assignment
		default:
			// Save fraction and anything unrecognized pass through untouched.
			factor = 1.0
		}
		adjusted[m] = nhl.Float(*v * factor)
	}

	return AdjustedEntity{Entity: e, Adjusted: adjusted}
}
