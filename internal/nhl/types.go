package nhl

import (
	"strings"
	"time"
)

// Metric identifies a per-60 rate stat tracked for an entity.
type Metric string

const (
	MetricGoals   Metric = "G60"
	MetricAssists Metric = "A60"
	MetricShots   Metric = "SOG60"
	MetricBlocks  Metric = "BLK60"
	MetricSavePct Metric = "SV"
)

// SkaterMetrics are the rate stats blended and scored for forwards and defensemen.
var SkaterMetrics = []Metric{MetricGoals, MetricAssists, MetricShots, MetricBlocks}

// Window is a recency bucket over which a rate metric was sampled.
type Window string

const (
	WindowRecent Window = "recent"      // last 10 games
	WindowMid    Window = "mid"         // last 30 days
	WindowSeason Window = "season"      // season to date
	WindowPrior  Window = "priorSeason" // previous season
)

// Role classifies an entity for fallback rates and scoring.
type Role string

const (
	RoleForward Role = "F"
	RoleDefense Role = "D"
	RoleGoalie  Role = "G"
)

// RoleFromPosition maps a free-form position string to a role.
// Anything that is not a goalie or defenseman counts as a forward.
func RoleFromPosition(pos string) Role {
	p := strings.ToUpper(strings.TrimSpace(pos))
	switch {
	case strings.Contains(p, "G"):
		return RoleGoalie
	case strings.Contains(p, "D"):
		return RoleDefense
	default:
		return RoleForward
	}
}

// AssignmentNone is the assignment label for entities with no line or
// power-play unit. It is a real label, not an absent value, so grouping
// downstream never has to special-case nil.
const AssignmentNone = "unassigned"

// Entity is one player or goalie reconciled across all sources for a single
// slate. Entities are rebuilt fresh per run; transformations produce new
// values rather than mutating in place.
type Entity struct {
	CanonicalID string             `json:"canonical_id"`
	PlayerID    *int64             `json:"player_id,omitempty"` // external numeric ID when a source carries one
	Name        string             `json:"name"`
	Team        string             `json:"team"`
	Opponent    string             `json:"opponent"`
	Role        Role               `json:"role"`
	Assignment  string             `json:"assignment"`
	Rates       map[Metric]*float64 `json:"rates"` // blended per-60 rates; nil means no data, never zero
	Salary      *float64           `json:"salary,omitempty"`

	// MissingBaseline marks entities with no prior-season history
	// (rookies, call-ups). Informational only.
	MissingBaseline bool `json:"missing_baseline,omitempty"`
}

// MetricWindow is one sampled value of a metric over one recency window.
type MetricWindow struct {
	Metric Metric   `json:"metric"`
	Window Window   `json:"window"`
	Value  *float64 `json:"value,omitempty"`
}

// TeamContext carries a team's pace/defense rates. Every field is optional;
// the league averages in config supply fallbacks.
type TeamContext struct {
	Team              string   `json:"team"`
	ShotsFor60        *float64 `json:"shots_for_60,omitempty"`         // SF/60
	ShotsAllowed60    *float64 `json:"shots_allowed_60,omitempty"`     // SA/60
	AttemptsAllowed60 *float64 `json:"attempts_allowed_60,omitempty"`  // CA/60
	XGoalsAllowed60   *float64 `json:"xgoals_allowed_60,omitempty"`    // xGA/60
	LastUpdated       time.Time `json:"last_updated,omitempty"`
}

// OpponentMap maps each team playing today to its opponent. Teams with no
// scheduled game are simply absent.
type OpponentMap map[string]string

// Game is one scheduled matchup.
type Game struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// BuildOpponentMap derives the team -> opponent map from the day's schedule.
func BuildOpponentMap(games []Game) OpponentMap {
	m := make(OpponentMap, len(games)*2)
	for _, g := range games {
		if g.Home == "" || g.Away == "" {
			continue
		}
		m[g.Home] = g.Away
		m[g.Away] = g.Home
	}
	return m
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 {
	return &v
}
