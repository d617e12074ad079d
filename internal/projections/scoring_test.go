package projections

import (
	"testing"

	"github.com/adpsports/nhl-projections/internal/nhl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWeights = ScoringWeights{
	WeightGoal:         8.5,
	WeightAssist:       5.0,
	WeightShot:         1.5,
	WeightBlock:        1.3,
	WeightSave:         0.7,
	WeightGoalsAgainst: -3.5,
	WeightWin:          6,
}

func TestScoringWeightsValidate(t *testing.T) {
	assert.NoError(t, testWeights.Validate())

	incomplete := ScoringWeights{WeightGoal: 8.5}
	err := incomplete.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Assist")
}

func TestScoreSkaterEndToEnd(t *testing.T) {
	// One forward with a recent-only G/60 of 1.0, on the top line, salary
	// 8000, facing an opponent allowing 3.0 xG/60 against a 2.65 league
	// average, with a 1.12 top-line multiplier and an 8.5 goal weight.
	weights := ScoringWeights{
		WeightGoal: 8.5, WeightAssist: 0, WeightShot: 0, WeightBlock: 0,
		WeightSave: 0.7, WeightGoalsAgainst: -3.5,
	}
	blended := Blend(f(1.0), nil, nil, DefaultBlendWeights)
	require.NotNil(t, blended)
	assert.InDelta(t, 1.0, *blended, 1e-9, "single window blends to itself")

	e := nhl.Entity{
		Name:       "Test Forward",
		Team:       "PIT",
		Opponent:   "WSH",
		Role:       nhl.RoleForward,
		Assignment: "top line",
		Salary:     f(8000),
		Rates:      map[nhl.Metric]*float64{nhl.MetricGoals: blended},
	}
	opp := &nhl.TeamContext{Team: "WSH", XGoalsAllowed60: f(3.0)}
	mult := AssignmentMultipliers{"top line": 1.12}

	adj := Adjust(e, opp, testLeague, mult)
	require.NotNil(t, adj.Adjusted[nhl.MetricGoals])
	assert.InDelta(t, 1.2679, *adj.Adjusted[nhl.MetricGoals], 1e-3)

	p := ScoreSkater(adj, weights)
	assert.InDelta(t, 10.777, p.Points, 1e-2)
	require.NotNil(t, p.Value)
	assert.InDelta(t, 1.347, *p.Value, 1e-2)
}

func TestScoreSkaterAllMetrics(t *testing.T) {
	adj := AdjustedEntity{
		Entity: nhl.Entity{Name: "x", Salary: f(5000)},
		Adjusted: map[nhl.Metric]*float64{
			nhl.MetricGoals:   f(0.5),
			nhl.MetricAssists: f(1.0),
			nhl.MetricShots:   f(6.0),
			nhl.MetricBlocks:  f(2.0),
		},
	}
	p := ScoreSkater(adj, testWeights)
	expected := 0.5*8.5 + 1.0*5.0 + 6.0*1.5 + 2.0*1.3
	assert.InDelta(t, expected, p.Points, 1e-9)
	require.NotNil(t, p.Value)
	assert.InDelta(t, expected/5.0, *p.Value, 1e-9)
}

func TestValueScoreAbsentWithoutSalary(t *testing.T) {
	adj := AdjustedEntity{
		Entity:   nhl.Entity{Name: "no salary"},
		Adjusted: map[nhl.Metric]*float64{nhl.MetricGoals: f(1.0)},
	}
	assert.Nil(t, ScoreSkater(adj, testWeights).Value)

	adj.Salary = f(0)
	assert.Nil(t, ScoreSkater(adj, testWeights).Value, "zero salary never divides")

	adj.Salary = f(-100)
	assert.Nil(t, ScoreSkater(adj, testWeights).Value)
}

func TestScoreGoalie(t *testing.T) {
	e := nhl.Entity{
		Name:  "Test Goalie",
		Team:  "NYR",
		Role:  nhl.RoleGoalie,
		Rates: map[nhl.Metric]*float64{nhl.MetricSavePct: f(0.905)},
	}
	opp := &nhl.TeamContext{Team: "NJD", ShotsFor60: f(31.0)}

	p := ScoreGoalie(e, opp, testLeague, testWeights)
	assert.InDelta(t, 28.055, p.ProjSaves, 1e-9)
	assert.InDelta(t, 2.945, p.ProjGoalsAgainst, 1e-9)
	assert.InDelta(t, 9.331, p.Points, 1e-9)
	assert.Nil(t, p.Value)
}

func TestScoreGoalieFallbacks(t *testing.T) {
	e := nhl.Entity{
		Name:  "Unknown Goalie",
		Role:  nhl.RoleGoalie,
		Rates: map[nhl.Metric]*float64{nhl.MetricSavePct: nil},
	}
	p := ScoreGoalie(e, nil, testLeague, testWeights)
	assert.InDelta(t, testLeague.SavePct, p.SavePct, 1e-9)
	assert.InDelta(t, testLeague.ShotsFor60*testLeague.SavePct, p.ProjSaves, 1e-9)
}

func TestBuildStacks(t *testing.T) {
	skaters := []SkaterProjection{
		{
			AdjustedEntity: AdjustedEntity{Entity: nhl.Entity{Name: "A", Team: "PIT", Assignment: "L1", Salary: f(7000)}},
			Points:         5.0,
		},
		{
			AdjustedEntity: AdjustedEntity{Entity: nhl.Entity{Name: "B", Team: "PIT", Assignment: "L1", Salary: f(5000)}},
			Points:         3.2,
		},
		{
			AdjustedEntity: AdjustedEntity{Entity: nhl.Entity{Name: "C", Team: "PIT", Assignment: "L2"}},
			Points:         4.0,
		},
	}

	stacks := BuildStacks(skaters)
	require.Len(t, stacks, 2)

	// Highest combined points first.
	assert.Equal(t, "L1", stacks[0].Assignment)
	assert.InDelta(t, 8.2, stacks[0].Points, 1e-9)
	require.NotNil(t, stacks[0].Cost)
	assert.InDelta(t, 12000, *stacks[0].Cost, 1e-9)
	require.NotNil(t, stacks[0].Value)
	assert.InDelta(t, 0.6833, *stacks[0].Value, 1e-4)
	assert.Equal(t, []string{"A", "B"}, stacks[0].Players)

	// No member salaries: no cost, no value.
	assert.Equal(t, "L2", stacks[1].Assignment)
	assert.Nil(t, stacks[1].Cost)
	assert.Nil(t, stacks[1].Value)
}
