package projections

import (
	"testing"

	"github.com/adpsports/nhl-projections/internal/extract"
	"github.com/adpsports/nhl-projections/internal/nhl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOpponents() nhl.OpponentMap {
	return nhl.OpponentMap{"PIT": "WSH", "WSH": "PIT", "COL": "DAL", "DAL": "COL"}
}

func findEntity(entities []nhl.Entity, name string) *nhl.Entity {
	for i := range entities {
		if entities[i].Name == name {
			return &entities[i]
		}
	}
	return nil
}

func TestReconcileRosterDriven(t *testing.T) {
	in := ReconcileInput{
		Roster: []RosterEntry{
			{Name: "Sidney Crosby", Team: "PIT", Position: "C", Salary: f(8000)},
			{Name: "Kris Letang", Team: "PIT", Position: "D", Salary: f(5200)},
		},
		SkaterWindows: map[nhl.Window][]extract.PlayerRatesRow{
			nhl.WindowRecent: {
				{Name: "Crosby, Sidney", Team: "PIT", Goals60: f(1.2), Shots60: f(8.0)},
			},
			nhl.WindowSeason: {
				{Name: "Sidney Crosby", Team: "PIT", Goals60: f(1.0), Assists60: f(2.0)},
			},
			nhl.WindowPrior: {
				{Name: "Sidney Crosby", Team: "PIT", Goals60: f(0.9)},
			},
		},
		Assignments: []extract.LineAssignmentRow{
			{Name: "Sidney Crosby", Team: "PIT", Line: "L1", PPUnit: "PP1"},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}

	res := Reconcile(in)
	require.Len(t, res.Skaters, 2)
	assert.Empty(t, res.Goalies)

	crosby := findEntity(res.Skaters, "Sidney Crosby")
	require.NotNil(t, crosby)
	assert.Equal(t, "SIDNEY CROSBY_PIT", crosby.CanonicalID)
	assert.Equal(t, "WSH", crosby.Opponent)
	assert.Equal(t, "L1", crosby.Assignment, "line label wins over PP unit")
	require.NotNil(t, crosby.Salary)

	// G/60 blends recent 1.2, season 1.0 (mid slot), prior 0.9.
	require.NotNil(t, crosby.Rates[nhl.MetricGoals])
	expected := (0.50*1.2 + 0.35*1.0 + 0.15*0.9) / 1.0
	assert.InDelta(t, expected, *crosby.Rates[nhl.MetricGoals], 1e-9)

	// Assists only exist in the season window.
	require.NotNil(t, crosby.Rates[nhl.MetricAssists])
	assert.InDelta(t, 2.0, *crosby.Rates[nhl.MetricAssists], 1e-9)

	// Shots only in the recent window.
	require.NotNil(t, crosby.Rates[nhl.MetricShots])
	assert.InDelta(t, 8.0, *crosby.Rates[nhl.MetricShots], 1e-9)

	// Blocks never observed: explicitly unset, not zero.
	assert.Nil(t, crosby.Rates[nhl.MetricBlocks])

	// Letang matched no stat rows: every rate unset, flagged, defaulted.
	letang := findEntity(res.Skaters, "Kris Letang")
	require.NotNil(t, letang)
	assert.True(t, letang.MissingBaseline)
	assert.Equal(t, nhl.AssignmentNone, letang.Assignment)
	for _, m := range nhl.SkaterMetrics {
		assert.Nil(t, letang.Rates[m])
	}
}

func TestReconcileRetainsUnmatchedStatRows(t *testing.T) {
	in := ReconcileInput{
		Roster: []RosterEntry{
			{Name: "Sidney Crosby", Team: "PIT", Position: "C"},
		},
		SkaterWindows: map[nhl.Window][]extract.PlayerRatesRow{
			nhl.WindowSeason: {
				{Name: "Sidney Crosby", Team: "PIT", Goals60: f(1.0)},
				{Name: "Recent Callup", Team: "WSH", Goals60: f(0.7)},
			},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}

	res := Reconcile(in)
	require.Len(t, res.Skaters, 2, "unmatched stat row must be retained standalone")

	callup := findEntity(res.Skaters, "Recent Callup")
	require.NotNil(t, callup)
	assert.Nil(t, callup.Salary)
	assert.Equal(t, "PIT", callup.Opponent)
	require.NotNil(t, callup.Rates[nhl.MetricGoals])
	assert.InDelta(t, 0.7, *callup.Rates[nhl.MetricGoals], 1e-9)
	assert.NotEmpty(t, res.Warnings)
}

func TestReconcileStatsOnlyRun(t *testing.T) {
	in := ReconcileInput{
		SkaterWindows: map[nhl.Window][]extract.PlayerRatesRow{
			nhl.WindowSeason: {
				{Name: "Nathan MacKinnon", Team: "COL", Goals60: f(1.6)},
				{Name: "Jason Robertson", Team: "DAL", Goals60: f(1.1)},
			},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}
	res := Reconcile(in)
	require.Len(t, res.Skaters, 2)
	assert.Nil(t, res.Skaters[0].Salary)
}

func TestReconcileNumericIDTakesPriority(t *testing.T) {
	id := int64(8471675)
	in := ReconcileInput{
		Roster: []RosterEntry{
			// Spelled differently from the stat source; only the ID joins.
			{Name: "S. Crosby", Team: "PIT", Position: "C", PlayerID: &id, Salary: f(8000)},
		},
		SkaterWindows: map[nhl.Window][]extract.PlayerRatesRow{
			nhl.WindowSeason: {
				{Name: "Sidney Crosby", Team: "PIT", PlayerID: &id, Goals60: f(1.0)},
			},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}
	res := Reconcile(in)
	require.Len(t, res.Skaters, 1)
	require.NotNil(t, res.Skaters[0].Rates[nhl.MetricGoals])
	assert.InDelta(t, 1.0, *res.Skaters[0].Rates[nhl.MetricGoals], 1e-9)
}

func TestReconcileExcludesTeamsWithoutGames(t *testing.T) {
	in := ReconcileInput{
		Roster: []RosterEntry{
			{Name: "Sidney Crosby", Team: "PIT", Position: "C"},
			{Name: "Idle Player", Team: "BOS", Position: "C"}, // no game today
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}
	res := Reconcile(in)
	require.Len(t, res.Skaters, 1)
	assert.Equal(t, "Sidney Crosby", res.Skaters[0].Name)
}

func TestReconcileGoalies(t *testing.T) {
	in := ReconcileInput{
		Roster: []RosterEntry{
			{Name: "Igor Shesterkin", Team: "PIT", Position: "G", Salary: f(8200)},
		},
		GoalieWindows: map[nhl.Window][]extract.GoalieRatesRow{
			nhl.WindowRecent: {{Name: "Igor Shesterkin", Team: "PIT", SavePct: f(0.920)}},
			nhl.WindowSeason: {{Name: "Igor Shesterkin", Team: "PIT", SavePct: f(0.910)}},
			nhl.WindowPrior:  {{Name: "Igor Shesterkin", Team: "PIT", SavePct: f(0.905)}},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}
	res := Reconcile(in)
	assert.Empty(t, res.Skaters)
	require.Len(t, res.Goalies, 1)
	g := res.Goalies[0]
	assert.Equal(t, nhl.RoleGoalie, g.Role)
	require.NotNil(t, g.Rates[nhl.MetricSavePct])
	expected := 0.50*0.920 + 0.35*0.910 + 0.15*0.905
	assert.InDelta(t, expected, *g.Rates[nhl.MetricSavePct], 1e-9)
}

func TestReconcileDropsUnresolvableRosterNames(t *testing.T) {
	in := ReconcileInput{
		Roster: []RosterEntry{
			{Name: "???", Team: "PIT", Position: "C"},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}
	res := Reconcile(in)
	assert.Empty(t, res.Skaters)
	assert.NotEmpty(t, res.Warnings)
}

func TestReconcileOutputAtLeastStatRows(t *testing.T) {
	in := ReconcileInput{
		Roster: []RosterEntry{{Name: "Someone Else", Team: "PIT", Position: "C"}},
		SkaterWindows: map[nhl.Window][]extract.PlayerRatesRow{
			nhl.WindowSeason: {
				{Name: "A Player", Team: "PIT", Goals60: f(0.5)},
				{Name: "B Player", Team: "WSH", Goals60: f(0.6)},
				{Name: "C Player", Team: "COL", Goals60: f(0.7)},
			},
		},
		Opponents: testOpponents(),
		Weights:   DefaultBlendWeights,
	}
	res := Reconcile(in)
	assert.GreaterOrEqual(t, len(res.Skaters), 3, "no stat-only row with a usable key may be dropped")
}
