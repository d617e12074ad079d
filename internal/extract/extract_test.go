package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"plain", "2.65", f(2.65)},
		{"thousands separator", "1,234.5", f(1234.5)},
		{"percent scaled", "90.5%", f(0.905)},
		{"embedded markup", `<a href="/p/8471675">8.5</a>`, f(8.5)},
		{"dash means missing", "-", nil},
		{"empty", "   ", nil},
		{"garbage", "n/a", nil},
		{"infinite rejected", "inf", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumber(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.expected, *got, 1e-9)
			}
		})
	}
}

func TestPlayerRatesAliasResolution(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
	}{
		{"slash form", []string{"Player", "Team", "G/60", "A/60", "SOG/60", "BLK/60"}},
		{"compact form", []string{"Player", "Team", "G60", "A60", "SOG60", "BLK60"}},
		{"verbose form", []string{"Name", "Team", "Goals Per 60", "Assists Per 60", "Shots Per 60", "Blocks/60"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Table{
				Headers: tt.headers,
				Rows:    [][]string{{"Sidney Crosby", "PIT", "1.2", "2.1", "8.0", "1.4"}},
			}
			rows := PlayerRates(table)
			require.Len(t, rows, 1)
			assert.Equal(t, "Sidney Crosby", rows[0].Name)
			assert.Equal(t, "PIT", rows[0].Team)
			require.NotNil(t, rows[0].Goals60)
			assert.InDelta(t, 1.2, *rows[0].Goals60, 1e-9)
			require.NotNil(t, rows[0].Assists60)
			assert.InDelta(t, 2.1, *rows[0].Assists60, 1e-9)
			require.NotNil(t, rows[0].Shots60)
			assert.InDelta(t, 8.0, *rows[0].Shots60, 1e-9)
			require.NotNil(t, rows[0].Blocks60)
			assert.InDelta(t, 1.4, *rows[0].Blocks60, 1e-9)
		})
	}
}

func TestPlayerRatesUnparseableCellKeepsRow(t *testing.T) {
	table := Table{
		Headers: []string{"Player", "Team", "G/60", "A/60"},
		Rows: [][]string{
			{"Sidney Crosby", "PIT", "not-a-number", "2.1"},
		},
	}
	rows := PlayerRates(table)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Goals60, "unparseable cell becomes unset, not zero")
	require.NotNil(t, rows[0].Assists60)
	assert.InDelta(t, 2.1, *rows[0].Assists60, 1e-9)
}

func TestPlayerRatesDropsRowsWithoutName(t *testing.T) {
	table := Table{
		Headers: []string{"Player", "Team", "G/60"},
		Rows: [][]string{
			{"", "PIT", "1.0"},
			{"???", "PIT", "1.0"}, // normalizes to empty, unresolvable
			{"Jake Guentzel", "TBL", "1.1"},
		},
	}
	rows := PlayerRates(table)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jake Guentzel", rows[0].Name)
}

func TestPlayerRatesMissingNameColumnDropsTable(t *testing.T) {
	table := Table{
		Headers: []string{"G/60", "A/60"},
		Rows:    [][]string{{"1.0", "2.0"}},
	}
	assert.Empty(t, PlayerRates(table))
}

func TestPlayerRatesDedupeFirstWins(t *testing.T) {
	table := Table{
		Headers: []string{"Player", "Team", "G/60"},
		Rows: [][]string{
			{"Sebastian Aho", "CAR", "1.3"},
			{"Sebastian Aho", "NYI", "0.4"}, // different team, kept
			{"Sebastian Aho", "CAR", "9.9"}, // duplicate, first wins
			{"Aho, Sebastian", "CAR", "9.9"}, // same player via name reordering
		},
	}
	rows := PlayerRates(table)
	require.Len(t, rows, 2)
	assert.Equal(t, "CAR", rows[0].Team)
	assert.InDelta(t, 1.3, *rows[0].Goals60, 1e-9)
	assert.Equal(t, "NYI", rows[1].Team)
}

func TestPlayerRatesNumericID(t *testing.T) {
	table := Table{
		Headers: []string{"Player", "Team", "PlayerID", "G/60"},
		Rows: [][]string{
			{"Nathan MacKinnon", "COL", "8477492", "1.6"},
			{"Cale Makar", "COL", "", "0.9"},
		},
	}
	rows := PlayerRates(table)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].PlayerID)
	assert.Equal(t, int64(8477492), *rows[0].PlayerID)
	assert.Nil(t, rows[1].PlayerID)
}

func TestTeamRates(t *testing.T) {
	table := Table{
		Headers: []string{"Team", "SF/60", "SA/60", "CA/60", "xGA/60"},
		Rows: [][]string{
			{"pit", "31.2", "30.1", "57.5", "2.71"},
			{"WSH", "29.8", "-", "60.2", "2.90"},
			{"", "1", "2", "3", "4"},
		},
	}
	rows := TeamRates(table)
	require.Len(t, rows, 2)
	assert.Equal(t, "PIT", rows[0].Team)
	require.NotNil(t, rows[0].XGoalsAllowed60)
	assert.InDelta(t, 2.71, *rows[0].XGoalsAllowed60, 1e-9)
	assert.Nil(t, rows[1].ShotsAllowed60)
}

func TestGoalieRatesPercentForms(t *testing.T) {
	table := Table{
		Headers: []string{"Goalie", "Team", "SV%"},
		Rows: [][]string{
			{"Igor Shesterkin", "NYR", "0.916"},
			{"Juuse Saros", "NSH", "91.6%"},
			{"Backup Guy", "NSH", "bad"},
		},
	}
	rows := GoalieRates(table)
	require.Len(t, rows, 3)
	assert.InDelta(t, 0.916, *rows[0].SavePct, 1e-9)
	assert.InDelta(t, 0.916, *rows[1].SavePct, 1e-9)
	assert.Nil(t, rows[2].SavePct)
}

func TestLineAssignments(t *testing.T) {
	table := Table{
		Headers: []string{"Player", "Team", "LineType", "PPUnit"},
		Rows: [][]string{
			{"Sidney Crosby", "PIT", "L1", "PP1"},
			{"Noel Acciari", "PIT", "l4", ""},
		},
	}
	rows := LineAssignments(table)
	require.Len(t, rows, 2)
	assert.Equal(t, "L1", rows[0].Line)
	assert.Equal(t, "PP1", rows[0].PPUnit)
	assert.Equal(t, "L4", rows[1].Line)
	assert.Equal(t, "", rows[1].PPUnit)
}

func f(v float64) *float64 { return &v }
