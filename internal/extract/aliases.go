package extract

import "strings"

// fieldAliases lists the known spellings for one target field. Exact aliases
// are compared case-insensitively against the squashed header ("G / 60" and
// "g/60" hit the same alias); fuzzy aliases are substring matches used only
// when no exact alias resolved anywhere in the table.
type fieldAliases struct {
	field string
	exact []string
	fuzzy []string
}

var teamRatesFields = []fieldAliases{
	{field: "team", exact: []string{"team", "tm", "teamabbrev"}, fuzzy: []string{"team"}},
	{field: "shots_for", exact: []string{"sf/60", "sf60", "shotsfor/60", "shotsforper60"}, fuzzy: []string{"shotsfor"}},
	{field: "shots_allowed", exact: []string{"sa/60", "sa60", "shotsagainst/60", "shotsagainstper60"}, fuzzy: []string{"shotsagainst", "shotsallowed"}},
	{field: "attempts_allowed", exact: []string{"ca/60", "ca60", "corsiagainst/60"}, fuzzy: []string{"corsiagainst", "attemptsagainst"}},
	{field: "xgoals_allowed", exact: []string{"xga/60", "xga60", "expectedgoalsagainst/60"}, fuzzy: []string{"xga", "expectedgoalsagainst"}},
}

var playerRatesFields = []fieldAliases{
	{field: "name", exact: []string{"player", "name", "playername", "skater"}, fuzzy: []string{"player", "name"}},
	{field: "team", exact: []string{"team", "tm", "teamabbrev"}, fuzzy: []string{"team"}},
	{field: "player_id", exact: []string{"playerid", "id"}},
	{field: "goals", exact: []string{"g/60", "g60", "goals/60", "goalsper60"}, fuzzy: []string{"goals"}},
	{field: "assists", exact: []string{"a/60", "a60", "assists/60", "assistsper60", "totalassists/60"}, fuzzy: []string{"assists"}},
	{field: "shots", exact: []string{"s/60", "sog/60", "sog60", "shots/60", "shotsper60"}, fuzzy: []string{"shots", "sog"}},
	{field: "blocks", exact: []string{"blk/60", "blk60", "blocks/60", "blockedshotsper60"}, fuzzy: []string{"blk", "blocks"}},
}

var goalieRatesFields = []fieldAliases{
	{field: "name", exact: []string{"player", "name", "goalie", "playername"}, fuzzy: []string{"player", "name", "goalie"}},
	{field: "team", exact: []string{"team", "tm", "teamabbrev"}, fuzzy: []string{"team"}},
	{field: "player_id", exact: []string{"playerid", "id"}},
	{field: "save_pct", exact: []string{"sv%", "sv", "svpct", "save%", "savepct"}, fuzzy: []string{"sv%", "save"}},
}

var lineAssignmentFields = []fieldAliases{
	{field: "name", exact: []string{"player", "name", "playername"}, fuzzy: []string{"player", "name"}},
	{field: "team", exact: []string{"team", "tm", "teamabbrev"}, fuzzy: []string{"team"}},
	{field: "line", exact: []string{"linetype", "line", "unit"}, fuzzy: []string{"line"}},
	{field: "pp_unit", exact: []string{"ppunit", "pp", "powerplay"}, fuzzy: []string{"ppunit", "powerplay"}},
}

// squash lowercases a header and removes spaces so "Goals Per 60", "goals per
// 60" and "GoalsPer60" all compare equal.
func squash(h string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
}

// resolveColumns maps each target field to a column index, or -1 when no
// alias resolves. Exact matches win over fuzzy ones, and a column claimed by
// an exact match is never handed to another field's substring heuristic.
func resolveColumns(headers []string, fields []fieldAliases) map[string]int {
	squashed := make([]string, len(headers))
	for i, h := range headers {
		squashed[i] = squash(h)
	}

	cols := make(map[string]int, len(fields))
	claimed := make(map[int]bool)
	for _, f := range fields {
		cols[f.field] = -1
		for i, h := range squashed {
			if claimed[i] {
				continue
			}
			for _, a := range f.exact {
				if h == squash(a) {
					cols[f.field] = i
					claimed[i] = true
					break
				}
			}
			if cols[f.field] >= 0 {
				break
			}
		}
	}

	for _, f := range fields {
		if cols[f.field] >= 0 {
			continue
		}
		for i, h := range squashed {
			if claimed[i] {
				continue
			}
			for _, a := range f.fuzzy {
				if a != "" && strings.Contains(h, squash(a)) {
					cols[f.field] = i
					claimed[i] = true
					break
				}
			}
			if cols[f.field] >= 0 {
				break
			}
		}
	}
	return cols
}
