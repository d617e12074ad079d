// Package extract turns semi-structured tables from external stat sources
// into typed record sets. Source tables arrive with unpredictable column
// names, so every target field is resolved through an alias table (exact
// case-insensitive match first, substring heuristic second) and every cell
// parse failure degrades to an unset field rather than an error. A row is
// only dropped when its entity name column cannot be resolved at all.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/adpsports/nhl-projections/internal/nhl"
)

// SourceKind tags a raw table with the schema family it belongs to.
type SourceKind string

const (
	SourceTeamRates      SourceKind = "team_rates"
	SourcePlayerRates    SourceKind = "player_rates"
	SourceGoalieRates    SourceKind = "goalie_rates"
	SourceLineAssignment SourceKind = "line_assignment"
)

// Table is the neutral tabular shape the ingestion boundary hands us.
// Cells may still contain markup; parsing tolerates it.
type Table struct {
	Headers []string
	Rows    [][]string
}

// TeamRatesRow is one team's pace/defense rates.
type TeamRatesRow struct {
	Team              string
	ShotsFor60        *float64
	ShotsAllowed60    *float64
	AttemptsAllowed60 *float64
	XGoalsAllowed60   *float64
}

// PlayerRatesRow is one skater's per-60 rates from a single source window.
type PlayerRatesRow struct {
	Name      string
	Team      string
	PlayerID  *int64
	Goals60   *float64
	Assists60 *float64
	Shots60   *float64
	Blocks60  *float64
}

// GoalieRatesRow is one goalie's save fraction from a single source window.
type GoalieRatesRow struct {
	Name     string
	Team     string
	PlayerID *int64
	SavePct  *float64
}

// LineAssignmentRow is one player's line / power-play unit assignment.
type LineAssignmentRow struct {
	Name   string
	Team   string
	Line   string
	PPUnit string
}

var (
	markup    = regexp.MustCompile(`<[^>]*>`)
	thousands = strings.NewReplacer(",", "", " ", "")
)

// ParseNumber coerces a raw cell into a finite float. Markup is stripped,
// thousands separators removed, and a trailing percent sign scales the value
// by 1/100. Anything that still fails to parse, or parses to a non-finite
// value, comes back nil.
func ParseNumber(raw string) *float64 {
	s := strings.TrimSpace(markup.ReplaceAllString(raw, ""))
	if s == "" || s == "-" {
		return nil
	}
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(thousands.Replace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if pct {
		v /= 100
	}
	return &v
}

// ParseText strips markup and trims a raw cell.
func ParseText(raw string) string {
	return strings.TrimSpace(markup.ReplaceAllString(raw, ""))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func numberAt(row []string, idx int) *float64 {
	if idx < 0 {
		return nil
	}
	return ParseNumber(cell(row, idx))
}

func idAt(row []string, idx int) *int64 {
	if idx < 0 {
		return nil
	}
	s := ParseText(cell(row, idx))
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// dedupe tracks (name, team) pairs already emitted for one source snapshot.
type dedupe map[string]struct{}

func (d dedupe) seen(name, team string) bool {
	key := nhl.CanonicalID(name, team)
	if key == "" {
		key = strings.ToUpper(name) + "_" + strings.ToUpper(team)
	}
	if _, ok := d[key]; ok {
		return true
	}
	d[key] = struct{}{}
	return false
}

// TeamRates extracts team-level rate rows. Rows without a team identifier
// are dropped; everything else degrades field by field.
func TeamRates(t Table) []TeamRatesRow {
	cols := resolveColumns(t.Headers, teamRatesFields)
	if cols["team"] < 0 {
		return nil
	}
	seen := dedupe{}
	out := make([]TeamRatesRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		team := strings.ToUpper(ParseText(cell(row, cols["team"])))
		if team == "" || seen.seen(team, "") {
			continue
		}
		out = append(out, TeamRatesRow{
			Team:              team,
			ShotsFor60:        numberAt(row, cols["shots_for"]),
			ShotsAllowed60:    numberAt(row, cols["shots_allowed"]),
			AttemptsAllowed60: numberAt(row, cols["attempts_allowed"]),
			XGoalsAllowed60:   numberAt(row, cols["xgoals_allowed"]),
		})
	}
	return out
}

// PlayerRates extracts skater per-60 rate rows.
func PlayerRates(t Table) []PlayerRatesRow {
	cols := resolveColumns(t.Headers, playerRatesFields)
	if cols["name"] < 0 {
		return nil
	}
	seen := dedupe{}
	out := make([]PlayerRatesRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		name := ParseText(cell(row, cols["name"]))
		team := strings.ToUpper(ParseText(cell(row, cols["team"])))
		if nhl.Normalize(name) == "" || seen.seen(name, team) {
			continue
		}
		out = append(out, PlayerRatesRow{
			Name:      name,
			Team:      team,
			PlayerID:  idAt(row, cols["player_id"]),
			Goals60:   numberAt(row, cols["goals"]),
			Assists60: numberAt(row, cols["assists"]),
			Shots60:   numberAt(row, cols["shots"]),
			Blocks60:  numberAt(row, cols["blocks"]),
		})
	}
	return out
}

// GoalieRates extracts goalie save-fraction rows.
func GoalieRates(t Table) []GoalieRatesRow {
	cols := resolveColumns(t.Headers, goalieRatesFields)
	if cols["name"] < 0 {
		return nil
	}
	seen := dedupe{}
	out := make([]GoalieRatesRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		name := ParseText(cell(row, cols["name"]))
		team := strings.ToUpper(ParseText(cell(row, cols["team"])))
		if nhl.Normalize(name) == "" || seen.seen(name, team) {
			continue
		}
		out = append(out, GoalieRatesRow{
			Name:     name,
			Team:     team,
			PlayerID: idAt(row, cols["player_id"]),
			SavePct:  numberAt(row, cols["save_pct"]),
		})
	}
	return out
}

// LineAssignments extracts line / power-play unit assignment rows.
func LineAssignments(t Table) []LineAssignmentRow {
	cols := resolveColumns(t.Headers, lineAssignmentFields)
	if cols["name"] < 0 {
		return nil
	}
	seen := dedupe{}
	out := make([]LineAssignmentRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		name := ParseText(cell(row, cols["name"]))
		team := strings.ToUpper(ParseText(cell(row, cols["team"])))
		if nhl.Normalize(name) == "" || seen.seen(name, team) {
			continue
		}
		out = append(out, LineAssignmentRow{
			Name:   name,
			Team:   team,
			Line:   strings.ToUpper(ParseText(cell(row, cols["line"]))),
			PPUnit: strings.ToUpper(ParseText(cell(row, cols["pp_unit"]))),
		})
	}
	return out
}
