package projections

import (
	"fmt"

	"github.com/adpsports/nhl-projections/internal/extract"
	"github.com/adpsports/nhl-projections/internal/nhl"
)

// RosterEntry is one row of the salary/roster manifest.
type RosterEntry struct {
	Name     string
	Team     string
	Position string
	Salary   *float64
	PlayerID *int64
}

// ReconcileInput gathers every source feeding one slate's entity build.
// Any slice or map may be empty; missing sources degrade to absent metrics.
type ReconcileInput struct {
	Roster        []RosterEntry
	SkaterWindows map[nhl.Window][]extract.PlayerRatesRow
	GoalieWindows map[nhl.Window][]extract.GoalieRatesRow
	Assignments   []extract.LineAssignmentRow
	Opponents     nhl.OpponentMap
	Weights       BlendWeights
}

// ReconcileResult is the unified per-entity output plus the per-entity
// data-quality problems recovered along the way. Warnings never abort a run.
type ReconcileResult struct {
	Skaters  []nhl.Entity
	Goalies  []nhl.Entity
	Warnings []string
}

// skaterStats collects one player's window-tagged rate values across all
// skater stat snapshots.
type skaterStats struct {
	name     string
	team     string
	playerID *int64
	values   map[nhl.Metric]map[nhl.Window]*float64
	matched  bool
}

func (s *skaterStats) set(m nhl.Metric, w nhl.Window, v *float64) {
	if v == nil {
		return
	}
	if s.values[m] == nil {
		s.values[m] = make(map[nhl.Window]*float64, 4)
	}
	if _, ok := s.values[m][w]; !ok {
		s.values[m][w] = v
	}
}

// blendArgs maps the four source windows onto the blender's three slots:
// the mid slot is the last-30-days sample when present, season-to-date
// otherwise.
func blendArgs(windows map[nhl.Window]*float64) (recent, mid, prior *float64) {
	if windows == nil {
		return nil, nil, nil
	}
	recent = windows[nhl.WindowRecent]
	mid = windows[nhl.WindowMid]
	if mid == nil {
		mid = windows[nhl.WindowSeason]
	}
	prior = windows[nhl.WindowPrior]
	return recent, mid, prior
}

type statIndex struct {
	byID  map[int64]*skaterStats
	byKey map[string]*skaterStats
	order []*skaterStats
}

func newStatIndex() *statIndex {
	return &statIndex{
		byID:  make(map[int64]*skaterStats),
		byKey: make(map[string]*skaterStats),
	}
}

func (idx *statIndex) upsert(name, team string, playerID *int64) *skaterStats {
	if playerID != nil {
		if s, ok := idx.byID[*playerID]; ok {
			return s
		}
	}
	key := nhl.CanonicalID(name, team)
	if key != "" {
		if s, ok := idx.byKey[key]; ok {
			if s.playerID == nil {
				s.playerID = playerID
			}
			if playerID != nil {
				idx.byID[*playerID] = s
			}
			return s
		}
	}
	s := &skaterStats{
		name:     name,
		team:     team,
		playerID: playerID,
		values:   make(map[nhl.Metric]map[nhl.Window]*float64, 4),
	}
	if playerID != nil {
		idx.byID[*playerID] = s
	}
	if key != "" {
		idx.byKey[key] = s
	}
	idx.order = append(idx.order, s)
	return s
}

// lookup resolves a roster entry against the index: numeric ID first,
// canonical name+team key otherwise.
func (idx *statIndex) lookup(name, team string, playerID *int64) *skaterStats {
	if playerID != nil {
		if s, ok := idx.byID[*playerID]; ok {
			return s
		}
	}
	if key := nhl.CanonicalID(name, team); key != "" {
		if s, ok := idx.byKey[key]; ok {
			return s
		}
	}
	return nil
}

// Reconcile joins the roster/salary manifest, multi-window stat sources,
// line assignments, and the day's schedule into unified entities. The roster
// is the primary entity list when present; otherwise the union of stat
// sources drives a stats-only run. A stat row that matches no roster entry is
// retained as a standalone entity, never dropped. Entities whose team has no
// scheduled game are excluded — there is nothing to project.
func Reconcile(in ReconcileInput) ReconcileResult {
	var res ReconcileResult

	// Fixed window order keeps entity ordering deterministic across runs.
	windowOrder := []nhl.Window{nhl.WindowSeason, nhl.WindowRecent, nhl.WindowMid, nhl.WindowPrior}

	skaterIdx := newStatIndex()
	for _, window := range windowOrder {
		for _, row := range in.SkaterWindows[window] {
			s := skaterIdx.upsert(row.Name, row.Team, row.PlayerID)
			s.set(nhl.MetricGoals, window, row.Goals60)
			s.set(nhl.MetricAssists, window, row.Assists60)
			s.set(nhl.MetricShots, window, row.Shots60)
			s.set(nhl.MetricBlocks, window, row.Blocks60)
		}
	}

	goalieIdx := newStatIndex()
	for _, window := range windowOrder {
		for _, row := range in.GoalieWindows[window] {
			g := goalieIdx.upsert(row.Name, row.Team, row.PlayerID)
			g.set(nhl.MetricSavePct, window, row.SavePct)
		}
	}

	assignments := make(map[string]extract.LineAssignmentRow, len(in.Assignments))
	for _, a := range in.Assignments {
		key := nhl.CanonicalID(a.Name, a.Team)
		if key == "" {
			continue
		}
		if _, ok := assignments[key]; !ok {
			assignments[key] = a
		}
	}

	appendEntity := func(e nhl.Entity) {
		opp, scheduled := in.Opponents[e.Team]
		if !scheduled {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: team %s has no scheduled game, excluded", e.Name, e.Team))
			return
		}
		e.Opponent = opp
		if e.Role == nhl.RoleGoalie {
			res.Goalies = append(res.Goalies, e)
		} else {
			res.Skaters = append(res.Skaters, e)
		}
	}

	buildSkater := func(name, team, position string, salary *float64, playerID *int64, stats *skaterStats) nhl.Entity {
		e := nhl.Entity{
			CanonicalID: nhl.CanonicalID(name, team),
			PlayerID:    playerID,
			Name:        name,
			Team:        team,
			Role:        nhl.RoleFromPosition(position),
			Assignment:  nhl.AssignmentNone,
			Rates:       make(map[nhl.Metric]*float64, len(nhl.SkaterMetrics)),
		}
		e.Salary = salary
		if a, ok := assignments[e.CanonicalID]; ok {
			switch {
			case a.Line != "":
				e.Assignment = a.Line
			case a.PPUnit != "":
				e.Assignment = a.PPUnit
			}
		}
		for _, m := range nhl.SkaterMetrics {
			if stats == nil {
				e.Rates[m] = nil
				continue
			}
			recent, mid, prior := blendArgs(stats.values[m])
			e.Rates[m] = Blend(recent, mid, prior, in.Weights)
		}
		if stats == nil {
			e.MissingBaseline = true
		}
		return e
	}

	buildGoalie := func(name, team string, salary *float64, playerID *int64, stats *skaterStats) nhl.Entity {
		e := nhl.Entity{
			CanonicalID: nhl.CanonicalID(name, team),
			PlayerID:    playerID,
			Name:        name,
			Team:        team,
			Role:        nhl.RoleGoalie,
			Assignment:  nhl.AssignmentNone,
			Salary:      salary,
			Rates:       make(map[nhl.Metric]*float64, 1),
		}
		if stats == nil {
			e.Rates[nhl.MetricSavePct] = nil
			e.MissingBaseline = true
			return e
		}
		recent, mid, prior := blendArgs(stats.values[nhl.MetricSavePct])
		e.Rates[nhl.MetricSavePct] = Blend(recent, mid, prior, in.Weights)
		return e
	}

	if len(in.Roster) > 0 {
		for _, r := range in.Roster {
			if nhl.Normalize(r.Name) == "" {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("roster row with unresolvable name %q dropped", r.Name))
				continue
			}
			role := nhl.RoleFromPosition(r.Position)
			if role == nhl.RoleGoalie {
				stats := goalieIdx.lookup(r.Name, r.Team, r.PlayerID)
				if stats != nil {
					stats.matched = true
				} else {
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("%s (%s): no goalie stats matched, using fallbacks", r.Name, r.Team))
				}
				appendEntity(buildGoalie(r.Name, r.Team, r.Salary, r.PlayerID, stats))
				continue
			}
			stats := skaterIdx.lookup(r.Name, r.Team, r.PlayerID)
			if stats != nil {
				stats.matched = true
			} else {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s (%s): no skater stats matched, using fallbacks", r.Name, r.Team))
			}
			appendEntity(buildSkater(r.Name, r.Team, r.Position, r.Salary, r.PlayerID, stats))
		}
	}

	// Stat rows that matched nothing (or every row, on a stats-only run) are
	// synthesized into standalone entities so late call-ups still project.
	for _, s := range skaterIdx.order {
		if s.matched {
			continue
		}
		if len(in.Roster) > 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s (%s): stat row matched no roster entry, retained standalone", s.name, s.team))
		}
		appendEntity(buildSkater(s.name, s.team, "", nil, s.playerID, s))
	}
	for _, g := range goalieIdx.order {
		if g.matched {
			continue
		}
		if len(in.Roster) > 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s (%s): goalie stat row matched no roster entry, retained standalone", g.name, g.team))
		}
		appendEntity(buildGoalie(g.name, g.team, nil, g.playerID, g))
	}

	return res
}
