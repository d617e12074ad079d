package projections

import (
	"sort"
)

// Stack aggregates the skaters sharing a team and assignment into one
// combined projection, the unit a lineup builder actually rosters together.
type Stack struct {
	Team       string   `json:"team"`
	Assignment string   `json:"assignment"`
	Players    []string `json:"players"`
	Points     float64  `json:"points"`
	Cost       *float64 `json:"cost,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

// BuildStacks groups scored skaters by (team, assignment) and sums their
// projections. Cost is present when at least one member carries a salary;
// value only when the cost is positive. Output is ordered by combined points,
// ties broken by team then assignment so runs are reproducible.
func BuildStacks(skaters []SkaterProjection) []Stack {
	type key struct{ team, assignment string }
	groups := make(map[key]*Stack)
	order := make([]key, 0)

	for _, p := range skaters {
		k := key{p.Team, p.Assignment}
		s, ok := groups[k]
		if !ok {
			s = &Stack{Team: p.Team, Assignment: p.Assignment}
			groups[k] = s
			order = append(order, k)
		}
		s.Players = append(s.Players, p.Name)
		s.Points += p.Points
		if p.Salary != nil {
			if s.Cost == nil {
				s.Cost = new(float64)
			}
			*s.Cost += *p.Salary
		}
	}

	stacks := make([]Stack, 0, len(order))
	for _, k := range order {
		s := groups[k]
		if s.Cost != nil && *s.Cost > 0 {
			v := s.Points / (*s.Cost / 1000.0)
			s.Value = &v
		}
		stacks = append(stacks, *s)
	}

	sort.Slice(stacks, func(i, j int) bool {
		if stacks[i].Points != stacks[j].Points {
			return stacks[i].Points > stacks[j].Points
		}
		if stacks[i].Team != stacks[j].Team {
			return stacks[i].Team < stacks[j].Team
		}
		return stacks[i].Assignment < stacks[j].Assignment
	})
	return stacks
}
