// Package projections implements the statistical core: multi-window blending,
// entity reconciliation across sources, opponent/assignment context
// adjustment, and fantasy-point scoring. Everything in here is a pure
// transformation over immutable inputs; I/O and caching live in the provider
// and service layers.
package projections

import (
	"fmt"

	"github.com/adpsports/nhl-projections/internal/nhl"
)

// BlendWeights are the confidence weights for the three recency windows.
type BlendWeights struct {
	Recent float64 `json:"recent"`
	Mid    float64 `json:"mid"`
	Prior  float64 `json:"prior"`
}

// DefaultBlendWeights is the canonical 50/35/15 split.
var DefaultBlendWeights = BlendWeights{Recent: 0.50, Mid: 0.35, Prior: 0.15}

// Blend combines one metric sampled over up to three recency windows into a
// single weighted estimate. Absent windows are excluded from both numerator
// and denominator, so the weights renormalize over whatever is present.
// Returns nil iff all three inputs are nil; callers must then substitute a
// role-based fallback, never zero.
func Blend(recent, mid, prior *float64, w BlendWeights) *float64 {
	var num, den float64
	if recent != nil {
		num += w.Recent * *recent
		den += w.Recent
	}
	if mid != nil {
		num += w.Mid * *mid
		den += w.Mid
	}
	if prior != nil {
		num += w.Prior * *prior
		den += w.Prior
	}
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// FallbackRates supplies the role-based rate constants substituted when a
// blend comes back empty. Keyed by role, then metric.
type FallbackRates map[nhl.Role]map[nhl.Metric]float64

// Lookup returns the fallback for a role and metric, or an error when the
// table has no entry. A missing entry is a configuration defect.
func (f FallbackRates) Lookup(role nhl.Role, m nhl.Metric) (float64, error) {
	if rates, ok := f[role]; ok {
		if v, ok := rates[m]; ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no fallback rate configured for role %s metric %s", role, m)
}

// ApplyFallbacks returns a copy of the entities with every unset skater rate
// replaced by its role-based fallback constant. Goalie save fractions fall
// back to the goalie table's SV entry. The substitution is explicit and
// happens exactly once, here, so "measured zero" and "no data" never blur.
func ApplyFallbacks(entities []nhl.Entity, fb FallbackRates) []nhl.Entity {
	out := make([]nhl.Entity, 0, len(entities))
	for _, e := range entities {
		filled := e
		filled.Rates = make(map[nhl.Metric]*float64, len(e.Rates))
		for m, v := range e.Rates {
			filled.Rates[m] = v
		}

		metrics := nhl.SkaterMetrics
		if e.Role == nhl.RoleGoalie {
			metrics = []nhl.Metric{nhl.MetricSavePct}
		}
		for _, m := range metrics {
			if filled.Rates[m] != nil {
				continue
			}
			if v, err := fb.Lookup(e.Role, m); err == nil {
				filled.Rates[m] = nhl.Float(v)
			}
		}
		out = append(out, filled)
	}
	return out
}
