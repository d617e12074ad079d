package nhl

import (
	"fmt"
	"time"
)

// Season is an NHL season code in source format, e.g. "20252026".
type Season string

// CurrentSeason returns the season containing t. NHL seasons run October
// through June, so the rollover to the next season code happens in July.
func CurrentSeason(t time.Time) Season {
	start := t.Year()
	if t.Month() < time.July {
		start--
	}
	return Season(fmt.Sprintf("%d%d", start, start+1))
}

// PriorSeason returns the season immediately before s. Malformed codes come
// back unchanged.
func PriorSeason(s Season) Season {
	if len(s) != 8 {
		return s
	}
	var start int
	if _, err := fmt.Sscanf(string(s[:4]), "%d", &start); err != nil {
		return s
	}
	return Season(fmt.Sprintf("%d%d", start-1, start))
}
