package nhl

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	typographic = regexp.MustCompile("[–—’]")
	disallowed  = regexp.MustCompile(`[^A-Za-z0-9\- ]+`)
	whitespace  = regexp.MustCompile(`\s+`)

	// Decompose, strip combining marks, recompose. Folds é -> e, etc.
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize canonicalizes a free-text player or team name into a stable join
// key: accents and typographic punctuation folded to ASCII, everything outside
// [A-Za-z0-9- ] stripped, whitespace collapsed, upper-cased, and "Last, First"
// reordered to "First Last". It never fails; unusable input yields "" which
// callers must treat as unresolvable, not as a match-anything key.
func Normalize(raw string) string {
	s := typographic.ReplaceAllString(raw, "-")
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}

	// A single comma with exactly two segments means "Last, First".
	if parts := strings.Split(s, ","); len(parts) == 2 {
		s = strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0])
	}

	s = disallowed.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// CanonicalID builds the stable per-slate entity key from a raw name and team
// abbreviation. Same-named players on different teams stay distinct. An
// unresolvable name yields "" so it can never be joined against.
func CanonicalID(name, team string) string {
	n := Normalize(name)
	if n == "" {
		return ""
	}
	return n + "_" + strings.ToUpper(strings.TrimSpace(team))
}
