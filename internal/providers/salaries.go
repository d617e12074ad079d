package providers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/extract"
	"github.com/adpsports/nhl-projections/internal/projections"
)

// SalaryLoader reads the daily contest salary manifest from disk. The file
// is optional; a missing manifest means the run proceeds stats-only.
type SalaryLoader struct {
	path   string
	logger *logrus.Logger
}

// NewSalaryLoader creates a salary loader for the given CSV path.
func NewSalaryLoader(path string, logger *logrus.Logger) *SalaryLoader {
	return &SalaryLoader{path: path, logger: logger}
}

// Load parses the salary CSV into roster entries. Exports come with either
// comma or semicolon separators depending on locale; both are accepted.
func (l *SalaryLoader) Load() ([]projections.RosterEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.WithField("path", l.path).Warn("Salary manifest missing, running without salaries")
			return nil, nil
		}
		return nil, fmt.Errorf("read salary manifest: %w", err)
	}
	return ParseSalaryCSV(data)
}

// salary manifest header aliases, matched case-insensitively with spaces removed
var salaryColumns = map[string][]string{
	"name":     {"name", "player", "playername"},
	"team":     {"teamabbrev", "team", "teamabbreviation"},
	"position": {"position", "pos", "rosterposition"},
	"salary":   {"salary", "cost"},
	"id":       {"id", "playerid"},
}

// ParseSalaryCSV parses salary manifest bytes into roster entries.
func ParseSalaryCSV(data []byte) ([]projections.RosterEntry, error) {
	records, err := readCSV(data, ',')
	if err != nil || len(records) > 0 && len(records[0]) < 2 {
		// Some exports ship semicolon-separated.
		records, err = readCSV(data, ';')
	}
	if err != nil {
		return nil, fmt.Errorf("parse salary manifest: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	idx := resolveSalaryColumns(records[0])
	nameIdx, ok := idx["name"]
	if !ok {
		return nil, fmt.Errorf("salary manifest has no name column")
	}

	out := make([]projections.RosterEntry, 0, len(records)-1)
	for _, rec := range records[1:] {
		entry := projections.RosterEntry{Name: strings.TrimSpace(colValue(rec, nameIdx))}
		if entry.Name == "" {
			continue
		}
		if i, ok := idx["team"]; ok {
			entry.Team = strings.ToUpper(strings.TrimSpace(colValue(rec, i)))
		}
		if i, ok := idx["position"]; ok {
			entry.Position = strings.TrimSpace(colValue(rec, i))
		}
		if i, ok := idx["salary"]; ok {
			entry.Salary = extract.ParseNumber(colValue(rec, i))
		}
		if i, ok := idx["id"]; ok {
			if v := extract.ParseNumber(colValue(rec, i)); v != nil && *v == float64(int64(*v)) {
				id := int64(*v)
				entry.PlayerID = &id
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func readCSV(data []byte, sep rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func resolveSalaryColumns(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		for field, aliases := range salaryColumns {
			if _, taken := idx[field]; taken {
				continue
			}
			for _, a := range aliases {
				if key == a {
					idx[field] = i
				}
			}
		}
	}
	return idx
}

func colValue(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
