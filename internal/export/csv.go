// Package export writes a completed run to CSV files for spreadsheet and
// optimizer workflows.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/nhl"
	"github.com/adpsports/nhl-projections/internal/projections"
	"github.com/adpsports/nhl-projections/internal/services"
)

type Exporter struct {
	outputDir string
	logger    *logrus.Logger
}

func NewExporter(outputDir string, logger *logrus.Logger) *Exporter {
	if outputDir == "" {
		outputDir = "output"
	}
	return &Exporter{
		outputDir: outputDir,
		logger:    logger,
	}
}

// WriteRun writes the run's skaters, goalies, stacks, and team contexts as
// one CSV file each, named by slate date. It returns the paths written.
func (e *Exporter) WriteRun(run *services.RunResult) ([]string, error) {
	if run == nil {
		return nil, fmt.Errorf("no run to export")
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	files := []struct {
		name string
		data func() ([]byte, error)
	}{
		{fmt.Sprintf("skaters_%s.csv", run.SlateDate), func() ([]byte, error) { return skatersCSV(run.Skaters) }},
		{fmt.Sprintf("goalies_%s.csv", run.SlateDate), func() ([]byte, error) { return goaliesCSV(run.Goalies) }},
		{fmt.Sprintf("stacks_%s.csv", run.SlateDate), func() ([]byte, error) { return stacksCSV(run.Stacks) }},
		{fmt.Sprintf("teams_%s.csv", run.SlateDate), func() ([]byte, error) { return teamsCSV(run.Teams) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		data, err := f.data()
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", f.name, err)
		}

		path := filepath.Join(e.outputDir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}

	e.logger.WithFields(logrus.Fields{
		"slate_date": run.SlateDate,
		"files":      len(paths),
		"output_dir": e.outputDir,
	}).Info("Exported run to CSV")

	return paths, nil
}

func skatersCSV(skaters []projections.SkaterProjection) ([]byte, error) {
	headers := []string{
		"Name", "Team", "Opponent", "Role", "Assignment", "Salary",
		"ProjGoals", "ProjAssists", "ProjShots", "ProjBlocks",
		"Points", "Value", "MissingBaseline",
	}

	rows := make([][]string, 0, len(skaters))
	for _, s := range skaters {
		rows = append(rows, []string{
			s.Name,
			s.Team,
			s.Opponent,
			string(s.Role),
			s.Assignment,
			formatOptional(s.Salary, 0),
			formatFloat(s.ProjGoals),
			formatFloat(s.ProjAssists),
			formatFloat(s.ProjShots),
			formatFloat(s.ProjBlocks),
			formatFloat(s.Points),
			formatOptional(s.Value, 2),
			strconv.FormatBool(s.MissingBaseline),
		})
	}

	return writeCSV(headers, rows)
}

func goaliesCSV(goalies []projections.GoalieProjection) ([]byte, error) {
	headers := []string{
		"Name", "Team", "Opponent", "Salary",
		"SavePct", "ProjSaves", "ProjGoalsAgainst",
		"Points", "Value", "MissingBaseline",
	}

	rows := make([][]string, 0, len(goalies))
	for _, g := range goalies {
		rows = append(rows, []string{
			g.Name,
			g.Team,
			g.Opponent,
			formatOptional(g.Salary, 0),
			strconv.FormatFloat(g.SavePct, 'f', 3, 64),
			formatFloat(g.ProjSaves),
			formatFloat(g.ProjGoalsAgainst),
			formatFloat(g.Points),
			formatOptional(g.Value, 2),
			strconv.FormatBool(g.MissingBaseline),
		})
	}

	return writeCSV(headers, rows)
}

func stacksCSV(stacks []projections.Stack) ([]byte, error) {
	headers := []string{"Team", "Assignment", "Players", "Points", "Cost", "Value"}

	rows := make([][]string, 0, len(stacks))
	for _, s := range stacks {
		players := ""
		for i, p := range s.Players {
			if i > 0 {
				players += "; "
			}
			players += p
		}
		rows = append(rows, []string{
			s.Team,
			s.Assignment,
			players,
			formatFloat(s.Points),
			formatOptional(s.Cost, 0),
			formatOptional(s.Value, 2),
		})
	}

	return writeCSV(headers, rows)
}

func teamsCSV(teams []nhl.TeamContext) ([]byte, error) {
	headers := []string{"Team", "ShotsFor60", "ShotsAllowed60", "AttemptsAllowed60", "XGoalsAllowed60"}

	rows := make([][]string, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, []string{
			t.Team,
			formatOptional(t.ShotsFor60, 2),
			formatOptional(t.ShotsAllowed60, 2),
			formatOptional(t.AttemptsAllowed60, 2),
			formatOptional(t.XGoalsAllowed60, 2),
		})
	}

	return writeCSV(headers, rows)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatOptional renders a possibly-absent value; absent stays an empty cell
// rather than a misleading zero.
func formatOptional(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}
