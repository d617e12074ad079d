package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/extract"
	"github.com/adpsports/nhl-projections/internal/nhl"
)

// relocatedTeams maps current abbreviations to the codes the stats source
// may still file a franchise under. Utah's data lived under ARI for part of
// the relocation season.
var relocatedTeams = map[string][]string{
	"UTA": {"UTA", "ARI"},
}

// NSTClient pulls team, skater, and goalie rate tables from Natural Stat
// Trick. Every page is an HTML table; parsing goes through the extract
// package so column drift degrades fields instead of failing fetches.
type NSTClient struct {
	fetcher *Fetcher
	baseURL string
	logger  *logrus.Logger
}

// NewNSTClient creates a Natural Stat Trick client.
func NewNSTClient(fetcher *Fetcher, baseURL string, logger *logrus.Logger) *NSTClient {
	if baseURL == "" {
		baseURL = "https://www.naturalstattrick.com"
	}
	return &NSTClient{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// TeamRates fetches the league-wide team rate table for a season.
func (c *NSTClient) TeamRates(ctx context.Context, season nhl.Season) ([]extract.TeamRatesRow, error) {
	url := fmt.Sprintf("%s/teamtable.php?fromseason=%s&thruseason=%s&stype=2&sit=all", c.baseURL, season, season)
	tag := fmt.Sprintf("nst_teamtable_%s", season)

	body, err := c.fetcher.GetCached(ctx, tag, url, time.Now())
	if err != nil {
		return nil, fmt.Errorf("fetch team rates: %w", err)
	}

	table, err := ParseHTMLTable(body)
	if err != nil {
		return nil, fmt.Errorf("parse team rates: %w", err)
	}
	return extract.TeamRates(*table), nil
}

// SkaterWindows fetches a team's skater rate table for each recency window:
// last 10 games, last 30 days, season to date, and the prior season.
// Relocated teams retry under their previous abbreviation when the current
// one returns an empty season table.
func (c *NSTClient) SkaterWindows(ctx context.Context, team string, season nhl.Season) (map[nhl.Window][]extract.PlayerRatesRow, error) {
	codes, ok := relocatedTeams[team]
	if !ok {
		codes = []string{team}
	}

	var lastErr error
	for _, code := range codes {
		windows, err := c.skaterWindowsForCode(ctx, code, season)
		if err != nil {
			lastErr = err
			continue
		}
		if len(windows[nhl.WindowSeason]) == 0 && code != codes[len(codes)-1] {
			c.logger.WithFields(logrus.Fields{"team": team, "code": code}).
				Warn("Empty season table, retrying under previous abbreviation")
			continue
		}
		return windows, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("fetch skater windows for %s: %w", team, lastErr)
	}
	return map[nhl.Window][]extract.PlayerRatesRow{}, nil
}

func (c *NSTClient) skaterWindowsForCode(ctx context.Context, code string, season nhl.Season) (map[nhl.Window][]extract.PlayerRatesRow, error) {
	prior := nhl.PriorSeason(season)
	specs := []struct {
		window nhl.Window
		season nhl.Season
		tgp    int
	}{
		{nhl.WindowSeason, season, 0},
		{nhl.WindowRecent, season, 10},
		{nhl.WindowMid, season, 30},
		{nhl.WindowPrior, prior, 0},
	}

	out := make(map[nhl.Window][]extract.PlayerRatesRow, len(specs))
	for _, spec := range specs {
		table, err := c.playerTable(ctx, code, spec.season, spec.tgp, "")
		if err != nil {
			// A missing window narrows the blend; only the season table
			// is load-bearing enough to fail the team.
			if spec.window == nhl.WindowSeason {
				return nil, err
			}
			c.logger.WithFields(logrus.Fields{
				"team":   code,
				"window": spec.window,
			}).Warnf("Skater window unavailable: %v", err)
			continue
		}
		rows := extract.PlayerRates(*table)
		for i := range rows {
			if rows[i].Team == "" {
				rows[i].Team = code
			}
		}
		out[spec.window] = rows
	}
	return out, nil
}

// GoalieWindows fetches league-wide goalie save tables for the recent,
// season-to-date, and prior-season windows.
func (c *NSTClient) GoalieWindows(ctx context.Context, season nhl.Season) (map[nhl.Window][]extract.GoalieRatesRow, error) {
	prior := nhl.PriorSeason(season)
	specs := []struct {
		window nhl.Window
		season nhl.Season
		tgp    int
	}{
		{nhl.WindowSeason, season, 0},
		{nhl.WindowRecent, season, 10},
		{nhl.WindowPrior, prior, 0},
	}

	out := make(map[nhl.Window][]extract.GoalieRatesRow, len(specs))
	for _, spec := range specs {
		table, err := c.playerTable(ctx, "", spec.season, spec.tgp, "goalies")
		if err != nil {
			if spec.window == nhl.WindowSeason {
				return nil, fmt.Errorf("fetch goalie windows: %w", err)
			}
			c.logger.WithField("window", spec.window).Warnf("Goalie window unavailable: %v", err)
			continue
		}
		out[spec.window] = extract.GoalieRates(*table)
	}
	return out, nil
}

func (c *NSTClient) playerTable(ctx context.Context, team string, season nhl.Season, tgp int, playersType string) (*extract.Table, error) {
	qs := fmt.Sprintf("fromseason=%s&thruseason=%s&sit=all", season, season)
	tagParts := []string{"nst_players"}
	if team != "" {
		qs = fmt.Sprintf("team=%s&%s", team, qs)
		tagParts = append(tagParts, team)
	}
	if playersType != "" {
		qs += "&playerstype=" + playersType
		tagParts = append(tagParts, playersType)
	}
	tagParts = append(tagParts, string(season))
	if tgp > 0 {
		qs += fmt.Sprintf("&tgp=%d", tgp)
		tagParts = append(tagParts, fmt.Sprintf("tgp%d", tgp))
	} else {
		tagParts = append(tagParts, "all")
	}

	url := fmt.Sprintf("%s/playerteams.php?%s", c.baseURL, qs)
	body, err := c.fetcher.GetCached(ctx, strings.Join(tagParts, "_"), url, time.Now())
	if err != nil {
		return nil, err
	}
	return ParseHTMLTable(body)
}

// ParseHTMLTable extracts the first data table from an HTML page into the
// neutral tabular shape. Headers come from the thead row (falling back to
// the first row when there is no thead); every remaining tr becomes a row.
func ParseHTMLTable(html []byte) (*extract.Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found in page")
	}

	out := &extract.Table{}
	headerRow := table.Find("thead tr").First()
	if headerRow.Length() == 0 {
		headerRow = table.Find("tr").First()
	}
	headerRow.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
		out.Headers = append(out.Headers, strings.TrimSpace(cell.Text()))
	})
	if len(out.Headers) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	// net/html wraps bare rows in an implicit tbody, so a table without a
	// thead serves its header row back under "tbody tr" too. Skip the node
	// the headers came from rather than slicing by position.
	headerNode := headerRow.Get(0)
	bodyRows := table.Find("tbody tr")
	if bodyRows.Length() == 0 {
		bodyRows = table.Find("tr")
	}
	bodyRows.Each(func(_ int, tr *goquery.Selection) {
		if tr.Get(0) == headerNode {
			return
		}
		var row []string
		tr.Find("td,th").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		if len(row) > 0 {
			out.Rows = append(out.Rows, row)
		}
	})

	return out, nil
}
