package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/nhl"
)

// ScheduleClient pulls the day's slate of games from the league schedule
// API. Both the current api-web payload shape and the legacy statsapi shape
// are understood, so the endpoint is swappable through configuration.
type ScheduleClient struct {
	fetcher *Fetcher
	url     string
	logger  *logrus.Logger
}

// NewScheduleClient creates a schedule client.
func NewScheduleClient(fetcher *Fetcher, url string, logger *logrus.Logger) *ScheduleClient {
	if url == "" {
		url = "https://api-web.nhle.com/v1/schedule/now"
	}
	return &ScheduleClient{fetcher: fetcher, url: url, logger: logger}
}

// current api-web shape
type scheduleResponse struct {
	GameWeek []struct {
		Date  string `json:"date"`
		Games []struct {
			ID       int64 `json:"id"`
			HomeTeam struct {
				Abbrev string `json:"abbrev"`
			} `json:"homeTeam"`
			AwayTeam struct {
				Abbrev string `json:"abbrev"`
			} `json:"awayTeam"`
		} `json:"games"`
	} `json:"gameWeek"`
}

// legacy statsapi shape
type legacyScheduleResponse struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			GamePk int64 `json:"gamePk"`
			Teams  struct {
				Home struct {
					Team struct {
						TriCode string `json:"triCode"`
					} `json:"team"`
				} `json:"home"`
				Away struct {
					Team struct {
						TriCode string `json:"triCode"`
					} `json:"team"`
				} `json:"away"`
			} `json:"teams"`
		} `json:"games"`
	} `json:"dates"`
}

// TodaysGames returns the games on the slate date. Games missing either
// abbreviation are skipped with a warning; an empty slate is not an error.
func (c *ScheduleClient) TodaysGames(ctx context.Context, day time.Time) ([]nhl.Game, error) {
	body, err := c.fetcher.GetCached(ctx, "schedule", c.url, day)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}

	games, err := parseSchedule(body, day)
	if err != nil {
		return nil, err
	}
	for i := range games {
		if games[i].Home == "" || games[i].Away == "" {
			c.logger.Warn("Schedule game missing team abbreviation, skipping")
		}
	}

	valid := games[:0]
	for _, g := range games {
		if g.Home != "" && g.Away != "" {
			valid = append(valid, g)
		}
	}
	return valid, nil
}

func parseSchedule(body []byte, day time.Time) ([]nhl.Game, error) {
	slate := day.Format("2006-01-02")

	var current scheduleResponse
	if err := json.Unmarshal(body, &current); err == nil && len(current.GameWeek) > 0 {
		var games []nhl.Game
		for _, d := range current.GameWeek {
			// The weekly payload spans several days; keep the slate's.
			if d.Date != slate {
				continue
			}
			for _, g := range d.Games {
				games = append(games, nhl.Game{Home: g.HomeTeam.Abbrev, Away: g.AwayTeam.Abbrev})
			}
		}
		return games, nil
	}

	var legacy legacyScheduleResponse
	if err := json.Unmarshal(body, &legacy); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	var games []nhl.Game
	for _, d := range legacy.Dates {
		for _, g := range d.Games {
			games = append(games, nhl.Game{
				Home: g.Teams.Home.Team.TriCode,
				Away: g.Teams.Away.Team.TriCode,
			})
		}
	}
	return games, nil
}
