package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adpsports/nhl-projections/internal/extract"
)

// LineupsClient fetches projected daily lineups. The lineups API publishes
// ETags, so the client holds the last payload per team key and revalidates
// with If-None-Match instead of re-downloading unchanged data.
type LineupsClient struct {
	fetcher *Fetcher
	cache   PayloadCache
	baseURL string
	logger  *logrus.Logger

	mu   sync.Mutex
	last map[string]lineupSnapshot
}

type lineupSnapshot struct {
	etag string
	body []byte
}

// NewLineupsClient creates a lineups client.
func NewLineupsClient(fetcher *Fetcher, cache PayloadCache, baseURL string, logger *logrus.Logger) *LineupsClient {
	return &LineupsClient{
		fetcher: fetcher,
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		last:    make(map[string]lineupSnapshot),
	}
}

// lineupPlayer is one player entry in the lineups API response.
type lineupPlayer struct {
	PlayerID *int64 `json:"playerId"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Position string `json:"position"`
	Line     int    `json:"line"`
	PPUnit   int    `json:"ppUnit"`
	Pairing  int    `json:"pairing"`
}

// Fetch returns the line assignments for all teams, or a single team when
// team is non-empty.
func (c *LineupsClient) Fetch(ctx context.Context, team string) ([]extract.LineAssignmentRow, error) {
	key := "ALL"
	url := c.baseURL
	if team != "" {
		key = strings.ToUpper(team)
		url = c.baseURL + "/" + key
	}

	body, err := c.fetchWithETag(ctx, key, url)
	if err != nil {
		return nil, fmt.Errorf("fetch lineups %s: %w", key, err)
	}

	var players []lineupPlayer
	if err := json.Unmarshal(body, &players); err != nil {
		// Single-team endpoints return one object rather than a list.
		var one lineupPlayer
		if err2 := json.Unmarshal(body, &one); err2 != nil {
			return nil, fmt.Errorf("decode lineups %s: %w", key, err)
		}
		players = []lineupPlayer{one}
	}

	rows := make([]extract.LineAssignmentRow, 0, len(players))
	for _, p := range players {
		if p.Name == "" {
			continue
		}
		rows = append(rows, extract.LineAssignmentRow{
			Name:   p.Name,
			Team:   strings.ToUpper(p.Team),
			Line:   lineLabel(p),
			PPUnit: ppLabel(p.PPUnit),
		})
	}
	return rows, nil
}

func (c *LineupsClient) fetchWithETag(ctx context.Context, key, url string) ([]byte, error) {
	c.mu.Lock()
	snap := c.last[key]
	c.mu.Unlock()

	res, err := c.fetcher.GetConditional(ctx, url, snap.etag)
	if err != nil {
		return nil, err
	}
	if res.NotModified {
		c.logger.WithField("team", key).Debug("Lineups unchanged, reusing cached payload")
		return snap.body, nil
	}

	c.mu.Lock()
	c.last[key] = lineupSnapshot{etag: res.ETag, body: res.Body}
	c.mu.Unlock()

	if c.cache != nil {
		cacheKey := PayloadKey("lineups_"+key, time.Now())
		if err := c.cache.Set(ctx, cacheKey, string(res.Body), 6*time.Hour); err != nil {
			c.logger.Warnf("Failed to cache lineups payload: %v", err)
		}
	}
	return res.Body, nil
}

// lineLabel maps the numeric assignment onto a label: forward lines come
// through as L1-L4, defense pairings as P1-P3. Zero means unassigned.
func lineLabel(p lineupPlayer) string {
	if p.Pairing > 0 {
		return fmt.Sprintf("P%d", p.Pairing)
	}
	if p.Line > 0 {
		if strings.Contains(strings.ToUpper(p.Position), "D") {
			return fmt.Sprintf("P%d", p.Line)
		}
		return fmt.Sprintf("L%d", p.Line)
	}
	return ""
}

func ppLabel(unit int) string {
	if unit > 0 {
		return fmt.Sprintf("PP%d", unit)
	}
	return ""
}
