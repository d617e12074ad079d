package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpsports/nhl-projections/internal/nhl"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testFetcher(cache PayloadCache) *Fetcher {
	return NewFetcher(cache, FetcherOptions{
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		Burst:     100,
	}, testLogger())
}

// memoryCache is an in-process PayloadCache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return fmt.Errorf("key not found")
	}
	*dest.(*string) = v
	return nil
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func TestFetcherGetCachedServesFromCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	cache := newMemoryCache()
	f := testFetcher(cache)
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	body, err := f.GetCached(context.Background(), "test", srv.URL, day)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	body, err = f.GetCached(context.Background(), "test", srv.URL, day)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, 1, hits, "second call should hit the cache")
}

func TestFetcherRetriesOnServerError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := testFetcher(nil)
	body, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 3, hits)
}

func TestFetcherGetConditional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, `[{"name":"Test Player","team":"BOS","line":1}]`)
	}))
	defer srv.Close()

	f := testFetcher(nil)
	res, err := f.GetConditional(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.False(t, res.NotModified)
	assert.Equal(t, `"v1"`, res.ETag)

	res, err = f.GetConditional(context.Background(), srv.URL, res.ETag)
	require.NoError(t, err)
	assert.True(t, res.NotModified)
	assert.Empty(t, res.Body)
}

const teamTableHTML = `<html><body><table>
<thead><tr><th>Team</th><th>GP</th><th>SF/60</th><th>SA/60</th><th>CA/60</th><th>xGA/60</th></tr></thead>
<tbody>
<tr><td><a href="teamreport.php?team=BOS">Boston Bruins</a></td><td>40</td><td>30.1</td><td>28.4</td><td>55.2</td><td>2.41</td></tr>
<tr><td><a href="teamreport.php?team=COL">Colorado Avalanche</a></td><td>41</td><td>33.4</td><td>29.0</td><td>57.9</td><td>2.60</td></tr>
</tbody></table></body></html>`

func TestParseHTMLTable(t *testing.T) {
	table, err := ParseHTMLTable([]byte(teamTableHTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "GP", "SF/60", "SA/60", "CA/60", "xGA/60"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Boston Bruins", table.Rows[0][0])
	assert.Equal(t, "2.41", table.Rows[0][5])
}

func TestParseHTMLTableNoTable(t *testing.T) {
	_, err := ParseHTMLTable([]byte("<html><body><p>maintenance</p></body></html>"))
	assert.Error(t, err)
}

func TestParseHTMLTableEmptyTable(t *testing.T) {
	_, err := ParseHTMLTable([]byte("<html><body><table></table></body></html>"))
	assert.Error(t, err)
}

func TestParseHTMLTableHeaderOnly(t *testing.T) {
	table, err := ParseHTMLTable([]byte("<html><body><table><tr><th>Player</th><th>Team</th></tr></table></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Player", "Team"}, table.Headers)
	assert.Empty(t, table.Rows)
}

func TestParseHTMLTableWithoutThead(t *testing.T) {
	html := `<html><body><table>
<tr><th>Player</th><th>Team</th></tr>
<tr><td>David Pastrnak</td><td>BOS</td></tr>
</table></body></html>`
	table, err := ParseHTMLTable([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"Player", "Team"}, table.Headers)
	require.Len(t, table.Rows, 1, "header row must not come back as data")
	assert.Equal(t, []string{"David Pastrnak", "BOS"}, table.Rows[0])
}

func TestNSTClientTeamRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teamtable.php", r.URL.Path)
		assert.Equal(t, "20252026", r.URL.Query().Get("fromseason"))
		fmt.Fprint(w, teamTableHTML)
	}))
	defer srv.Close()

	client := NewNSTClient(testFetcher(nil), srv.URL, testLogger())
	rows, err := client.TeamRates(context.Background(), nhl.Season("20252026"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Team name parses from the link text; abbreviation mapping is the
	// reconciler's concern, the extractor keeps what the source gave it.
	require.NotNil(t, rows[1].ShotsFor60)
	assert.InDelta(t, 33.4, *rows[1].ShotsFor60, 1e-9)
}

const skaterTableHTML = `<html><body><table>
<thead><tr><th>Player</th><th>Team</th><th>G/60</th><th>A/60</th><th>S/60</th><th>Blk/60</th></tr></thead>
<tbody>
<tr><td>David Pastrnak</td><td>BOS</td><td>1.4</td><td>1.1</td><td>11.2</td><td>0.8</td></tr>
</tbody></table></body></html>`

func TestNSTClientSkaterWindows(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		fmt.Fprint(w, skaterTableHTML)
	}))
	defer srv.Close()

	client := NewNSTClient(testFetcher(nil), srv.URL, testLogger())
	windows, err := client.SkaterWindows(context.Background(), "BOS", nhl.Season("20252026"))
	require.NoError(t, err)

	// season, last 10 games, last 30, prior season
	assert.Len(t, requests, 4)
	for _, w := range []nhl.Window{nhl.WindowSeason, nhl.WindowRecent, nhl.WindowMid, nhl.WindowPrior} {
		rows, ok := windows[w]
		require.True(t, ok, "missing window %s", w)
		require.Len(t, rows, 1)
		assert.Equal(t, "David Pastrnak", rows[0].Name)
	}
}

func TestNSTClientRelocatedTeamRetry(t *testing.T) {
	const emptyTable = `<html><body><table><thead><tr><th>Player</th><th>G/60</th></tr></thead><tbody></tbody></table></body></html>`
	var codes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("team")
		codes = append(codes, code)
		if code == "UTA" {
			fmt.Fprint(w, emptyTable)
			return
		}
		fmt.Fprint(w, skaterTableHTML)
	}))
	defer srv.Close()

	client := NewNSTClient(testFetcher(nil), srv.URL, testLogger())
	windows, err := client.SkaterWindows(context.Background(), "UTA", nhl.Season("20252026"))
	require.NoError(t, err)
	assert.Contains(t, codes, "ARI")
	assert.Len(t, windows[nhl.WindowSeason], 1)
}

func TestScheduleClientLegacyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"dates":[{"date":"2026-01-15","games":[
			{"gamePk":1,"teams":{"home":{"team":{"triCode":"BOS"}},"away":{"team":{"triCode":"COL"}}}},
			{"gamePk":2,"teams":{"home":{"team":{"triCode":""}},"away":{"team":{"triCode":"TOR"}}}}
		]}]}`)
	}))
	defer srv.Close()

	client := NewScheduleClient(testFetcher(nil), srv.URL, testLogger())
	games, err := client.TodaysGames(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "BOS", games[0].Home)
	assert.Equal(t, "COL", games[0].Away)
}

func TestScheduleClientWeeklyPayloadKeepsSlateDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"gameWeek":[
			{"date":"2026-01-15","games":[{"id":1,"homeTeam":{"abbrev":"BOS"},"awayTeam":{"abbrev":"COL"}}]},
			{"date":"2026-01-16","games":[{"id":2,"homeTeam":{"abbrev":"TOR"},"awayTeam":{"abbrev":"NYR"}}]}
		]}`)
	}))
	defer srv.Close()

	client := NewScheduleClient(testFetcher(nil), srv.URL, testLogger())
	day := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	games, err := client.TodaysGames(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "BOS", games[0].Home)
}

func TestParseSalaryCSV(t *testing.T) {
	data := []byte("Name,TeamAbbrev,Position,Salary,ID\nDavid Pastrnak,BOS,RW,8000,88123\nNoName,,C,,\n")
	entries, err := ParseSalaryCSV(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "David Pastrnak", entries[0].Name)
	assert.Equal(t, "BOS", entries[0].Team)
	require.NotNil(t, entries[0].Salary)
	assert.InDelta(t, 8000, *entries[0].Salary, 1e-9)
	require.NotNil(t, entries[0].PlayerID)
	assert.Equal(t, int64(88123), *entries[0].PlayerID)
	assert.Nil(t, entries[1].Salary)
}

func TestParseSalaryCSVSemicolon(t *testing.T) {
	data := []byte("Name;TeamAbbrev;Position;Salary\nNathan MacKinnon;COL;C;9200\n")
	entries, err := ParseSalaryCSV(data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Nathan MacKinnon", entries[0].Name)
	require.NotNil(t, entries[0].Salary)
	assert.InDelta(t, 9200, *entries[0].Salary, 1e-9)
}

func TestParseSalaryCSVNoNameColumn(t *testing.T) {
	_, err := ParseSalaryCSV([]byte("Foo,Bar\n1,2\n"))
	assert.Error(t, err)
}

func TestLineupsClientFetch(t *testing.T) {
	var etagSeen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		etagSeen = r.Header.Get("If-None-Match")
		if etagSeen == `"abc"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		fmt.Fprint(w, `[
			{"playerId":88123,"name":"David Pastrnak","team":"BOS","position":"RW","line":1,"ppUnit":1},
			{"playerId":4321,"name":"Charlie McAvoy","team":"BOS","position":"D","line":1},
			{"name":"Spare Guy","team":"BOS","position":"C"}
		]`)
	}))
	defer srv.Close()

	client := NewLineupsClient(testFetcher(nil), nil, srv.URL, testLogger())
	rows, err := client.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "L1", rows[0].Line)
	assert.Equal(t, "PP1", rows[0].PPUnit)
	assert.Equal(t, "P1", rows[1].Line, "defensemen report pairings")
	assert.Equal(t, "", rows[2].Line)

	// Second fetch revalidates with the stored ETag and reuses the payload.
	again, err := client.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, etagSeen)
	assert.Equal(t, rows, again)
}
