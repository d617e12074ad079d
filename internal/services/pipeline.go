package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/adpsports/nhl-projections/internal/extract"
	"github.com/adpsports/nhl-projections/internal/models"
	"github.com/adpsports/nhl-projections/internal/nhl"
	"github.com/adpsports/nhl-projections/internal/projections"
	"github.com/adpsports/nhl-projections/internal/providers"
	"github.com/adpsports/nhl-projections/internal/store"
	"github.com/adpsports/nhl-projections/pkg/config"
)

// PipelineService runs the full projection build: fetch the slate, pull
// every stat window, reconcile entities, blend, adjust, score, and group.
type PipelineService struct {
	cfg       *config.Config
	cache     *CacheService
	nst       *providers.NSTClient
	schedule  *providers.ScheduleClient
	lineups   *providers.LineupsClient
	salaries  *providers.SalaryLoader
	baselines *store.BaselineStore
	alerts    *AlertService
	logger    *logrus.Logger
}

// NewPipelineService wires the pipeline from its collaborators. cache,
// lineups, baselines, and alerts may each be nil; the pipeline degrades to
// running without them.
func NewPipelineService(
	cfg *config.Config,
	cache *CacheService,
	nst *providers.NSTClient,
	schedule *providers.ScheduleClient,
	lineups *providers.LineupsClient,
	salaries *providers.SalaryLoader,
	baselines *store.BaselineStore,
	alerts *AlertService,
	logger *logrus.Logger,
) *PipelineService {
	return &PipelineService{
		cfg:       cfg,
		cache:     cache,
		nst:       nst,
		schedule:  schedule,
		lineups:   lineups,
		salaries:  salaries,
		baselines: baselines,
		alerts:    alerts,
		logger:    logger,
	}
}

// RunResult is one completed slate build.
type RunResult struct {
	RunID     string                         `json:"run_id"`
	SlateDate string                         `json:"slate_date"`
	Season    string                         `json:"season"`
	Games     []nhl.Game                     `json:"games"`
	Skaters   []projections.SkaterProjection `json:"skaters"`
	Goalies   []projections.GoalieProjection `json:"goalies"`
	Stacks    []projections.Stack            `json:"stacks"`
	Teams     []nhl.TeamContext              `json:"teams,omitempty"`
	Warnings  []string                       `json:"warnings,omitempty"`
	BuiltAt   time.Time                      `json:"built_at"`
}

// skaterFetch is one team's windowed skater tables, or the error that
// prevented them.
type skaterFetch struct {
	team    string
	windows map[nhl.Window][]extract.PlayerRatesRow
	err     error
}

// Run builds projections for the slate on day. A failed source narrows the
// data (absent metrics fall back later); only an empty schedule or a total
// skater-source failure aborts the run.
func (p *PipelineService) Run(ctx context.Context, day time.Time) (*RunResult, error) {
	runID := uuid.New().String()
	season := nhl.CurrentSeason(day)
	slate := day.Format("2006-01-02")

	log := p.logger.WithFields(logrus.Fields{"run_id": runID, "slate": slate})
	log.Info("Starting projection run")

	games, err := p.schedule.TodaysGames(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("projection run: %w", err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("projection run: no games scheduled for %s", slate)
	}
	opponents := nhl.BuildOpponentMap(games)

	var warnings []string

	teamContexts := p.fetchTeamContexts(ctx, season, &warnings)
	skaterWindows := p.fetchSkaterWindows(ctx, opponents, season, &warnings)
	if len(skaterWindows) == 0 {
		return nil, fmt.Errorf("projection run: no skater stats available for any team")
	}

	goalieWindows, err := p.nst.GoalieWindows(ctx, season)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("goalie stats unavailable: %v", err))
		goalieWindows = nil
	}

	var assignments []extract.LineAssignmentRow
	if p.lineups != nil {
		assignments, err = p.lineups.Fetch(ctx, "")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("lineups unavailable: %v", err))
		}
	}

	var roster []projections.RosterEntry
	if p.salaries != nil {
		roster, err = p.salaries.Load()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("salary manifest unreadable: %v", err))
		}
	}

	rec := projections.Reconcile(projections.ReconcileInput{
		Roster:        roster,
		SkaterWindows: skaterWindows,
		GoalieWindows: goalieWindows,
		Assignments:   assignments,
		Opponents:     opponents,
		Weights:       p.cfg.BlendWeights(),
	})
	warnings = append(warnings, rec.Warnings...)

	missing := p.tagMissingBaselines(season, rec.Skaters, rec.Goalies, &warnings)

	fallbacks := p.cfg.FallbackRates()
	skaters := projections.ApplyFallbacks(rec.Skaters, fallbacks)
	goalies := projections.ApplyFallbacks(rec.Goalies, fallbacks)

	league := p.cfg.LeagueAverages()
	multipliers := p.cfg.AssignmentMultipliers()
	weights := p.cfg.ScoringWeights()

	skaterProj := make([]projections.SkaterProjection, 0, len(skaters))
	for _, e := range skaters {
		adjusted := projections.Adjust(e, opponentContext(e, opponents, teamContexts), league, multipliers)
		skaterProj = append(skaterProj, projections.ScoreSkater(adjusted, weights))
	}
	goalieProj := make([]projections.GoalieProjection, 0, len(goalies))
	for _, e := range goalies {
		goalieProj = append(goalieProj, projections.ScoreGoalie(e, opponentContext(e, opponents, teamContexts), league, weights))
	}

	sortSkaters(skaterProj)
	sortGoalies(goalieProj)
	stacks := projections.BuildStacks(skaterProj)

	result := &RunResult{
		RunID:     runID,
		SlateDate: slate,
		Season:    string(season),
		Games:     games,
		Skaters:   skaterProj,
		Goalies:   goalieProj,
		Stacks:    stacks,
		Teams:     sortedTeamContexts(teamContexts),
		Warnings:  warnings,
		BuiltAt:   time.Now().UTC(),
	}

	p.persist(ctx, season, result, skaters, goalies, teamContexts)
	p.alerts.NotifyMissingBaseline(slate, missing)

	log.WithFields(logrus.Fields{
		"skaters":  len(skaterProj),
		"goalies":  len(goalieProj),
		"stacks":   len(stacks),
		"warnings": len(warnings),
	}).Info("Projection run complete")
	return result, nil
}

// Cached returns the most recent run for the slate date from the cache.
func (p *PipelineService) Cached(ctx context.Context, slateDate string) (*RunResult, bool) {
	if p.cache == nil {
		return nil, false
	}
	var result RunResult
	if err := p.cache.Get(ctx, RunCacheKey(slateDate), &result); err != nil {
		return nil, false
	}
	return &result, true
}

// fetchTeamContexts pulls the league team table and keys it by
// abbreviation. On source failure yesterday's cached contexts still serve;
// with neither, every opponent factor degrades to neutral.
func (p *PipelineService) fetchTeamContexts(ctx context.Context, season nhl.Season, warnings *[]string) map[string]nhl.TeamContext {
	rows, err := p.nst.TeamRates(ctx, season)
	if err != nil {
		if cached := p.cachedTeamContexts(ctx, season); cached != nil {
			*warnings = append(*warnings, fmt.Sprintf("team stats unavailable, using cached contexts: %v", err))
			return cached
		}
		*warnings = append(*warnings, fmt.Sprintf("team stats unavailable, all opponent factors neutral: %v", err))
		return nil
	}

	contexts := make(map[string]nhl.TeamContext, len(rows))
	for _, r := range rows {
		code := nhl.TeamCode(r.Team)
		contexts[code] = nhl.TeamContext{
			Team:              code,
			ShotsFor60:        r.ShotsFor60,
			ShotsAllowed60:    r.ShotsAllowed60,
			AttemptsAllowed60: r.AttemptsAllowed60,
			XGoalsAllowed60:   r.XGoalsAllowed60,
			LastUpdated:       time.Now().UTC(),
		}
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, TeamContextCacheKey(string(season)), contexts, 48*time.Hour); err != nil {
			p.logger.Warnf("Failed to cache team contexts: %v", err)
		}
	}
	return contexts
}

func (p *PipelineService) cachedTeamContexts(ctx context.Context, season nhl.Season) map[string]nhl.TeamContext {
	if p.cache == nil {
		return nil
	}
	var contexts map[string]nhl.TeamContext
	if err := p.cache.Get(ctx, TeamContextCacheKey(string(season)), &contexts); err != nil {
		return nil
	}
	return contexts
}

// fetchSkaterWindows pulls every playing team's windowed skater tables in
// parallel and merges them into one window-keyed set.
func (p *PipelineService) fetchSkaterWindows(ctx context.Context, opponents nhl.OpponentMap, season nhl.Season, warnings *[]string) map[nhl.Window][]extract.PlayerRatesRow {
	teams := make([]string, 0, len(opponents))
	for t := range opponents {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	var wg sync.WaitGroup
	results := make(chan skaterFetch, len(teams))
	for _, team := range teams {
		wg.Add(1)
		go func(team string) {
			defer wg.Done()
			windows, err := p.nst.SkaterWindows(ctx, team, season)
			results <- skaterFetch{team: team, windows: windows, err: err}
		}(team)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	byTeam := make(map[string]map[nhl.Window][]extract.PlayerRatesRow, len(teams))
	for res := range results {
		if res.err != nil {
			p.logger.Warnf("Skater fetch failed for %s: %v", res.team, res.err)
			*warnings = append(*warnings, fmt.Sprintf("skater stats unavailable for %s: %v", res.team, res.err))
			continue
		}
		byTeam[res.team] = res.windows
	}

	// Deterministic merge order: team order is sorted, window contents
	// keep source order within each team.
	merged := make(map[nhl.Window][]extract.PlayerRatesRow)
	for _, team := range teams {
		windows, ok := byTeam[team]
		if !ok {
			continue
		}
		for w, rows := range windows {
			merged[w] = append(merged[w], rows...)
		}
	}
	if len(byTeam) == 0 {
		return nil
	}
	return merged
}

// tagMissingBaselines flags entities absent from the stored baseline and
// returns them for alerting.
func (p *PipelineService) tagMissingBaselines(season nhl.Season, skaters, goalies []nhl.Entity, warnings *[]string) []nhl.Entity {
	if p.baselines == nil {
		return nil
	}
	ids, keys, err := p.baselines.KnownPlayers(season)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("baseline lookup failed: %v", err))
		return nil
	}
	if len(ids) == 0 && len(keys) == 0 {
		// First run of a season has nothing stored yet; flagging the
		// whole league would be noise.
		return nil
	}
	missing := store.TagMissingBaseline(skaters, ids, keys)
	missing = append(missing, store.TagMissingBaseline(goalies, ids, keys)...)
	for _, e := range missing {
		*warnings = append(*warnings, fmt.Sprintf("no baseline for %s (%s), projections on fallbacks", e.Name, e.Team))
	}
	return missing
}

// persist caches the result and refreshes stored baselines. Failures here
// never fail the run.
func (p *PipelineService) persist(ctx context.Context, season nhl.Season, result *RunResult, skaters, goalies []nhl.Entity, contexts map[string]nhl.TeamContext) {
	if p.cache != nil {
		if err := p.cache.SetWithRetry(ctx, RunCacheKey(result.SlateDate), result, 24*time.Hour, 3); err != nil {
			p.logger.Warnf("Failed to cache run result: %v", err)
		}
	}

	if p.baselines == nil {
		return
	}
	if err := p.baselines.SavePlayers(season, append(append([]nhl.Entity{}, skaters...), goalies...)); err != nil {
		p.logger.Warnf("Failed to save player baselines: %v", err)
	}
	if err := p.baselines.SaveTeams(season, contexts); err != nil {
		p.logger.Warnf("Failed to save team baselines: %v", err)
	}
	warnJSON, _ := projectionRunWarnings(result.Warnings)
	if err := p.baselines.RecordRun(&models.ProjectionRun{
		RunID:       result.RunID,
		SlateDate:   result.SlateDate,
		Season:      string(season),
		SkaterCount: len(result.Skaters),
		GoalieCount: len(result.Goalies),
		StackCount:  len(result.Stacks),
		Warnings:    warnJSON,
	}); err != nil {
		p.logger.Warnf("Failed to record run: %v", err)
	}
}

func projectionRunWarnings(warnings []string) (datatypes.JSON, error) {
	if len(warnings) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(warnings)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func opponentContext(e nhl.Entity, opponents nhl.OpponentMap, contexts map[string]nhl.TeamContext) *nhl.TeamContext {
	opp, ok := opponents[e.Team]
	if !ok {
		return nil
	}
	ctx, ok := contexts[opp]
	if !ok {
		return nil
	}
	return &ctx
}

func sortSkaters(s []projections.SkaterProjection) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Points != s[j].Points {
			return s[i].Points > s[j].Points
		}
		return s[i].CanonicalID < s[j].CanonicalID
	})
}

func sortGoalies(g []projections.GoalieProjection) {
	sort.SliceStable(g, func(i, j int) bool {
		if g[i].Points != g[j].Points {
			return g[i].Points > g[j].Points
		}
		return g[i].CanonicalID < g[j].CanonicalID
	})
}

// sortedTeamContexts flattens the context map in team order so runs
// serialize reproducibly.
func sortedTeamContexts(contexts map[string]nhl.TeamContext) []nhl.TeamContext {
	teams := make([]string, 0, len(contexts))
	for team := range contexts {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	out := make([]nhl.TeamContext, 0, len(teams))
	for _, team := range teams {
		out = append(out, contexts[team])
	}
	return out
}
