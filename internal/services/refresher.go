package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RefreshService runs the projection pipeline on a schedule and keeps the
// latest result available for the API.
type RefreshService struct {
	pipeline *PipelineService
	logger   *logrus.Logger
	cron     *cron.Cron
	interval time.Duration

	mu        sync.RWMutex
	isRunning bool
	latest    *RunResult
	lastErr   error
}

// NewRefreshService creates a refresh service rebuilding projections every
// interval.
func NewRefreshService(pipeline *PipelineService, interval time.Duration, logger *logrus.Logger) *RefreshService {
	return &RefreshService{
		pipeline: pipeline,
		logger:   logger,
		cron:     cron.New(),
		interval: interval,
	}
}

// Start begins scheduled refreshes and kicks off an immediate build.
func (s *RefreshService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("refresh service is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.interval.String())
	if _, err := s.cron.AddFunc(schedule, s.refresh); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	// Lineups firm up through the morning; rebuild before the typical
	// lock window regardless of the base interval.
	if _, err := s.cron.AddFunc("0 9,12,16 * * *", s.refresh); err != nil {
		return fmt.Errorf("failed to schedule morning refresh: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	go s.refresh()

	s.logger.Info("Refresh service started")
	return nil
}

// Stop halts scheduled refreshes, waiting for an in-flight run to finish.
func (s *RefreshService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Refresh service stopped")
}

// Latest returns the most recent successful run. A stale run still serves
// after a failed refresh; the error surfaces only when nothing has ever
// built.
func (s *RefreshService) Latest() (*RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest != nil {
		return s.latest, nil
	}
	if s.lastErr != nil {
		return nil, fmt.Errorf("no projection run available: %w", s.lastErr)
	}
	return nil, fmt.Errorf("no projection run built yet")
}

// RefreshNow triggers an immediate rebuild, returning its result.
func (s *RefreshService) RefreshNow(ctx context.Context) (*RunResult, error) {
	result, err := s.pipeline.Run(ctx, time.Now())

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.latest = result
	}
	s.mu.Unlock()

	return result, err
}

func (s *RefreshService) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	if _, err := s.RefreshNow(ctx); err != nil {
		s.logger.Errorf("Scheduled refresh failed: %v", err)
	}
}
