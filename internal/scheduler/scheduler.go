// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

// Package scheduler drives the pipeline on its periodic cadence: a
// daily refresh that loads "yesterday" into all three derived tables,
// a weekly raw-event cleanup, and a monthly derived-table cleanup.
//
// The scheduler is a thin driver kept outside the core on purpose: it
// only computes date arguments and calls the orchestrator's and
// retention manager's public entry points, so the core stays testable
// by direct invocation with explicit ranges. Cadence is configuration,
// not contract.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/learnlens/internal/config"
	"github.com/tomtom215/learnlens/internal/logging"
	"github.com/tomtom215/learnlens/internal/pipeline"
)

// Loader is the orchestrator surface the scheduler drives.
// Satisfied by *pipeline.Orchestrator.
type Loader interface {
	LoadAll(ctx context.Context, startDate, endDate time.Time) ([]*pipeline.LoadResult, error)
}

// RetentionRunner is the retention surface the scheduler drives.
// Satisfied by *pipeline.RetentionManager.
type RetentionRunner interface {
	Run(ctx context.Context, target pipeline.RetentionTarget) (*pipeline.RetentionResult, error)
}

// Scheduler triggers pipeline work on a fixed cadence.
type Scheduler struct {
	loader    Loader
	retention RetentionRunner
	cfg       config.SchedulerConfig
	logger    zerolog.Logger
	now       func() time.Time

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastLoad             time.Time
	lastRawRetention     time.Time
	lastDerivedRetention time.Time
}

// New creates a scheduler over the given pipeline entry points.
func New(loader Loader, retention RetentionRunner, cfg config.SchedulerConfig) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.LoadInterval <= 0 {
		cfg.LoadInterval = 24 * time.Hour
	}
	if cfg.RawRetentionInterval <= 0 {
		cfg.RawRetentionInterval = 168 * time.Hour
	}
	if cfg.DerivedRetentionInterval <= 0 {
		cfg.DerivedRetentionInterval = 720 * time.Hour
	}

	return &Scheduler{
		loader:    loader,
		retention: retention,
		cfg:       cfg,
		logger:    logging.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
	}
}

// SetClock overrides the wall clock. Test use only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the scheduler loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	// Mark all work as just-done at startup so a process restart does
	// not immediately re-trigger loads; the first tick after a full
	// interval elapses runs them.
	startedAt := s.now()
	s.lastLoad = startedAt
	s.lastRawRetention = startedAt
	s.lastDerivedRetention = startedAt
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	return nil
}

// run is the ticker loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("check_interval", s.cfg.CheckInterval).
		Dur("load_interval", s.cfg.LoadInterval).
		Msg("Scheduler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs any work whose interval has elapsed. Failures are logged
// and retried on the next due tick; the pipeline's idempotence makes
// blind re-invocation safe.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	loadDue := now.Sub(s.lastLoad) >= s.cfg.LoadInterval
	rawDue := now.Sub(s.lastRawRetention) >= s.cfg.RawRetentionInterval
	derivedDue := now.Sub(s.lastDerivedRetention) >= s.cfg.DerivedRetentionInterval
	s.mu.Unlock()

	if loadDue {
		s.runDailyLoad(ctx, now)
	}
	if rawDue {
		s.runRetention(ctx, pipeline.RetentionRaw, now)
	}
	if derivedDue {
		s.runRetention(ctx, pipeline.RetentionDerived, now)
	}
}

// runDailyLoad refreshes all derived tables for yesterday.
func (s *Scheduler) runDailyLoad(ctx context.Context, now time.Time) {
	yesterday := now.UTC().AddDate(0, 0, -1)

	results, err := s.loader.LoadAll(ctx, yesterday, yesterday)
	if err != nil {
		// Partial success is possible: LoadAll continues past per-table
		// failures. Completed tables are recorded; the failed ones will
		// be retried on the next due tick.
		s.logger.Error().
			Err(err).
			Int("tables_loaded", len(results)).
			Msg("Daily load finished with failures")
	} else {
		s.logger.Info().
			Int("tables_loaded", len(results)).
			Time("partition_date", yesterday).
			Msg("Daily load complete")
	}

	s.mu.Lock()
	s.lastLoad = now
	s.mu.Unlock()
}

// runRetention runs one retention target.
func (s *Scheduler) runRetention(ctx context.Context, target pipeline.RetentionTarget, now time.Time) {
	if _, err := s.retention.Run(ctx, target); err != nil {
		s.logger.Error().
			Err(err).
			Str("target", string(target)).
			Msg("Scheduled retention run failed")
	}

	s.mu.Lock()
	switch target {
	case pipeline.RetentionRaw:
		s.lastRawRetention = now
	case pipeline.RetentionDerived:
		s.lastDerivedRetention = now
	}
	s.mu.Unlock()
}
