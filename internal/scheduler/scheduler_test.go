// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/learnlens/internal/config"
	"github.com/tomtom215/learnlens/internal/pipeline"
)

type fakeLoader struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (l *fakeLoader) LoadAll(_ context.Context, startDate, _ time.Time) ([]*pipeline.LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, startDate)
	if l.err != nil {
		return nil, l.err
	}
	return []*pipeline.LoadResult{{}, {}, {}}, nil
}

func (l *fakeLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type fakeRetention struct {
	mu      sync.Mutex
	targets []pipeline.RetentionTarget
}

func (r *fakeRetention) Run(_ context.Context, target pipeline.RetentionTarget) (*pipeline.RetentionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
	return &pipeline.RetentionResult{Target: target}, nil
}

func (r *fakeRetention) ran(target pipeline.RetentionTarget) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.targets {
		if t == target {
			return true
		}
	}
	return false
}

func testScheduler(loader Loader, retention RetentionRunner) *Scheduler {
	return New(loader, retention, config.SchedulerConfig{
		Enabled:                  true,
		CheckInterval:            time.Minute,
		LoadInterval:             24 * time.Hour,
		RawRetentionInterval:     168 * time.Hour,
		DerivedRetentionInterval: 720 * time.Hour,
	})
}

func TestSchedulerTick_NothingDueAfterStart(t *testing.T) {
	loader := &fakeLoader{}
	retention := &fakeRetention{}
	s := testScheduler(loader, retention)

	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	now := start
	s.SetClock(func() time.Time { return now })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = s.Stop() }()

	// One minute after start nothing has accrued a full interval.
	now = start.Add(time.Minute)
	s.tick(context.Background())

	if loader.callCount() != 0 {
		t.Errorf("Expected no load right after start, got %d calls", loader.callCount())
	}
	if len(retention.targets) != 0 {
		t.Errorf("Expected no retention right after start, got %v", retention.targets)
	}
}

func TestSchedulerTick_DailyLoadYesterday(t *testing.T) {
	loader := &fakeLoader{}
	retention := &fakeRetention{}
	s := testScheduler(loader, retention)

	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	now := start
	s.SetClock(func() time.Time { return now })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = s.Stop() }()

	now = start.Add(24 * time.Hour)
	s.tick(context.Background())

	if loader.callCount() != 1 {
		t.Fatalf("Expected 1 load after a full day, got %d", loader.callCount())
	}
	// Run time is 2026-03-11 06:00; yesterday is 2026-03-10.
	got := loader.calls[0]
	if got.UTC().Format("2006-01-02") != "2026-03-10" {
		t.Errorf("Expected load of 2026-03-10, got %v", got)
	}

	// The load is marked done; an immediate second tick is a no-op.
	s.tick(context.Background())
	if loader.callCount() != 1 {
		t.Errorf("Expected load interval to reset, got %d calls", loader.callCount())
	}
}

func TestSchedulerTick_LoadFailureRetriedNextDue(t *testing.T) {
	loader := &fakeLoader{err: errors.New("store down")}
	retention := &fakeRetention{}
	s := testScheduler(loader, retention)

	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	now := start
	s.SetClock(func() time.Time { return now })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = s.Stop() }()

	now = start.Add(24 * time.Hour)
	s.tick(context.Background())
	if loader.callCount() != 1 {
		t.Fatalf("Expected the failing load to be attempted, got %d", loader.callCount())
	}

	// The failure still advanced lastLoad; retry happens a day later,
	// not on the next minute tick.
	now = now.Add(time.Minute)
	s.tick(context.Background())
	if loader.callCount() != 1 {
		t.Errorf("Expected no immediate retry, got %d calls", loader.callCount())
	}

	now = now.Add(24 * time.Hour)
	s.tick(context.Background())
	if loader.callCount() != 2 {
		t.Errorf("Expected retry at the next interval, got %d calls", loader.callCount())
	}
}

func TestSchedulerTick_RetentionCadences(t *testing.T) {
	loader := &fakeLoader{}
	retention := &fakeRetention{}
	s := testScheduler(loader, retention)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	now := start
	s.SetClock(func() time.Time { return now })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = s.Stop() }()

	// After a week only raw retention is due.
	now = start.Add(168 * time.Hour)
	s.tick(context.Background())
	if !retention.ran(pipeline.RetentionRaw) {
		t.Error("Expected raw retention after a week")
	}
	if retention.ran(pipeline.RetentionDerived) {
		t.Error("Derived retention must not run after only a week")
	}

	// After 30 days derived retention is due too.
	now = start.Add(720 * time.Hour)
	s.tick(context.Background())
	if !retention.ran(pipeline.RetentionDerived) {
		t.Error("Expected derived retention after 30 days")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	loader := &fakeLoader{}
	retention := &fakeRetention{}
	s := testScheduler(loader, retention)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("Second Start must fail while running")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stop when stopped is a no-op.
	if err := s.Stop(); err != nil {
		t.Fatalf("Repeat Stop failed: %v", err)
	}

	// Restart works.
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop after restart failed: %v", err)
	}
}
