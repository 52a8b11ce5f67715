// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package services

import (
	"context"
	"fmt"
)

// StartStopper matches the scheduler's lifecycle: Start spawns the
// internal loop and returns, Stop blocks until it has drained.
// Satisfied by *scheduler.Scheduler.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the pipeline scheduler as a supervised
// service, adapting Start/Stop to suture's Serve pattern.
type SchedulerService struct {
	scheduler StartStopper
	name      string
}

// NewSchedulerService creates a scheduler service wrapper.
func NewSchedulerService(scheduler StartStopper) *SchedulerService {
	return &SchedulerService{
		scheduler: scheduler,
		name:      "pipeline-scheduler",
	}
}

// Serve implements suture.Service. If Start fails, the error is
// returned immediately and suture restarts the service according to its
// backoff policy.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *SchedulerService) String() string {
	return s.name
}
