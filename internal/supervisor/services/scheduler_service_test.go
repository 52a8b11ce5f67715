// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeScheduler struct {
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (s *fakeScheduler) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeScheduler) Stop() error {
	s.stopped = true
	return s.stopErr
}

func TestSchedulerService_StartFailure(t *testing.T) {
	sched := &fakeScheduler{startErr: errors.New("already running")}
	svc := NewSchedulerService(sched)

	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Expected start failure to propagate")
	}
	if sched.stopped {
		t.Error("Stop must not be called when Start failed")
	}
}

func TestSchedulerService_StopsOnCancel(t *testing.T) {
	sched := &fakeScheduler{}
	svc := NewSchedulerService(sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if !sched.started || !sched.stopped {
		t.Errorf("Expected start and stop, got started=%v stopped=%v", sched.started, sched.stopped)
	}
}

func TestSchedulerService_String(t *testing.T) {
	svc := NewSchedulerService(&fakeScheduler{})
	if svc.String() != "pipeline-scheduler" {
		t.Errorf("Unexpected service name %q", svc.String())
	}
}
