// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/learnlens/internal/config"
	"github.com/tomtom215/learnlens/internal/database"
	"github.com/tomtom215/learnlens/internal/models"
)

func setupPipelineDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedLearnerMorning stores one learner's short assessment session:
// assessment start at 10:00:00, a completion scoring 8/10 at 10:04:30,
// and a page view at 10:04:45, all in session s1 on 2026-03-10.
func seedLearnerMorning(t *testing.T, db *database.DB) {
	t.Helper()

	session := strPtr("s1")
	events := []models.RawEvent{
		testEvent("L1", models.EventAssessmentStart, baseTime, session,
			models.EventPayload{AssessmentID: strPtr("quiz-1")}),
		testEvent("L1", models.EventAssessmentComplete, baseTime.Add(4*time.Minute+30*time.Second), session,
			models.EventPayload{AssessmentID: strPtr("quiz-1"), Score: f64Ptr(8), MaxScore: f64Ptr(10)}),
		testEvent("L1", models.EventPageView, baseTime.Add(4*time.Minute+45*time.Second), session,
			models.EventPayload{PageID: strPtr("p1")}),
	}
	if _, err := db.InsertRawEventsBatch(context.Background(), events); err != nil {
		t.Fatalf("Failed to seed events: %v", err)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	db := setupPipelineDB(t)
	ctx := context.Background()
	seedLearnerMorning(t, db)

	orch := NewOrchestrator(db, config.PipelineConfig{
		ActiveSessionWindow: 30 * time.Minute,
		MaxRangeDays:        31,
	})
	orch.SetClock(func() time.Time { return baseTime.Add(10 * time.Minute) })

	results, err := orch.LoadAll(ctx, baseTime, baseTime)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 table loads, got %d", len(results))
	}

	minutes, err := db.GetMinuteMetrics(ctx, baseTime, baseTime)
	if err != nil {
		t.Fatalf("Read minute metrics failed: %v", err)
	}
	if len(minutes) != 2 {
		t.Fatalf("Expected 2 minute rows (10:00 and 10:04), got %d", len(minutes))
	}

	first := minutes[0]
	if first.AssessmentsStarted != 1 || first.TotalEvents != 1 {
		t.Errorf("Unexpected 10:00 row: %+v", first)
	}
	if first.TimeSpentSeconds != models.SingleEventTimeSpentSeconds {
		t.Errorf("Single-event minute must report the default dwell time, got %v", first.TimeSpentSeconds)
	}

	second := minutes[1]
	if second.AssessmentsCompleted != 1 || second.PageViews != 1 || second.TotalEvents != 2 {
		t.Errorf("Unexpected 10:04 row: %+v", second)
	}
	if second.TimeSpentSeconds != 15 {
		t.Errorf("Expected 15s span in the 10:04 minute, got %v", second.TimeSpentSeconds)
	}

	sessions, err := db.GetSessionMetrics(ctx, baseTime, baseTime)
	if err != nil {
		t.Fatalf("Read session metrics failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session row, got %d", len(sessions))
	}
	s := sessions[0]
	if s.DurationSeconds != 285 {
		t.Errorf("Expected session duration 285s, got %v", s.DurationSeconds)
	}
	if s.CompletionRate != 1.0 {
		t.Errorf("Expected completion_rate 1.0, got %v", s.CompletionRate)
	}
	if s.AvgAssessmentScore == nil || *s.AvgAssessmentScore != 8 {
		t.Errorf("Expected avg score 8, got %v", s.AvgAssessmentScore)
	}
	if !s.IsActive {
		t.Error("Session should be active 10 minutes after its last event")
	}

	deltas, err := db.GetMasteryDeltas(ctx, baseTime, baseTime)
	if err != nil {
		t.Fatalf("Read mastery deltas failed: %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("Expected 1 mastery delta, got %d", len(deltas))
	}
	d := deltas[0]
	if d.CurrentMastery != 0.8 || d.PreviousMastery != nil {
		t.Errorf("Expected first observation 0.8 with nil previous, got %+v", d)
	}
	if d.ConfidenceScore != models.FirstObservationConfidence {
		t.Errorf("Expected confidence %v, got %v", models.FirstObservationConfidence, d.ConfidenceScore)
	}
}

func TestPipelineReloadIsIdempotent(t *testing.T) {
	db := setupPipelineDB(t)
	ctx := context.Background()
	seedLearnerMorning(t, db)

	orch := NewOrchestrator(db, config.PipelineConfig{ActiveSessionWindow: 30 * time.Minute})
	orch.SetClock(func() time.Time { return baseTime.Add(10 * time.Minute) })

	if _, err := orch.LoadAll(ctx, baseTime, baseTime); err != nil {
		t.Fatalf("First LoadAll failed: %v", err)
	}
	firstMinutes, _ := db.GetMinuteMetrics(ctx, baseTime, baseTime)
	firstSessions, _ := db.GetSessionMetrics(ctx, baseTime, baseTime)
	firstDeltas, _ := db.GetMasteryDeltas(ctx, baseTime, baseTime)

	if _, err := orch.LoadAll(ctx, baseTime, baseTime); err != nil {
		t.Fatalf("Second LoadAll failed: %v", err)
	}
	secondMinutes, _ := db.GetMinuteMetrics(ctx, baseTime, baseTime)
	secondSessions, _ := db.GetSessionMetrics(ctx, baseTime, baseTime)
	secondDeltas, _ := db.GetMasteryDeltas(ctx, baseTime, baseTime)

	if !reflect.DeepEqual(firstMinutes, secondMinutes) {
		t.Error("Minute rows differ across identical reloads")
	}
	if !reflect.DeepEqual(firstSessions, secondSessions) {
		t.Error("Session rows differ across identical reloads")
	}
	if !reflect.DeepEqual(firstDeltas, secondDeltas) {
		t.Error("Mastery rows differ across identical reloads")
	}
}

func TestPipelinePartitionIsolation(t *testing.T) {
	db := setupPipelineDB(t)
	ctx := context.Background()

	nextDay := baseTime.AddDate(0, 0, 1)
	events := []models.RawEvent{
		testEvent("L1", models.EventPageView, baseTime, strPtr("s1"), models.EventPayload{}),
		testEvent("L1", models.EventPageView, nextDay, strPtr("s2"), models.EventPayload{}),
	}
	if _, err := db.InsertRawEventsBatch(ctx, events); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	orch := NewOrchestrator(db, config.PipelineConfig{ActiveSessionWindow: 30 * time.Minute})
	orch.SetClock(func() time.Time { return nextDay.Add(time.Hour) })

	if _, err := orch.LoadAll(ctx, baseTime, nextDay); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	dayOneBefore, _ := db.GetMinuteMetrics(ctx, baseTime, baseTime)

	// Reloading only the second day must leave the first day's rows
	// byte-identical.
	if _, err := orch.Load(ctx, TableMinuteMetrics, nextDay, nextDay, 0); err != nil {
		t.Fatalf("Day 2 reload failed: %v", err)
	}

	dayOneAfter, _ := db.GetMinuteMetrics(ctx, baseTime, baseTime)
	if !reflect.DeepEqual(dayOneBefore, dayOneAfter) {
		t.Error("Day 1 rows changed while reloading day 2")
	}
}

// flakyStore wraps the real store to fail the first replace, simulating
// an infrastructure failure mid-load.
type flakyStore struct {
	*database.DB
	failuresLeft int
}

func (s *flakyStore) ReplaceMinuteMetrics(ctx context.Context, startDate, endDate time.Time, rows []models.MinuteMetric) error {
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return errors.New("simulated write failure")
	}
	return s.DB.ReplaceMinuteMetrics(ctx, startDate, endDate, rows)
}

func TestPipelineRetryAfterFailure(t *testing.T) {
	db := setupPipelineDB(t)
	ctx := context.Background()
	seedLearnerMorning(t, db)

	store := &flakyStore{DB: db, failuresLeft: 1}
	orch := NewOrchestrator(store, config.PipelineConfig{ActiveSessionWindow: 30 * time.Minute})
	orch.SetClock(func() time.Time { return baseTime.Add(10 * time.Minute) })

	if _, err := orch.Load(ctx, TableMinuteMetrics, baseTime, baseTime, 0); err == nil {
		t.Fatal("Expected first load to fail")
	}

	// The failed transaction must have left the table empty, not
	// half-written.
	rows, err := db.GetMinuteMetrics(ctx, baseTime, baseTime)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("Failed load left %d rows behind", len(rows))
	}

	res, err := orch.Load(ctx, TableMinuteMetrics, baseTime, baseTime, 1)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if res.RecordsProcessed != 2 {
		t.Errorf("Expected 2 minute rows from retry, got %d", res.RecordsProcessed)
	}

	// Both attempts are on the audit trail: one failed, one completed.
	failed, err := db.ListJobStatuses(ctx, models.JobLoadMinuteMetrics, time.Time{}, time.Time{}, 100)
	if err != nil {
		t.Fatalf("List jobs failed: %v", err)
	}
	var sawFailed, sawCompleted bool
	for _, job := range failed {
		switch job.Status {
		case models.JobFailed:
			sawFailed = true
			if job.ErrorMessage == nil {
				t.Error("Failed job missing error message")
			}
		case models.JobCompleted:
			sawCompleted = true
			if job.RetryCount != 1 {
				t.Errorf("Expected retry_count 1 on the successful attempt, got %d", job.RetryCount)
			}
		}
	}
	if !sawFailed || !sawCompleted {
		t.Errorf("Expected one failed and one completed job, got %+v", failed)
	}
}
