// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/learnlens/internal/models"
)

// Shared test fixtures for the aggregator tests.

// baseTime is a fixed reference instant: 2026-03-10 10:00:00 UTC.
var baseTime = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

// strPtr returns a pointer to s.
func strPtr(s string) *string { return &s }

// f64Ptr returns a pointer to f.
func f64Ptr(f float64) *float64 { return &f }

// testEvent builds a raw event with a fresh unique id.
func testEvent(learner string, typ models.EventType, ts time.Time, session *string, payload models.EventPayload) models.RawEvent {
	return models.RawEvent{
		EventID:       uuid.New(),
		LearnerID:     learner,
		EventType:     typ,
		SessionID:     session,
		Timestamp:     ts,
		Data:          payload,
		PartitionDate: models.PartitionDateOf(ts),
	}
}

// assessmentComplete builds a qualifying assessment completion event.
func assessmentComplete(learner, content string, ts time.Time, score float64, maxScore *float64) models.RawEvent {
	return testEvent(learner, models.EventAssessmentComplete, ts, strPtr("s-"+learner), models.EventPayload{
		AssessmentID: strPtr(content),
		Score:        f64Ptr(score),
		MaxScore:     maxScore,
	})
}
