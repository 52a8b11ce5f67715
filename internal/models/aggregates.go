// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package models

import (
	"time"

	"github.com/google/uuid"
)

// SingleEventTimeSpentSeconds is the dwell time reported for a minute
// group containing exactly one event. One timestamp carries no duration
// signal, so a fixed default stands in for a measurement.
const SingleEventTimeSpentSeconds = 60.0

// FirstObservationConfidence is the confidence assigned to the first
// mastery observation of a (learner, content) pair, where no previous
// value exists to measure a swing against.
const FirstObservationConfidence = 0.7

// MinuteMetric is one row of the minute_metrics table: activity counters
// for one learner, within one UTC minute, within one session (or no
// session).
type MinuteMetric struct {
	LearnerID       string    `json:"learner_id"`
	MinuteTimestamp time.Time `json:"minute_timestamp"`
	SessionID       *string   `json:"session_id,omitempty"`
	PartitionDate   time.Time `json:"partition_date"`

	PageViews            int `json:"page_views"`
	Interactions         int `json:"interactions"`
	AssessmentsStarted   int `json:"assessments_started"`
	AssessmentsCompleted int `json:"assessments_completed"`
	LessonsStarted       int `json:"lessons_started"`
	LessonsCompleted     int `json:"lessons_completed"`
	Errors               int `json:"error_count"`
	TotalEvents          int `json:"total_events"`

	TimeSpentSeconds float64 `json:"time_spent_seconds"`
}

// SessionMetric is one row of the session_metrics table: the summary of
// one learner session. A session belongs to the partition date of its
// first event even when it spans midnight.
type SessionMetric struct {
	SessionID     string    `json:"session_id"`
	LearnerID     string    `json:"learner_id"`
	PartitionDate time.Time `json:"partition_date"`

	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	LastActivity    time.Time `json:"last_activity"`

	TotalEvents          int `json:"total_events"`
	PageViews            int `json:"page_views"`
	Interactions         int `json:"interactions"`
	UniquePages          int `json:"unique_pages"`
	LessonsStarted       int `json:"lessons_started"`
	LessonsCompleted     int `json:"lessons_completed"`
	AssessmentsStarted   int `json:"assessments_started"`
	AssessmentsCompleted int `json:"assessments_completed"`
	ErrorCount           int `json:"error_count"`

	AvgAssessmentScore *float64 `json:"avg_assessment_score,omitempty"`
	CompletionRate     float64  `json:"completion_rate"`

	// IsActive reflects whether the session's last event fell within the
	// active window of the aggregation's run time. It is a run-time
	// judgment, not a property of the events themselves.
	IsActive bool `json:"is_active"`
}

// MasteryDelta is one row of the mastery_deltas table: a change in the
// estimated mastery of one learner on one piece of content, triggered by
// a qualifying assessment completion.
type MasteryDelta struct {
	LearnerID     string    `json:"learner_id"`
	ContentID     string    `json:"content_id"`
	Timestamp     time.Time `json:"timestamp"`
	PartitionDate time.Time `json:"partition_date"`

	// PreviousMastery is nil for the first observation of a pair.
	PreviousMastery *float64 `json:"previous_mastery,omitempty"`
	CurrentMastery  float64  `json:"current_mastery"`
	MasteryDelta    float64  `json:"mastery_delta"`

	TriggerEventID  uuid.UUID `json:"trigger_event_id"`
	ConfidenceScore float64   `json:"confidence_score"`
	EvidenceCount   int       `json:"evidence_count"`
}
