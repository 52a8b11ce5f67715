// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

// Package models defines the event and aggregate types shared between
// the storage layer, the aggregators, and the API.
package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType classifies one learner interaction event.
type EventType string

// Known event types. Events of any other type are still stored and
// counted toward activity totals; they simply have no dedicated counter.
const (
	EventPageView           EventType = "page_view"
	EventInteraction        EventType = "interaction"
	EventAssessmentStart    EventType = "assessment_start"
	EventAssessmentComplete EventType = "assessment_complete"
	EventLessonStart        EventType = "lesson_start"
	EventLessonComplete     EventType = "lesson_complete"
	EventError              EventType = "error"
)

// EventPayload is the semi-structured document attached to an event.
// Every field is optional; which fields are present depends on the
// event type and the upstream client version.
type EventPayload struct {
	AssessmentID *string  `json:"assessment_id,omitempty"`
	Score        *float64 `json:"score,omitempty"`
	MaxScore     *float64 `json:"max_score,omitempty"`
	PageID       *string  `json:"page_id,omitempty"`
}

// DecodeEventPayload parses a stored payload document.
func DecodeEventPayload(data []byte) (EventPayload, error) {
	var p EventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return EventPayload{}, err
	}
	return p, nil
}

// Encode serializes the payload for storage.
func (p EventPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// RawEvent is one immutable learner interaction event as stored in the
// raw_events table. Events arrive from the ingestion system with a
// globally unique event id; Learnlens never mutates them.
type RawEvent struct {
	EventID   uuid.UUID    `json:"event_id"`
	LearnerID string       `json:"learner_id"`
	EventType EventType    `json:"event_type"`
	SessionID *string      `json:"session_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Data      EventPayload `json:"data"`

	// RawData is the payload document exactly as stored, kept alongside
	// the decoded form for byte accounting and round-tripping.
	RawData []byte `json:"-"`

	// PartitionDate is the event's UTC calendar date, the unit of all
	// incremental loads and retention deletes.
	PartitionDate time.Time `json:"partition_date"`
}

// PartitionDateOf floors a timestamp to its UTC calendar date.
func PartitionDateOf(ts time.Time) time.Time {
	t := ts.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
