// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"sort"
	"time"

	"github.com/tomtom215/learnlens/internal/models"
)

// minuteKey identifies one minute-rollup group. The minute is stored as
// Unix seconds so the struct is directly comparable as a map key.
type minuteKey struct {
	learnerID  string
	minuteUnix int64
	sessionID  string
	hasSession bool
	partition  int64
}

// minuteGroup accumulates one group's counters and time bounds.
type minuteGroup struct {
	metric  models.MinuteMetric
	firstTS time.Time
	lastTS  time.Time
}

// AggregateMinutes groups raw events by (learner, minute, session,
// partition date) and emits one MinuteMetric per group. Event types
// without a dedicated counter still count toward total_events. Empty
// input yields zero rows, which is valid output.
//
// The result is sorted by (learner, minute, session) so repeated runs
// over the same input produce byte-identical row sets.
func AggregateMinutes(events []models.RawEvent) []models.MinuteMetric {
	groups := make(map[minuteKey]*minuteGroup)

	for i := range events {
		ev := &events[i]
		minute := ev.Timestamp.UTC().Truncate(time.Minute)

		key := minuteKey{
			learnerID:  ev.LearnerID,
			minuteUnix: minute.Unix(),
			partition:  models.PartitionDateOf(ev.Timestamp).Unix(),
		}
		if ev.SessionID != nil {
			key.sessionID = *ev.SessionID
			key.hasSession = true
		}

		g, ok := groups[key]
		if !ok {
			g = &minuteGroup{
				metric: models.MinuteMetric{
					LearnerID:       ev.LearnerID,
					MinuteTimestamp: minute,
					SessionID:       ev.SessionID,
					PartitionDate:   models.PartitionDateOf(ev.Timestamp),
				},
				firstTS: ev.Timestamp,
				lastTS:  ev.Timestamp,
			}
			groups[key] = g
		}

		if ev.Timestamp.Before(g.firstTS) {
			g.firstTS = ev.Timestamp
		}
		if ev.Timestamp.After(g.lastTS) {
			g.lastTS = ev.Timestamp
		}

		switch ev.EventType {
		case models.EventPageView:
			g.metric.PageViews++
		case models.EventInteraction:
			g.metric.Interactions++
		case models.EventAssessmentStart:
			g.metric.AssessmentsStarted++
		case models.EventAssessmentComplete:
			g.metric.AssessmentsCompleted++
		case models.EventLessonStart:
			g.metric.LessonsStarted++
		case models.EventLessonComplete:
			g.metric.LessonsCompleted++
		case models.EventError:
			g.metric.Errors++
		}
		g.metric.TotalEvents++
	}

	out := make([]models.MinuteMetric, 0, len(groups))
	for _, g := range groups {
		g.metric.TimeSpentSeconds = timeSpentSeconds(g.firstTS, g.lastTS, g.metric.TotalEvents)
		out = append(out, g.metric)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.LearnerID != b.LearnerID {
			return a.LearnerID < b.LearnerID
		}
		if !a.MinuteTimestamp.Equal(b.MinuteTimestamp) {
			return a.MinuteTimestamp.Before(b.MinuteTimestamp)
		}
		return sessionSortKey(a.SessionID) < sessionSortKey(b.SessionID)
	})
	return out
}

// timeSpentSeconds derives a group's dwell time from its timestamp
// bounds. A single event carries no duration signal, so the fixed
// default of 60 seconds is reported instead of a measurement. Multi-event
// groups report max(0, last-first) in seconds.
func timeSpentSeconds(first, last time.Time, eventCount int) float64 {
	if eventCount <= 1 {
		return models.SingleEventTimeSpentSeconds
	}
	spent := last.Sub(first).Seconds()
	if spent < 0 {
		return 0
	}
	return spent
}

// sessionSortKey orders nil sessions before named ones.
func sessionSortKey(s *string) string {
	if s == nil {
		return ""
	}
	return "\x01" + *s
}
