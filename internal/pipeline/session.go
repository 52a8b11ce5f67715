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

// sessionKey identifies one session summary group.
type sessionKey struct {
	sessionID string
	learnerID string
}

// sessionGroup accumulates one session's counters and score state.
type sessionGroup struct {
	metric     models.SessionMetric
	pages      map[string]struct{}
	scoreSum   float64
	scoreCount int
}

// AggregateSessions groups events carrying a session id by
// (session, learner) and emits one SessionMetric per group. Events with
// a null session id are skipped entirely.
//
// runTime is the moment the aggregation runs; a session whose last event
// falls within activeWindow of runTime is marked active. Re-running the
// same partition at a later wall-clock time can therefore flip is_active
// for identical input rows - accepted non-determinism tied to run time.
//
// A session's partition date is the date of its first event, even when
// the session spans midnight. A single-event session has duration 0.
func AggregateSessions(events []models.RawEvent, runTime time.Time, activeWindow time.Duration) []models.SessionMetric {
	groups := make(map[sessionKey]*sessionGroup)

	for i := range events {
		ev := &events[i]
		if ev.SessionID == nil {
			continue
		}

		key := sessionKey{sessionID: *ev.SessionID, learnerID: ev.LearnerID}
		g, ok := groups[key]
		if !ok {
			g = &sessionGroup{
				metric: models.SessionMetric{
					SessionID: key.sessionID,
					LearnerID: key.learnerID,
					StartedAt: ev.Timestamp,
					EndedAt:   ev.Timestamp,
				},
				pages: make(map[string]struct{}),
			}
			groups[key] = g
		}

		if ev.Timestamp.Before(g.metric.StartedAt) {
			g.metric.StartedAt = ev.Timestamp
		}
		if ev.Timestamp.After(g.metric.EndedAt) {
			g.metric.EndedAt = ev.Timestamp
		}

		switch ev.EventType {
		case models.EventPageView:
			g.metric.PageViews++
		case models.EventInteraction:
			g.metric.Interactions++
		case models.EventLessonStart:
			g.metric.LessonsStarted++
		case models.EventLessonComplete:
			g.metric.LessonsCompleted++
		case models.EventAssessmentStart:
			g.metric.AssessmentsStarted++
		case models.EventAssessmentComplete:
			g.metric.AssessmentsCompleted++
			if ev.Data.Score != nil {
				g.scoreSum += *ev.Data.Score
				g.scoreCount++
			}
		case models.EventError:
			g.metric.ErrorCount++
		}
		g.metric.TotalEvents++

		if ev.Data.PageID != nil {
			g.pages[*ev.Data.PageID] = struct{}{}
		}
	}

	out := make([]models.SessionMetric, 0, len(groups))
	for _, g := range groups {
		m := g.metric
		m.PartitionDate = models.PartitionDateOf(m.StartedAt)
		m.DurationSeconds = m.EndedAt.Sub(m.StartedAt).Seconds()
		m.LastActivity = m.EndedAt
		m.UniquePages = len(g.pages)
		m.CompletionRate = completionRate(
			m.LessonsCompleted+m.AssessmentsCompleted,
			m.LessonsStarted+m.AssessmentsStarted,
		)
		if g.scoreCount > 0 {
			avg := g.scoreSum / float64(g.scoreCount)
			m.AvgAssessmentScore = &avg
		}
		m.IsActive = runTime.Sub(m.EndedAt) <= activeWindow
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if a.LearnerID != b.LearnerID {
			return a.LearnerID < b.LearnerID
		}
		return a.SessionID < b.SessionID
	})
	return out
}

// completionRate is completions/starts, defined as 0.0 when nothing was
// started. Never NaN, never negative.
func completionRate(completed, started int) float64 {
	if started == 0 {
		return 0.0
	}
	return float64(completed) / float64(started)
}
