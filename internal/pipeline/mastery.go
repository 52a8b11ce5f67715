// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"math"
	"sort"

	"github.com/tomtom215/learnlens/internal/models"
)

// masteryObservation is one qualifying assessment_complete event after
// score normalization.
type masteryObservation struct {
	event      *models.RawEvent
	contentID  string
	normalized float64
}

// masteryKey identifies one belief stream.
type masteryKey struct {
	learnerID string
	contentID string
}

// ComputeMasteryDeltas derives mastery change facts from
// assessment_complete events that carry both an assessment id and a
// numeric score.
//
// Scores are normalized to [0,1]: score/max_score when max_score > 0,
// otherwise score/100 (the raw score is treated as already a
// percentage). Events whose normalized value falls outside [0,1] are
// silently discarded - a data-quality filter, not an error, and not
// counted as failed records.
//
// For each (learner, content) pair the surviving events are ordered by
// timestamp and walked once, tracking the last-seen normalized value.
// The first observation for a pair is always emitted, with a nil
// previous mastery and the fixed first-observation confidence. A later
// event whose normalized score equals the previous value is suppressed:
// it changes nothing about the belief.
//
// The confidence formula intentionally rewards larger swings with
// higher confidence. It is preserved exactly for output compatibility;
// see mastery_test.go for the pinned values.
func ComputeMasteryDeltas(events []models.RawEvent) []models.MasteryDelta {
	observations := qualifyingObservations(events)

	// Stable sort by (learner, content, timestamp) so the previous-value
	// walk sees each belief stream in temporal order. Event id breaks
	// timestamp ties deterministically.
	sort.SliceStable(observations, func(i, j int) bool {
		a, b := &observations[i], &observations[j]
		if a.event.LearnerID != b.event.LearnerID {
			return a.event.LearnerID < b.event.LearnerID
		}
		if a.contentID != b.contentID {
			return a.contentID < b.contentID
		}
		if !a.event.Timestamp.Equal(b.event.Timestamp) {
			return a.event.Timestamp.Before(b.event.Timestamp)
		}
		return a.event.EventID.String() < b.event.EventID.String()
	})

	var out []models.MasteryDelta
	lastSeen := make(map[masteryKey]float64)

	for i := range observations {
		obs := &observations[i]
		key := masteryKey{learnerID: obs.event.LearnerID, contentID: obs.contentID}

		previous, seen := lastSeen[key]
		lastSeen[key] = obs.normalized

		if seen && obs.normalized == previous {
			// No change from a real previous value: suppressed. The first
			// observation always survives because nothing was seen yet.
			continue
		}

		delta := models.MasteryDelta{
			LearnerID:       obs.event.LearnerID,
			ContentID:       obs.contentID,
			Timestamp:       obs.event.Timestamp,
			PartitionDate:   models.PartitionDateOf(obs.event.Timestamp),
			CurrentMastery:  obs.normalized,
			TriggerEventID:  obs.event.EventID,
			ConfidenceScore: models.FirstObservationConfidence,
			EvidenceCount:   1,
		}
		if seen {
			p := previous
			delta.PreviousMastery = &p
			delta.MasteryDelta = obs.normalized - previous
			delta.ConfidenceScore = swingConfidence(obs.normalized, previous)
		} else {
			delta.MasteryDelta = obs.normalized // coalesce(previous, 0)
		}
		out = append(out, delta)
	}
	return out
}

// qualifyingObservations filters and normalizes assessment completions.
func qualifyingObservations(events []models.RawEvent) []masteryObservation {
	var observations []masteryObservation
	for i := range events {
		ev := &events[i]
		if ev.EventType != models.EventAssessmentComplete {
			continue
		}
		if ev.Data.AssessmentID == nil || ev.Data.Score == nil {
			continue
		}

		normalized := normalizeScore(*ev.Data.Score, ev.Data.MaxScore)
		if normalized < 0 || normalized > 1 {
			continue
		}

		observations = append(observations, masteryObservation{
			event:      ev,
			contentID:  *ev.Data.AssessmentID,
			normalized: normalized,
		})
	}
	return observations
}

// normalizeScore rescales a raw score to [0,1]. When max_score is absent
// or not positive, the raw score is treated as already a percentage.
func normalizeScore(score float64, maxScore *float64) float64 {
	if maxScore != nil && *maxScore > 0 {
		return score / *maxScore
	}
	return score / 100.0
}

// swingConfidence scores an observation with a real previous value:
// min(1.0, 0.5 + 0.5*|current-previous|). Larger swings are treated as
// more informative.
func swingConfidence(current, previous float64) float64 {
	return math.Min(1.0, 0.5+0.5*math.Abs(current-previous))
}
