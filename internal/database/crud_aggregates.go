// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/learnlens/internal/metrics"
	"github.com/tomtom215/learnlens/internal/models"
)

// The Replace* methods implement the incremental-load write contract for
// one derived table: delete every row whose partition_date falls in
// [startDate, endDate], then insert the freshly computed rows, inside a
// single transaction. Readers observe either the pre-load or post-load
// row set, never a mix, and re-running the same range against unchanged
// raw data is a no-op in effect.

// ReplaceMinuteMetrics atomically replaces the minute_metrics rows for a
// partition date range.
func (db *DB) ReplaceMinuteMetrics(ctx context.Context, startDate, endDate time.Time, rows []models.MinuteMetric) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDBQuery("replace_range", "minute_metrics", start, err) }()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := deletePartitionRange(ctx, tx, "minute_metrics", startDate, endDate); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO minute_metrics (
			learner_id, minute_timestamp, session_id, partition_date,
			page_views, interactions, assessments_started, assessments_completed,
			lessons_started, lessons_completed, error_count, total_events,
			time_spent_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare minute_metrics insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range rows {
			m := &rows[i]
			if _, err := stmt.ExecContext(ctx,
				m.LearnerID, m.MinuteTimestamp.UTC(), nullableString(m.SessionID),
				models.PartitionDateOf(m.PartitionDate),
				m.PageViews, m.Interactions, m.AssessmentsStarted, m.AssessmentsCompleted,
				m.LessonsStarted, m.LessonsCompleted, m.Errors, m.TotalEvents,
				m.TimeSpentSeconds,
			); err != nil {
				return fmt.Errorf("failed to insert minute metric: %w", err)
			}
		}
		return nil
	})
}

// ReplaceSessionMetrics atomically replaces the session_metrics rows for
// a partition date range.
func (db *DB) ReplaceSessionMetrics(ctx context.Context, startDate, endDate time.Time, rows []models.SessionMetric) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDBQuery("replace_range", "session_metrics", start, err) }()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := deletePartitionRange(ctx, tx, "session_metrics", startDate, endDate); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO session_metrics (
			session_id, learner_id, partition_date,
			started_at, ended_at, duration_seconds, last_activity,
			total_events, page_views, interactions, unique_pages,
			lessons_started, lessons_completed, assessments_started, assessments_completed,
			error_count, avg_assessment_score, completion_rate, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare session_metrics insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range rows {
			s := &rows[i]
			if _, err := stmt.ExecContext(ctx,
				s.SessionID, s.LearnerID, models.PartitionDateOf(s.PartitionDate),
				s.StartedAt.UTC(), s.EndedAt.UTC(), s.DurationSeconds, s.LastActivity.UTC(),
				s.TotalEvents, s.PageViews, s.Interactions, s.UniquePages,
				s.LessonsStarted, s.LessonsCompleted, s.AssessmentsStarted, s.AssessmentsCompleted,
				s.ErrorCount, nullableFloat(s.AvgAssessmentScore), s.CompletionRate, s.IsActive,
			); err != nil {
				return fmt.Errorf("failed to insert session metric: %w", err)
			}
		}
		return nil
	})
}

// ReplaceMasteryDeltas atomically replaces the mastery_deltas rows for a
// partition date range.
func (db *DB) ReplaceMasteryDeltas(ctx context.Context, startDate, endDate time.Time, rows []models.MasteryDelta) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveDBQuery("replace_range", "mastery_deltas", start, err) }()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := deletePartitionRange(ctx, tx, "mastery_deltas", startDate, endDate); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO mastery_deltas (
			learner_id, content_id, event_time, partition_date,
			previous_mastery, current_mastery, mastery_delta,
			trigger_event_id, confidence_score, evidence_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare mastery_deltas insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range rows {
			d := &rows[i]
			if _, err := stmt.ExecContext(ctx,
				d.LearnerID, d.ContentID, d.Timestamp.UTC(), models.PartitionDateOf(d.PartitionDate),
				nullableFloat(d.PreviousMastery), d.CurrentMastery, d.MasteryDelta,
				d.TriggerEventID.String(), d.ConfidenceScore, d.EvidenceCount,
			); err != nil {
				return fmt.Errorf("failed to insert mastery delta: %w", err)
			}
		}
		return nil
	})
}

// deletePartitionRange removes all rows of one derived table inside a
// partition date range, within the caller's transaction.
func deletePartitionRange(ctx context.Context, tx *sql.Tx, table string, startDate, endDate time.Time) error {
	// table is always one of the fixed derived table names; no user
	// input reaches this format string.
	query := fmt.Sprintf(`DELETE FROM %s WHERE partition_date >= ? AND partition_date <= ?`, table)
	if _, err := tx.ExecContext(ctx, query,
		models.PartitionDateOf(startDate), models.PartitionDateOf(endDate)); err != nil {
		return fmt.Errorf("failed to delete %s partition range: %w", table, err)
	}
	return nil
}

// DeleteDerivedPartitionsBefore deletes rows from all three derived
// tables with partition_date strictly before the cutoff. Each table is
// its own statement; the deletes are idempotent so partial completion is
// safe to re-run. Never touches etl_job_status.
func (db *DB) DeleteDerivedPartitionsBefore(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDBQuery("delete_retention", "derived", start, err) }()

	cutoffDate := models.PartitionDateOf(cutoff)
	for _, table := range []string{"minute_metrics", "session_metrics", "mastery_deltas"} {
		res, err := db.conn.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE partition_date < ?`, table), cutoffDate)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete expired %s rows: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}
	return deleted, nil
}

// GetMinuteMetrics returns minute_metrics rows for a partition date
// range in stable key order.
func (db *DB) GetMinuteMetrics(ctx context.Context, startDate, endDate time.Time) ([]models.MinuteMetric, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT learner_id, minute_timestamp, session_id, partition_date,
			page_views, interactions, assessments_started, assessments_completed,
			lessons_started, lessons_completed, error_count, total_events,
			time_spent_seconds
		FROM minute_metrics
		WHERE partition_date >= ? AND partition_date <= ?
		ORDER BY learner_id, minute_timestamp, session_id`,
		models.PartitionDateOf(startDate), models.PartitionDateOf(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query minute metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MinuteMetric
	for rows.Next() {
		var (
			m         models.MinuteMetric
			sessionID sql.NullString
		)
		if err := rows.Scan(&m.LearnerID, &m.MinuteTimestamp, &sessionID, &m.PartitionDate,
			&m.PageViews, &m.Interactions, &m.AssessmentsStarted, &m.AssessmentsCompleted,
			&m.LessonsStarted, &m.LessonsCompleted, &m.Errors, &m.TotalEvents,
			&m.TimeSpentSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan minute metric: %w", err)
		}
		m.MinuteTimestamp = m.MinuteTimestamp.UTC()
		m.PartitionDate = models.PartitionDateOf(m.PartitionDate)
		m.SessionID = stringPtr(sessionID)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate minute metrics: %w", err)
	}
	return out, nil
}

// GetSessionMetrics returns session_metrics rows for a partition date
// range in stable key order.
func (db *DB) GetSessionMetrics(ctx context.Context, startDate, endDate time.Time) ([]models.SessionMetric, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_id, learner_id, partition_date,
			started_at, ended_at, duration_seconds, last_activity,
			total_events, page_views, interactions, unique_pages,
			lessons_started, lessons_completed, assessments_started, assessments_completed,
			error_count, avg_assessment_score, completion_rate, is_active
		FROM session_metrics
		WHERE partition_date >= ? AND partition_date <= ?
		ORDER BY learner_id, session_id`,
		models.PartitionDateOf(startDate), models.PartitionDateOf(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query session metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.SessionMetric
	for rows.Next() {
		var (
			s        models.SessionMetric
			avgScore sql.NullFloat64
		)
		if err := rows.Scan(&s.SessionID, &s.LearnerID, &s.PartitionDate,
			&s.StartedAt, &s.EndedAt, &s.DurationSeconds, &s.LastActivity,
			&s.TotalEvents, &s.PageViews, &s.Interactions, &s.UniquePages,
			&s.LessonsStarted, &s.LessonsCompleted, &s.AssessmentsStarted, &s.AssessmentsCompleted,
			&s.ErrorCount, &avgScore, &s.CompletionRate, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan session metric: %w", err)
		}
		s.PartitionDate = models.PartitionDateOf(s.PartitionDate)
		s.StartedAt = s.StartedAt.UTC()
		s.EndedAt = s.EndedAt.UTC()
		s.LastActivity = s.LastActivity.UTC()
		s.AvgAssessmentScore = floatPtr(avgScore)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session metrics: %w", err)
	}
	return out, nil
}

// GetMasteryDeltas returns mastery_deltas rows for a partition date
// range in stable key order.
func (db *DB) GetMasteryDeltas(ctx context.Context, startDate, endDate time.Time) ([]models.MasteryDelta, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT learner_id, content_id, event_time, partition_date,
			previous_mastery, current_mastery, mastery_delta,
			trigger_event_id, confidence_score, evidence_count
		FROM mastery_deltas
		WHERE partition_date >= ? AND partition_date <= ?
		ORDER BY learner_id, content_id, event_time`,
		models.PartitionDateOf(startDate), models.PartitionDateOf(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query mastery deltas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.MasteryDelta
	for rows.Next() {
		var (
			d         models.MasteryDelta
			previous  sql.NullFloat64
			triggerID string
		)
		if err := rows.Scan(&d.LearnerID, &d.ContentID, &d.Timestamp, &d.PartitionDate,
			&previous, &d.CurrentMastery, &d.MasteryDelta,
			&triggerID, &d.ConfidenceScore, &d.EvidenceCount); err != nil {
			return nil, fmt.Errorf("failed to scan mastery delta: %w", err)
		}
		d.Timestamp = d.Timestamp.UTC()
		d.PartitionDate = models.PartitionDateOf(d.PartitionDate)
		d.PreviousMastery = floatPtr(previous)
		id, err := parseUUID(triggerID)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger event id %q: %w", triggerID, err)
		}
		d.TriggerEventID = id
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mastery deltas: %w", err)
	}
	return out, nil
}
