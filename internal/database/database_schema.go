// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package database

import (
	"context"
	"fmt"
)

// createSchema creates all tables and indexes if they do not exist.
// All columns are defined in the initial CREATE TABLE statements; there
// is no incremental migration path, matching the replace-wholesale write
// model of the derived tables.
func (db *DB) createSchema(ctx context.Context) error {
	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// schemaQueries returns the table and index creation SQL statements.
func schemaQueries() []string {
	return []string{
		// Raw learner interaction events. Owned by the ingestion system,
		// which guarantees event_id uniqueness and that partition_date is
		// the UTC date of event_time. The data column holds the original
		// semi-structured payload as a JSON document.
		`CREATE TABLE IF NOT EXISTS raw_events (
			event_id UUID PRIMARY KEY,
			learner_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			session_id TEXT,
			event_time TIMESTAMP NOT NULL,
			data TEXT,
			partition_date DATE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_partition
			ON raw_events(partition_date)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_learner
			ON raw_events(learner_id, event_time)`,

		// Per-minute activity rollups. One row per
		// (learner, minute, session, partition_date) group. No primary
		// key: session_id is nullable and rows are only ever rewritten by
		// whole-partition replacement.
		`CREATE TABLE IF NOT EXISTS minute_metrics (
			learner_id TEXT NOT NULL,
			minute_timestamp TIMESTAMP NOT NULL,
			session_id TEXT,
			partition_date DATE NOT NULL,
			page_views INTEGER NOT NULL DEFAULT 0,
			interactions INTEGER NOT NULL DEFAULT 0,
			assessments_started INTEGER NOT NULL DEFAULT 0,
			assessments_completed INTEGER NOT NULL DEFAULT 0,
			lessons_started INTEGER NOT NULL DEFAULT 0,
			lessons_completed INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			total_events INTEGER NOT NULL DEFAULT 0,
			time_spent_seconds DOUBLE NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_minute_metrics_partition
			ON minute_metrics(partition_date)`,

		// Per-session summaries. partition_date is the date of the
		// session's first event, including for sessions spanning midnight.
		`CREATE TABLE IF NOT EXISTS session_metrics (
			session_id TEXT NOT NULL,
			learner_id TEXT NOT NULL,
			partition_date DATE NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL,
			duration_seconds DOUBLE NOT NULL DEFAULT 0,
			last_activity TIMESTAMP NOT NULL,
			total_events INTEGER NOT NULL DEFAULT 0,
			page_views INTEGER NOT NULL DEFAULT 0,
			interactions INTEGER NOT NULL DEFAULT 0,
			unique_pages INTEGER NOT NULL DEFAULT 0,
			lessons_started INTEGER NOT NULL DEFAULT 0,
			lessons_completed INTEGER NOT NULL DEFAULT 0,
			assessments_started INTEGER NOT NULL DEFAULT 0,
			assessments_completed INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			avg_assessment_score DOUBLE,
			completion_rate DOUBLE NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT false
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_metrics_partition
			ON session_metrics(partition_date)`,

		// Mastery change facts derived from assessment_complete events.
		// Rows are immutable once written except by partition replacement.
		`CREATE TABLE IF NOT EXISTS mastery_deltas (
			learner_id TEXT NOT NULL,
			content_id TEXT NOT NULL,
			event_time TIMESTAMP NOT NULL,
			partition_date DATE NOT NULL,
			previous_mastery DOUBLE,
			current_mastery DOUBLE NOT NULL,
			mastery_delta DOUBLE NOT NULL,
			trigger_event_id UUID NOT NULL,
			confidence_score DOUBLE NOT NULL,
			evidence_count INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mastery_deltas_partition
			ON mastery_deltas(partition_date)`,
		`CREATE INDEX IF NOT EXISTS idx_mastery_deltas_learner_content
			ON mastery_deltas(learner_id, content_id, event_time)`,

		// Job audit trail. Never deleted by the retention manager.
		`CREATE TABLE IF NOT EXISTS etl_job_status (
			job_id UUID PRIMARY KEY,
			job_type TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			records_processed BIGINT NOT NULL DEFAULT 0,
			records_failed BIGINT NOT NULL DEFAULT 0,
			bytes_processed BIGINT NOT NULL DEFAULT 0,
			error_message TEXT,
			retry_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_etl_job_status_type_started
			ON etl_job_status(job_type, started_at)`,
	}
}
