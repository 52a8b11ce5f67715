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

// InsertRawEventsBatch inserts raw events in a single transaction.
//
// Learnlens does not ingest events in production - that is the ingestion
// system's job - but the store method is needed for backfill tooling and
// for tests that seed the event table. ON CONFLICT DO NOTHING preserves
// the upstream guarantee that event_id is unique: replaying a delivery
// never duplicates rows.
func (db *DB) InsertRawEventsBatch(ctx context.Context, events []models.RawEvent) (inserted int, err error) {
	if len(events) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveDBQuery("insert_batch", "raw_events", start, err) }()

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO raw_events (
			event_id, learner_id, event_type, session_id, event_time, data, partition_date
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range events {
			ev := &events[i]

			payload := ev.RawData
			if payload == nil {
				encoded, err := ev.Data.Encode()
				if err != nil {
					return fmt.Errorf("failed to encode payload for event %s: %w", ev.EventID, err)
				}
				payload = encoded
			}

			res, err := stmt.ExecContext(ctx,
				ev.EventID.String(),
				ev.LearnerID,
				string(ev.EventType),
				nullableString(ev.SessionID),
				ev.Timestamp.UTC(),
				string(payload),
				models.PartitionDateOf(ev.Timestamp),
			)
			if err != nil {
				return fmt.Errorf("failed to insert event %s: %w", ev.EventID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// RawEventsByPartitionRange returns all raw events whose partition_date
// falls in [startDate, endDate], ordered by event time then event id.
// The secondary sort key makes the read order stable for events sharing
// a timestamp, which keeps repeated loads byte-identical.
func (db *DB) RawEventsByPartitionRange(ctx context.Context, startDate, endDate time.Time) (_ []models.RawEvent, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDBQuery("select_range", "raw_events", start, err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_id, learner_id, event_type, session_id, event_time, data, partition_date
		FROM raw_events
		WHERE partition_date >= ? AND partition_date <= ?
		ORDER BY event_time, event_id`,
		models.PartitionDateOf(startDate), models.PartitionDateOf(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query raw events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.RawEvent
	for rows.Next() {
		ev, err := scanRawEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw events: %w", err)
	}
	return events, nil
}

// DeleteRawEventsBefore deletes raw events with partition_date strictly
// before the cutoff date. Idempotent: deleting an already-absent
// partition is a no-op. Used only by the retention manager.
func (db *DB) DeleteRawEventsBefore(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDBQuery("delete_retention", "raw_events", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM raw_events WHERE partition_date < ?`,
		models.PartitionDateOf(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired raw events: %w", err)
	}
	return res.RowsAffected()
}

// CountRawEvents returns the total number of stored raw events.
func (db *DB) CountRawEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count raw events: %w", err)
	}
	return count, nil
}

// scanRawEvent scans one raw_events row, decoding the payload document.
func scanRawEvent(rows *sql.Rows) (models.RawEvent, error) {
	var (
		ev        models.RawEvent
		eventID   string
		eventType string
		sessionID sql.NullString
		data      sql.NullString
	)

	if err := rows.Scan(&eventID, &ev.LearnerID, &eventType, &sessionID,
		&ev.Timestamp, &data, &ev.PartitionDate); err != nil {
		return models.RawEvent{}, fmt.Errorf("failed to scan raw event: %w", err)
	}

	id, err := parseUUID(eventID)
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("invalid event id %q: %w", eventID, err)
	}
	ev.EventID = id
	ev.EventType = models.EventType(eventType)
	ev.Timestamp = ev.Timestamp.UTC()
	ev.PartitionDate = models.PartitionDateOf(ev.PartitionDate)
	if sessionID.Valid {
		ev.SessionID = &sessionID.String
	}
	if data.Valid {
		ev.RawData = []byte(data.String)
		payload, err := models.DecodeEventPayload(ev.RawData)
		if err != nil {
			// A malformed payload is a data-quality issue, not a fatal
			// one: the event still counts toward activity totals, it just
			// contributes no assessment or page fields.
			payload = models.EventPayload{}
		}
		ev.Data = payload
	}
	return ev, nil
}
