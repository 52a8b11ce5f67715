// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/learnlens/internal/models"
)

// ErrJobNotFound is returned when a job status lookup matches no row.
var ErrJobNotFound = errors.New("job not found")

// CreateJobStatus inserts a new job row in the running state.
func (db *DB) CreateJobStatus(ctx context.Context, job *models.ETLJobStatus) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO etl_job_status (
		job_id, job_type, status, started_at, retry_count
	) VALUES (?, ?, ?, ?, ?)`,
		job.JobID.String(), string(job.JobType), string(job.Status),
		job.StartedAt.UTC(), job.RetryCount)
	if err != nil {
		return fmt.Errorf("failed to create job status: %w", err)
	}
	return nil
}

// FinalizeJobStatus records the terminal state of a job. Called exactly
// once per job, with status completed or failed.
func (db *DB) FinalizeJobStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus,
	recordsProcessed, recordsFailed, bytesProcessed int64, errorMessage *string) error {

	res, err := db.conn.ExecContext(ctx, `UPDATE etl_job_status SET
		status = ?, completed_at = ?, records_processed = ?,
		records_failed = ?, bytes_processed = ?, error_message = ?
	WHERE job_id = ? AND status = ?`,
		string(status), time.Now().UTC(), recordsProcessed,
		recordsFailed, bytesProcessed, nullableString(errorMessage),
		jobID.String(), string(models.JobRunning))
	if err != nil {
		return fmt.Errorf("failed to finalize job status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the job does not exist or it was already finalized.
		// Both indicate a caller bug; surface it rather than silently
		// double-finalizing.
		return fmt.Errorf("job %s not in running state: %w", jobID, ErrJobNotFound)
	}
	return nil
}

// GetJobStatus returns one job row by id.
func (db *DB) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*models.ETLJobStatus, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT job_id, job_type, status, started_at, completed_at,
			records_processed, records_failed, bytes_processed, error_message, retry_count
		FROM etl_job_status WHERE job_id = ?`, jobID.String())

	job, err := scanJobStatus(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobStatuses returns job rows filtered by type and start-time
// range, newest first. An empty jobType matches all types; zero times
// disable the corresponding bound.
func (db *DB) ListJobStatuses(ctx context.Context, jobType models.JobType, from, to time.Time, limit int) ([]models.ETLJobStatus, error) {
	query := `SELECT job_id, job_type, status, started_at, completed_at,
		records_processed, records_failed, bytes_processed, error_message, retry_count
	FROM etl_job_status WHERE 1=1`
	args := make([]any, 0, 4)

	if jobType != "" {
		query += ` AND job_type = ?`
		args = append(args, string(jobType))
	}
	if !from.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND started_at <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []models.ETLJobStatus
	for rows.Next() {
		job, err := scanJobStatus(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job statuses: %w", err)
	}
	return jobs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJobStatus scans one etl_job_status row.
func scanJobStatus(row rowScanner) (*models.ETLJobStatus, error) {
	var (
		job         models.ETLJobStatus
		jobID       string
		jobType     string
		status      string
		completedAt sql.NullTime
		errMsg      sql.NullString
	)

	if err := row.Scan(&jobID, &jobType, &status, &job.StartedAt, &completedAt,
		&job.RecordsProcessed, &job.RecordsFailed, &job.BytesProcessed,
		&errMsg, &job.RetryCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job status: %w", err)
	}

	id, err := parseUUID(jobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", jobID, err)
	}
	job.JobID = id
	job.JobType = models.JobType(jobType)
	job.Status = models.JobStatus(status)
	job.StartedAt = job.StartedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	job.ErrorMessage = stringPtr(errMsg)
	return &job, nil
}
