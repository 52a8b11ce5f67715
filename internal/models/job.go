// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of one pipeline job.
type JobStatus string

// Job lifecycle states. A job is created running and finalized exactly
// once, to completed or failed.
const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobType classifies what a pipeline job did.
type JobType string

// Job types, one per derived-table load plus the two retention passes.
const (
	JobLoadMinuteMetrics  JobType = "load_minute_metrics"
	JobLoadSessionMetrics JobType = "load_session_metrics"
	JobLoadMasteryDeltas  JobType = "load_mastery_deltas"
	JobRetentionRaw       JobType = "retention_raw"
	JobRetentionDerived   JobType = "retention_derived"
)

// ETLJobStatus is one row of the etl_job_status table: the audit record
// of one load or retention invocation.
type ETLJobStatus struct {
	JobID     uuid.UUID `json:"job_id"`
	JobType   JobType   `json:"job_type"`
	Status    JobStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is nil while the job is running.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	RecordsProcessed int64 `json:"records_processed"`
	RecordsFailed    int64 `json:"records_failed"`
	BytesProcessed   int64 `json:"bytes_processed"`

	// ErrorMessage is set only on failed jobs.
	ErrorMessage *string `json:"error_message,omitempty"`

	// RetryCount is how many prior attempts of the same range preceded
	// this one, recorded verbatim from the caller.
	RetryCount int `json:"retry_count"`
}
