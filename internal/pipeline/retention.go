// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/learnlens/internal/config"
	"github.com/tomtom215/learnlens/internal/logging"
	"github.com/tomtom215/learnlens/internal/metrics"
	"github.com/tomtom215/learnlens/internal/models"
)

// RetentionTarget selects which retention policy to run.
type RetentionTarget string

// Retention targets. Raw events age out on a much shorter horizon than
// the derived aggregates; the two run on independent schedules.
const (
	RetentionRaw     RetentionTarget = "raw"
	RetentionDerived RetentionTarget = "derived"
)

// ErrUnknownRetentionTarget reports an unrecognized retention target.
var ErrUnknownRetentionTarget = fmt.Errorf("unknown retention target")

// ParseRetentionTarget resolves a retention target from API input.
func ParseRetentionTarget(s string) (RetentionTarget, error) {
	switch s {
	case string(RetentionRaw):
		return RetentionRaw, nil
	case string(RetentionDerived):
		return RetentionDerived, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRetentionTarget, s)
	}
}

// RetentionStore defines the database operations required by the
// retention manager. Satisfied by *database.DB. There is deliberately
// no job status deletion here: the audit trail ages out on its own
// policy, outside this manager.
type RetentionStore interface {
	DeleteRawEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteDerivedPartitionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CreateJobStatus(ctx context.Context, job *models.ETLJobStatus) error
	FinalizeJobStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus,
		recordsProcessed, recordsFailed, bytesProcessed int64, errorMessage *string) error
}

// RetentionResult reports the outcome of one retention run.
type RetentionResult struct {
	JobID       uuid.UUID        `json:"job_id"`
	Target      RetentionTarget  `json:"target"`
	Status      models.JobStatus `json:"status"`
	Cutoff      time.Time        `json:"cutoff"`
	RowsDeleted int64            `json:"rows_deleted"`
}

// RetentionManager deletes partitions older than the configured
// horizons. Deletes are range deletes by partition date and idempotent
// by construction: deleting an already-absent partition is a no-op.
type RetentionManager struct {
	store  RetentionStore
	cfg    config.RetentionConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewRetentionManager creates a retention manager over the given store.
func NewRetentionManager(store RetentionStore, cfg config.RetentionConfig) *RetentionManager {
	return &RetentionManager{
		store:  store,
		cfg:    cfg,
		logger: logging.With().Str("component", "retention").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the wall clock. Test use only.
func (m *RetentionManager) SetClock(now func() time.Time) {
	m.now = now
}

// Run executes one retention pass for the target, recording the run in
// the job status table like any other pipeline invocation.
func (m *RetentionManager) Run(ctx context.Context, target RetentionTarget) (*RetentionResult, error) {
	var (
		jobType models.JobType
		horizon time.Duration
	)
	switch target {
	case RetentionRaw:
		jobType = models.JobRetentionRaw
		horizon = time.Duration(m.cfg.RawMaxAgeDays) * 24 * time.Hour
	case RetentionDerived:
		jobType = models.JobRetentionDerived
		horizon = time.Duration(m.cfg.DerivedMaxAgeDays) * 24 * time.Hour
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRetentionTarget, target)
	}

	cutoff := models.PartitionDateOf(m.now().Add(-horizon))

	job := &models.ETLJobStatus{
		JobID:     uuid.New(),
		JobType:   jobType,
		Status:    models.JobRunning,
		StartedAt: m.now().UTC(),
	}
	if err := m.store.CreateJobStatus(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record retention start: %w", err)
	}

	var (
		deleted int64
		err     error
	)
	switch target {
	case RetentionRaw:
		deleted, err = m.store.DeleteRawEventsBefore(ctx, cutoff)
	case RetentionDerived:
		deleted, err = m.store.DeleteDerivedPartitionsBefore(ctx, cutoff)
	}

	if err != nil {
		metrics.RetentionRuns.WithLabelValues(string(target), "failed").Inc()
		msg := err.Error()
		if finErr := m.store.FinalizeJobStatus(context.WithoutCancel(ctx), job.JobID,
			models.JobFailed, deleted, 0, 0, &msg); finErr != nil {
			m.logger.Error().
				Err(finErr).
				AnErr("original_error", err).
				Str("job_id", job.JobID.String()).
				Msg("Failed to finalize failed retention job")
		}
		return nil, fmt.Errorf("retention %s failed: %w", target, err)
	}

	metrics.RetentionRuns.WithLabelValues(string(target), "completed").Inc()
	metrics.RetentionRowsDeleted.WithLabelValues(string(target)).Add(float64(deleted))

	if err := m.store.FinalizeJobStatus(context.WithoutCancel(ctx), job.JobID,
		models.JobCompleted, deleted, 0, 0, nil); err != nil {
		return nil, fmt.Errorf("retention completed but job finalization failed: %w", err)
	}

	m.logger.Info().
		Str("target", string(target)).
		Time("cutoff", cutoff).
		Int64("rows_deleted", deleted).
		Str("job_id", job.JobID.String()).
		Msg("Retention run complete")

	return &RetentionResult{
		JobID:       job.JobID,
		Target:      target,
		Status:      models.JobCompleted,
		Cutoff:      cutoff,
		RowsDeleted: deleted,
	}, nil
}
