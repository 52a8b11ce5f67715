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

// Store defines the database operations required by the orchestrator.
// Satisfied by *database.DB.
type Store interface {
	RawEventsByPartitionRange(ctx context.Context, startDate, endDate time.Time) ([]models.RawEvent, error)

	ReplaceMinuteMetrics(ctx context.Context, startDate, endDate time.Time, rows []models.MinuteMetric) error
	ReplaceSessionMetrics(ctx context.Context, startDate, endDate time.Time, rows []models.SessionMetric) error
	ReplaceMasteryDeltas(ctx context.Context, startDate, endDate time.Time, rows []models.MasteryDelta) error

	CreateJobStatus(ctx context.Context, job *models.ETLJobStatus) error
	FinalizeJobStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus,
		recordsProcessed, recordsFailed, bytesProcessed int64, errorMessage *string) error
}

// LoadResult reports the outcome of one table load invocation.
type LoadResult struct {
	JobID            uuid.UUID        `json:"job_id"`
	Table            Table            `json:"table"`
	Status           models.JobStatus `json:"status"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	RecordsProcessed int64            `json:"records_processed"`
	RawEventsRead    int64            `json:"raw_events_read"`
}

// Orchestrator recomputes and atomically replaces derived-table output
// per partition date range. It owns all writes to the derived tables.
type Orchestrator struct {
	store  Store
	locks  *RangeLock
	cfg    config.PipelineConfig
	logger zerolog.Logger

	// now is injectable for tests that pin the is_active evaluation time.
	now func() time.Time
}

// NewOrchestrator creates an orchestrator over the given store.
func NewOrchestrator(store Store, cfg config.PipelineConfig) *Orchestrator {
	if cfg.ActiveSessionWindow <= 0 {
		cfg.ActiveSessionWindow = 30 * time.Minute
	}
	return &Orchestrator{
		store:  store,
		locks:  NewRangeLock(),
		cfg:    cfg,
		logger: logging.With().Str("component", "orchestrator").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the wall clock. Test use only.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Load recomputes one derived table for the inclusive partition date
// range [startDate, endDate] and atomically replaces the prior output
// for that range. It blocks until the delete+insert unit commits or
// fails.
//
// Range errors and overlapping-load rejections return before any
// mutation and before a job row is created. Any failure after the job
// row exists finalizes it as failed with the error message; the
// transactional replace guarantees the target table is never left
// half-written, so the caller can retry the exact same range safely.
//
// retryCount is recorded verbatim on the job row; callers increment it
// when resubmitting a range after a failure.
func (o *Orchestrator) Load(ctx context.Context, table Table, startDate, endDate time.Time, retryCount int) (*LoadResult, error) {
	start := models.PartitionDateOf(startDate)
	end := models.PartitionDateOf(endDate)

	if err := o.validateRange(table, start, end); err != nil {
		metrics.LoadRejections.WithLabelValues(table.String(), "invalid_range").Inc()
		return nil, err
	}

	release, err := o.locks.Acquire(table, start, end)
	if err != nil {
		metrics.LoadRejections.WithLabelValues(table.String(), "overlap").Inc()
		return nil, err
	}
	defer release()

	job := &models.ETLJobStatus{
		JobID:      uuid.New(),
		JobType:    table.JobType(),
		Status:     models.JobRunning,
		StartedAt:  o.now().UTC(),
		RetryCount: retryCount,
	}
	if err := o.store.CreateJobStatus(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job start: %w", err)
	}

	loadStart := time.Now()
	rows, events, err := o.replaceRange(ctx, table, start, end)
	metrics.ObserveLoad(table.String(), loadStart, rows, err)

	if err != nil {
		o.failJob(ctx, job.JobID, err)
		o.logger.Error().
			Err(err).
			Str("table", table.String()).
			Time("start_date", start).
			Time("end_date", end).
			Str("job_id", job.JobID.String()).
			Msg("Load failed")
		return nil, fmt.Errorf("load %s [%s, %s] failed: %w",
			table, start.Format("2006-01-02"), end.Format("2006-01-02"), err)
	}

	bytesProcessed := payloadBytes(events)
	metrics.RawEventsRead.WithLabelValues(table.String()).Add(float64(len(events)))

	// Finalization must survive caller cancellation: the data commit
	// already happened, and an unfinalized job row would read as still
	// running forever.
	if err := o.store.FinalizeJobStatus(context.WithoutCancel(ctx), job.JobID,
		models.JobCompleted, rows, 0, bytesProcessed, nil); err != nil {
		return nil, fmt.Errorf("load committed but job finalization failed: %w", err)
	}

	o.logger.Info().
		Str("table", table.String()).
		Time("start_date", start).
		Time("end_date", end).
		Int64("rows", rows).
		Int("raw_events", len(events)).
		Dur("elapsed", time.Since(loadStart)).
		Str("job_id", job.JobID.String()).
		Msg("Load complete")

	return &LoadResult{
		JobID:            job.JobID,
		Table:            table,
		Status:           models.JobCompleted,
		StartDate:        start,
		EndDate:          end,
		RecordsProcessed: rows,
		RawEventsRead:    int64(len(events)),
	}, nil
}

// LoadAll loads every derived table for the range, continuing past
// per-table failures: a failed mastery load must not prevent minute and
// session loads from completing. The first error is returned after all
// tables have been attempted, alongside the per-table results.
func (o *Orchestrator) LoadAll(ctx context.Context, startDate, endDate time.Time) ([]*LoadResult, error) {
	var (
		results  []*LoadResult
		firstErr error
	)
	for _, table := range AllTables {
		res, err := o.Load(ctx, table, startDate, endDate, 0)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

// validateRange rejects invalid ranges before any mutation begins.
func (o *Orchestrator) validateRange(table Table, start, end time.Time) error {
	switch table {
	case TableMinuteMetrics, TableSessionMetrics, TableMasteryDeltas:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if start.After(end) {
		return fmt.Errorf("%w: start_date %s after end_date %s", ErrInvalidRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	if o.cfg.MaxRangeDays > 0 {
		days := int(end.Sub(start).Hours()/24) + 1
		if days > o.cfg.MaxRangeDays {
			return fmt.Errorf("%w: %d days exceeds max_range_days %d", ErrInvalidRange,
				days, o.cfg.MaxRangeDays)
		}
	}
	return nil
}

// replaceRange computes and writes one table's rows for the range,
// returning the number of rows written and the raw events read.
func (o *Orchestrator) replaceRange(ctx context.Context, table Table, start, end time.Time) (int64, []models.RawEvent, error) {
	events, err := o.store.RawEventsByPartitionRange(ctx, start, end)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read raw events: %w", err)
	}

	switch table {
	case TableMinuteMetrics:
		rows := AggregateMinutes(events)
		return int64(len(rows)), events, o.store.ReplaceMinuteMetrics(ctx, start, end, rows)
	case TableSessionMetrics:
		rows := AggregateSessions(events, o.now(), o.cfg.ActiveSessionWindow)
		return int64(len(rows)), events, o.store.ReplaceSessionMetrics(ctx, start, end, rows)
	case TableMasteryDeltas:
		rows := ComputeMasteryDeltas(events)
		return int64(len(rows)), events, o.store.ReplaceMasteryDeltas(ctx, start, end, rows)
	default:
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
}

// failJob finalizes a job as failed, logging rather than propagating
// bookkeeping errors so the original failure stays primary.
func (o *Orchestrator) failJob(ctx context.Context, jobID uuid.UUID, cause error) {
	msg := cause.Error()
	if err := o.store.FinalizeJobStatus(context.WithoutCancel(ctx), jobID,
		models.JobFailed, 0, 0, 0, &msg); err != nil {
		o.logger.Error().
			Err(err).
			AnErr("original_error", cause).
			Str("job_id", jobID.String()).
			Msg("Failed to finalize failed job")
	}
}

// payloadBytes sums the stored payload sizes of the events read.
func payloadBytes(events []models.RawEvent) int64 {
	var total int64
	for i := range events {
		total += int64(len(events[i].RawData))
	}
	return total
}
