// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/learnlens/internal/config"
	"github.com/tomtom215/learnlens/internal/models"
	"github.com/tomtom215/learnlens/internal/pipeline"
)

// dateLayout is the wire format for partition dates.
const dateLayout = "2006-01-02"

// JobStore is the job status read surface. Satisfied by *database.DB.
type JobStore interface {
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (*models.ETLJobStatus, error)
	ListJobStatuses(ctx context.Context, jobType models.JobType, from, to time.Time, limit int) ([]models.ETLJobStatus, error)
	Ping(ctx context.Context) error
}

// Handler serves the operator API.
type Handler struct {
	orch      *pipeline.Orchestrator
	retention *pipeline.RetentionManager
	jobs      JobStore
	cfg       config.APIConfig
	validate  *validator.Validate
}

// NewHandler creates the API handler.
func NewHandler(orch *pipeline.Orchestrator, retention *pipeline.RetentionManager, jobs JobStore, cfg config.APIConfig) *Handler {
	return &Handler{
		orch:      orch,
		retention: retention,
		jobs:      jobs,
		cfg:       cfg,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// loadRequest is the body of POST /api/v1/loads.
type loadRequest struct {
	Table      string `json:"table" validate:"required"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	RetryCount int    `json:"retry_count" validate:"gte=0"`
}

// TriggerLoad runs one synchronous table load and reports its result.
// The request blocks until the delete+insert unit commits or fails, so
// a 200 response means the partition range is fully loaded.
func (h *Handler) TriggerLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid request: %v", err))
		return
	}

	table, err := pipeline.ParseTable(req.Table)
	if err != nil {
		writeError(w, err)
		return
	}

	// Dates validated by the datetime tag above; parse cannot fail.
	startDate, _ := time.Parse(dateLayout, req.StartDate)
	endDate, _ := time.Parse(dateLayout, req.EndDate)

	result, err := h.orch.Load(r.Context(), table, startDate, endDate, req.RetryCount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TriggerRetention runs one retention pass for the target in the URL.
func (h *Handler) TriggerRetention(w http.ResponseWriter, r *http.Request) {
	target, err := pipeline.ParseRetentionTarget(chi.URLParam(r, "target"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.retention.Run(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetJob returns one job status row by id.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid job id: %v", err))
		return
	}

	job, err := h.jobs.GetJobStatus(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// jobListResponse is the body of GET /api/v1/jobs.
type jobListResponse struct {
	Jobs  []models.ETLJobStatus `json:"jobs"`
	Count int                   `json:"count"`
}

// ListJobs returns job status rows filtered by type and start-time
// range: GET /api/v1/jobs?type=load_mastery_deltas&from=...&to=...
// Timestamps are RFC 3339; both bounds are optional.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	jobType := models.JobType(q.Get("type"))

	var from, to time.Time
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, fmt.Sprintf("invalid from timestamp: %v", err))
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, fmt.Sprintf("invalid to timestamp: %v", err))
			return
		}
		to = t
	}

	jobs, err := h.jobs.ListJobStatuses(r.Context(), jobType, from, to, h.cfg.MaxJobListResults)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobListResponse{Jobs: jobs, Count: len(jobs)})
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady reports readiness: the database must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
