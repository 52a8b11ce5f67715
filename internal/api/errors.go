// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/learnlens/internal/database"
	"github.com/tomtom215/learnlens/internal/logging"
	"github.com/tomtom215/learnlens/internal/pipeline"
)

// errorResponse is the uniform error body for all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes a response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps pipeline and store errors to HTTP status codes.
// Range errors and unknown names are client errors; an overlapping load
// is a conflict the caller should retry after the running load
// finishes; everything else is a server-side failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrInvalidRange),
		errors.Is(err, pipeline.ErrUnknownTable),
		errors.Is(err, pipeline.ErrUnknownRetentionTarget):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrOverlappingLoad):
		status = http.StatusConflict
	case errors.Is(err, database.ErrJobNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeBadRequest reports a request decoding or validation problem.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
