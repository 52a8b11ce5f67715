// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package database

import (
	"database/sql"

	"github.com/google/uuid"
)

// nullableString converts a *string to a driver-friendly value.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullableFloat converts a *float64 to a driver-friendly value.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// floatPtr returns a pointer for a valid NullFloat64, nil otherwise.
func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// stringPtr returns a pointer for a valid NullString, nil otherwise.
func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// parseUUID parses a stored UUID column value.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
