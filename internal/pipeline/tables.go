// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"errors"
	"fmt"

	"github.com/tomtom215/learnlens/internal/models"
)

// Table identifies one of the three derived tables the orchestrator owns.
type Table string

// Derived tables, named after their storage tables.
const (
	TableMinuteMetrics  Table = "minute_metrics"
	TableSessionMetrics Table = "session_metrics"
	TableMasteryDeltas  Table = "mastery_deltas"
)

// AllTables lists every derived table in load order for scheduled runs.
// The order is bookkeeping convention only; correctness does not depend
// on it.
var AllTables = []Table{TableMinuteMetrics, TableSessionMetrics, TableMasteryDeltas}

// Errors rejected before any mutation begins.
var (
	// ErrInvalidRange reports start_date > end_date or a span exceeding
	// the configured backfill cap.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrOverlappingLoad reports a concurrent load of the same table
	// whose date range overlaps the requested one.
	ErrOverlappingLoad = errors.New("overlapping load already running for table")

	// ErrUnknownTable reports an unrecognized table name.
	ErrUnknownTable = errors.New("unknown table")
)

// ParseTable resolves a table name from API or scheduler input. Both the
// short form used by operators (minute, session, mastery) and the full
// storage table name are accepted.
func ParseTable(s string) (Table, error) {
	switch s {
	case "minute", string(TableMinuteMetrics):
		return TableMinuteMetrics, nil
	case "session", string(TableSessionMetrics):
		return TableSessionMetrics, nil
	case "mastery", string(TableMasteryDeltas):
		return TableMasteryDeltas, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
	}
}

// JobType maps a table to its job bookkeeping type.
func (t Table) JobType() models.JobType {
	switch t {
	case TableMinuteMetrics:
		return models.JobLoadMinuteMetrics
	case TableSessionMetrics:
		return models.JobLoadSessionMetrics
	case TableMasteryDeltas:
		return models.JobLoadMasteryDeltas
	default:
		return models.JobType("load_" + string(t))
	}
}

// String implements fmt.Stringer.
func (t Table) String() string {
	return string(t)
}
