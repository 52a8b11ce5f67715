// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

// Package pipeline implements the incremental aggregation core: the
// three aggregators that turn raw learner events into analysis-ready
// rollups, the orchestrator that loads them per partition date range,
// and the retention manager that ages out old partitions.
//
// The three aggregators (minute, session, mastery) are pure functions
// over an ordered slice of raw events. They read only raw events and
// have no ordering dependency on each other, so loads of different
// tables may run concurrently. All write-side atomicity lives in the
// store's Replace* methods; the aggregators themselves cannot fail.
//
// Loads are idempotent: the orchestrator deletes the target range and
// inserts freshly computed rows in one transaction, so re-running the
// same range against unchanged raw data yields identical stored output,
// and re-running after raw data corrections yields corrected output
// with no duplication. Overlapping concurrent loads of the same table
// are rejected up front; non-overlapping ranges and different tables
// proceed in parallel.
package pipeline
