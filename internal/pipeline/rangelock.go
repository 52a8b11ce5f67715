// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// dateRange is an inclusive partition date interval.
type dateRange struct {
	start time.Time
	end   time.Time
}

// overlaps reports whether two inclusive ranges intersect.
func (r dateRange) overlaps(o dateRange) bool {
	return !r.start.After(o.end) && !r.end.Before(o.start)
}

// RangeLock serializes writer-writer overlap per derived table. Two
// concurrent loads of the same table with overlapping date ranges would
// race one load's delete against the other's insert, losing or
// duplicating rows; a new load is rejected immediately rather than
// queued. Non-overlapping ranges and different tables proceed in
// parallel. Readers need no locking: the transactional replace gives
// them pre- or post-state only.
type RangeLock struct {
	mu   sync.Mutex
	held map[Table][]dateRange
}

// NewRangeLock creates an empty lock table.
func NewRangeLock() *RangeLock {
	return &RangeLock{held: make(map[Table][]dateRange)}
}

// Acquire registers a load over [start, end] for the table. It returns
// a release function on success, or ErrOverlappingLoad when a running
// load of the same table overlaps the range. Release must be called
// exactly once, after the load's transaction has committed or rolled
// back.
func (l *RangeLock) Acquire(table Table, start, end time.Time) (func(), error) {
	r := dateRange{start: start, end: end}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.held[table] {
		if existing.overlaps(r) {
			return nil, fmt.Errorf("%w: %s [%s, %s]", ErrOverlappingLoad,
				table, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
	}
	l.held[table] = append(l.held[table], r)

	var once sync.Once
	return func() {
		once.Do(func() { l.release(table, r) })
	}, nil
}

// release removes one held range from the table's list.
func (l *RangeLock) release(table Table, r dateRange) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ranges := l.held[table]
	for i := range ranges {
		if ranges[i].start.Equal(r.start) && ranges[i].end.Equal(r.end) {
			l.held[table] = append(ranges[:i], ranges[i+1:]...)
			return
		}
	}
}
