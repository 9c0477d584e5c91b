package domain

import "time"

// CycleStats aggregates the outcome of one check cycle.
type CycleStats struct {
	// FilesProcessed counts files successfully ingested (added or modified).
	FilesProcessed int

	// FilesDeleted counts index deletions driven by change detection.
	FilesDeleted int

	// OrphansDeleted counts index deletions driven by reconciliation.
	OrphansDeleted int

	// Errors counts isolated per-file failures plus cycle-level errors.
	Errors int

	// Duration is the wall-clock time of the cycle.
	Duration time.Duration
}

// Add folds another stats value into this one.
func (s *CycleStats) Add(other CycleStats) {
	s.FilesProcessed += other.FilesProcessed
	s.FilesDeleted += other.FilesDeleted
	s.OrphansDeleted += other.OrphansDeleted
	s.Errors += other.Errors
}
