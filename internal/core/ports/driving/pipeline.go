// Package driving provides interfaces through which the application is driven
// (primary/inbound ports).
package driving

import (
	"context"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

// Pipeline drives one source's scan/detect/ingest/reconcile cycle.
type Pipeline interface {
	// RunOnce executes exactly one cycle and returns its statistics.
	RunOnce(ctx context.Context) (domain.CycleStats, error)

	// Run executes cycles on the configured interval until ctx is
	// cancelled. Isolated per-file failures do not stop the loop.
	Run(ctx context.Context) error

	// Status returns a point-in-time snapshot for the status endpoint.
	Status() StatusSnapshot
}

// FileActivity records one file moving through ingestion.
type FileActivity struct {
	Name        string     `json:"name"`
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusSnapshot is the read-only JSON view served by the status endpoint.
type StatusSnapshot struct {
	Status                string              `json:"status"`
	PipelineType          domain.PipelineType `json:"pipeline_type"`
	LastCheckTime         *time.Time          `json:"last_check_time"`
	NextCheckTime         *time.Time          `json:"next_check_time"`
	SecondsUntilNextCheck int                 `json:"seconds_until_next_check"`
	IsChecking            bool                `json:"is_checking"`
	TotalProcessed        int                 `json:"total_processed"`
	TotalFailed           int                 `json:"total_failed"`
	FilesProcessing       []FileActivity      `json:"files_processing"`
	FilesCompleted        []FileActivity      `json:"files_completed"`
	FilesFailed           []FileActivity      `json:"files_failed"`
}
