package services

import (
	"sync"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driving"
)

// History limits for the status endpoint.
const (
	maxCompletedHistory = 10
	maxFailedHistory    = 5
)

// Pipeline lifecycle states reported by the status endpoint.
const (
	StatusInitializing = "initializing"
	StatusRunning      = "running"
	StatusStopped      = "stopped"
)

// StatusTracker is the lock-guarded status aggregate shared by the cycle
// loop and the status HTTP handler. It is owned by the pipeline instance
// and passed by reference; there is no process-wide global. The tracker
// never touches the known-file map.
type StatusTracker struct {
	mu sync.Mutex

	pipelineType   domain.PipelineType
	status         string
	lastCheckTime  *time.Time
	nextCheckTime  *time.Time
	isChecking     bool
	totalProcessed int
	totalFailed    int
	processing     []driving.FileActivity
	completed      []driving.FileActivity
	failed         []driving.FileActivity
}

// NewStatusTracker creates a tracker for one pipeline instance.
func NewStatusTracker(pipelineType domain.PipelineType) *StatusTracker {
	return &StatusTracker{
		pipelineType: pipelineType,
		status:       StatusInitializing,
	}
}

// SetStatus updates the lifecycle state.
func (t *StatusTracker) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// BeginCycle marks the start of a check cycle.
func (t *StatusTracker) BeginCycle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isChecking = true
}

// EndCycle marks the end of a check cycle and records when the next one
// is due.
func (t *StatusTracker) EndCycle(next time.Time) {
	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isChecking = false
	t.lastCheckTime = &now
	t.nextCheckTime = &next
}

// StartFile records a file entering ingestion.
func (t *StatusTracker) StartFile(f domain.SourceFile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processing = append(t.processing, driving.FileActivity{
		Name:      f.Name,
		ID:        f.ID,
		StartedAt: time.Now().UTC(),
	})
}

// FinishFile moves a file from processing to completed or failed history.
func (t *StatusTracker) FinishFile(fileID string, success bool) {
	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, act := range t.processing {
		if act.ID != fileID {
			continue
		}
		act.CompletedAt = &now
		t.processing = append(t.processing[:i], t.processing[i+1:]...)

		if success {
			t.totalProcessed++
			t.completed = append(t.completed, act)
			if len(t.completed) > maxCompletedHistory {
				t.completed = t.completed[len(t.completed)-maxCompletedHistory:]
			}
		} else {
			t.totalFailed++
			t.failed = append(t.failed, act)
			if len(t.failed) > maxFailedHistory {
				t.failed = t.failed[len(t.failed)-maxFailedHistory:]
			}
		}
		return
	}
}

// Snapshot returns a copy of the current status for serialisation.
func (t *StatusTracker) Snapshot() driving.StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := driving.StatusSnapshot{
		Status:          t.status,
		PipelineType:    t.pipelineType,
		LastCheckTime:   t.lastCheckTime,
		NextCheckTime:   t.nextCheckTime,
		IsChecking:      t.isChecking,
		TotalProcessed:  t.totalProcessed,
		TotalFailed:     t.totalFailed,
		FilesProcessing: append([]driving.FileActivity(nil), t.processing...),
		FilesCompleted:  append([]driving.FileActivity(nil), t.completed...),
		FilesFailed:     append([]driving.FileActivity(nil), t.failed...),
	}

	if t.nextCheckTime != nil {
		if until := time.Until(*t.nextCheckTime); until > 0 {
			snap.SecondsUntilNextCheck = int(until.Seconds())
		}
	}

	return snap
}
