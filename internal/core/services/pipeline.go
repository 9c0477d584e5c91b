package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driving"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Heartbeat cadence and the grace period for background goroutines on
// shutdown.
const (
	heartbeatInterval = 30 * time.Second
	shutdownGrace     = 5 * time.Second
)

// Pipeline drives the check cycle: scan, detect, ingest, reconcile,
// persist. It owns the in-memory known-file map; all mutation happens on
// the cycle goroutine, never from the status or heartbeat goroutines.
type Pipeline struct {
	cfg        *config.Config
	pipelineID string
	scanner    driven.Scanner
	stateStore driven.StateStore
	ingestor   *Ingestor
	reconciler *Reconciler
	status     *StatusTracker

	known       map[string]time.Time
	lastCheck   time.Time
	initialized bool
	loadOnce    sync.Once
	loadErr     error
}

var _ driving.Pipeline = (*Pipeline)(nil)

// NewPipeline wires a pipeline instance. All collaborators are required
// except the embedder inside the ingestor.
func NewPipeline(
	cfg *config.Config,
	pipelineID string,
	scanner driven.Scanner,
	stateStore driven.StateStore,
	ingestor *Ingestor,
	reconciler *Reconciler,
	status *StatusTracker,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		pipelineID: pipelineID,
		scanner:    scanner,
		stateStore: stateStore,
		ingestor:   ingestor,
		reconciler: reconciler,
		status:     status,
		known:      make(map[string]time.Time),
	}
}

// loadState restores persisted state once. A missing record means a
// fresh pipeline: the first cycle becomes a full initial scan.
func (p *Pipeline) loadState(ctx context.Context) error {
	p.loadOnce.Do(func() {
		state, err := p.stateStore.Load(ctx, p.pipelineID)
		if errors.Is(err, domain.ErrNotFound) {
			p.lastCheck = p.cfg.LastCheckTime
			logger.Info("[pipeline] no saved state for %s, starting fresh", p.pipelineID)
			return
		}
		if err != nil {
			p.loadErr = fmt.Errorf("loading pipeline state: %w", err)
			return
		}

		p.known = state.KnownFiles
		if p.known == nil {
			p.known = make(map[string]time.Time)
		}
		p.lastCheck = state.LastCheckTime
		p.initialized = state.HasKnownFiles()
		logger.Info("[pipeline] restored state for %s: %d known files, last check %s",
			p.pipelineID, len(p.known), p.lastCheck.Format(time.RFC3339))
	})
	return p.loadErr
}

// RunOnce executes a single check cycle and persists the resulting state.
// Per-file failures are counted in the stats, not returned; the error is
// reserved for cycle-level failures (scan or persistence).
func (p *Pipeline) RunOnce(ctx context.Context) (domain.CycleStats, error) {
	var stats domain.CycleStats
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	if err := p.loadState(ctx); err != nil {
		return stats, err
	}

	p.status.BeginCycle()
	// The next cycle starts one interval after this one ends, so the
	// timestamp must be computed when the deferred call runs, not now.
	defer func() { p.status.EndCycle(time.Now().Add(p.cfg.Interval)) }()

	cycleStart := time.Now().UTC()

	listing, err := p.scan(ctx)
	if err != nil {
		stats.Errors++
		return stats, fmt.Errorf("scan: %w", err)
	}

	changes := domain.DetectChanges(listing, p.known)
	if !changes.Empty() {
		logger.Info("[pipeline] detected %d added, %d modified, %d removed",
			len(changes.Added), len(changes.Modified), len(changes.Removed))
	}

	processed, failed := p.ingestor.ProcessBatch(ctx, append(changes.Added, changes.Modified...), p.known)
	stats.FilesProcessed += processed
	stats.Errors += failed

	for _, id := range changes.Removed {
		if err := p.ingestor.DeleteFile(ctx, id, p.known); err != nil {
			logger.Error("[pipeline] %v", err)
			stats.Errors++
			continue
		}
		stats.FilesDeleted++
	}

	stats.OrphansDeleted += p.reconcile(ctx, listing, &stats)

	// The watermark only advances once the cycle's work is done, and to
	// the scan start so changes made mid-cycle are picked up next time.
	if ctx.Err() == nil {
		p.lastCheck = cycleStart
		p.initialized = true
	}

	if err := p.persistState(ctx); err != nil {
		stats.Errors++
		return stats, err
	}

	return stats, nil
}

// scan returns the listing for this cycle: a full enumeration on the
// first ever cycle, an incremental one afterwards.
func (p *Pipeline) scan(ctx context.Context) (domain.Listing, error) {
	if !p.initialized {
		logger.Info("[pipeline] initial scan")
		return p.scanner.ListAll(ctx)
	}
	return p.scanner.Changes(ctx, p.lastCheck)
}

// reconcile removes orphaned chunks when a complete listing is available.
// Incremental listings trigger a separate full enumeration; if even that
// comes back incomplete the pass is skipped rather than guessed at.
func (p *Pipeline) reconcile(ctx context.Context, listing domain.Listing, stats *domain.CycleStats) int {
	full := listing
	if !full.Complete {
		var err error
		full, err = p.scanner.ListAll(ctx)
		if err != nil {
			logger.Error("[pipeline] full listing for reconciliation failed: %v", err)
			stats.Errors++
			return 0
		}
	}

	deleted, err := p.reconciler.Reconcile(ctx, full)
	if err != nil {
		if errors.Is(err, domain.ErrIncompleteListing) {
			logger.Warn("[pipeline] skipping reconciliation: listing incomplete")
			return deleted
		}
		logger.Error("[pipeline] reconciliation: %v", err)
		stats.Errors++
	}

	// Files the reconciler removed from the store must also drop out of
	// the watermark map, or they would never be re-ingested on return.
	if full.Complete {
		live := full.IDs()
		for id := range p.known {
			if _, ok := live[id]; !ok {
				delete(p.known, id)
			}
		}
	}

	return deleted
}

func (p *Pipeline) persistState(ctx context.Context) error {
	state := &domain.PipelineState{
		PipelineID:    p.pipelineID,
		PipelineType:  p.scanner.Type(),
		KnownFiles:    p.known,
		LastCheckTime: p.lastCheck,
		LastRun:       time.Now().UTC(),
	}
	if err := p.stateStore.Save(ctx, state); err != nil {
		return fmt.Errorf("saving pipeline state: %w", err)
	}
	return nil
}

// Run executes check cycles until the context is cancelled. Between
// cycles it waits for the configured interval or a change notification
// from the scanner, whichever comes first.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.loadState(ctx); err != nil {
		return err
	}

	p.status.SetStatus(StatusRunning)
	defer p.status.SetStatus(StatusStopped)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.heartbeatLoop(ctx)
	}()

	notify := p.scanner.Notify(ctx)

	var totals domain.CycleStats
	var cycleErrs int
	for {
		stats, err := p.RunOnce(ctx)
		if err != nil {
			logger.Error("[pipeline] cycle failed: %v", err)
		}
		totals.Add(stats)
		if stats.Errors > 0 {
			cycleErrs++
		}
		logger.Info("[pipeline] cycle done: %d processed, %d deleted, %d orphans, %d errors in %s",
			stats.FilesProcessed, stats.FilesDeleted, stats.OrphansDeleted, stats.Errors,
			stats.Duration.Round(time.Millisecond))

		select {
		case <-ctx.Done():
			// Join the heartbeat goroutine first so its "online" writes
			// cannot land after the offline heartbeat below.
			p.waitForBackground(&wg)
			return p.shutdown(totals, cycleErrs)
		case <-time.After(p.cfg.Interval):
		case _, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			logger.Debug("[pipeline] change notification, running early cycle")
		}
	}
}

// shutdown flushes state and the offline heartbeat on a short deadline,
// since the run context is already cancelled.
func (p *Pipeline) shutdown(totals domain.CycleStats, cycleErrs int) error {
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := p.persistState(flushCtx); err != nil {
		logger.Error("[pipeline] final state flush failed: %v", err)
	}
	if err := p.stateStore.Heartbeat(flushCtx, p.pipelineID, "offline"); err != nil {
		logger.Debug("[pipeline] offline heartbeat failed: %v", err)
	}

	logger.Info("[pipeline] totals since start: %d processed, %d deleted, %d orphans, %d errors",
		totals.FilesProcessed, totals.FilesDeleted, totals.OrphansDeleted, totals.Errors)

	if cycleErrs > 0 {
		return fmt.Errorf("%d cycles finished with errors", cycleErrs)
	}
	return nil
}

func (p *Pipeline) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	if err := p.stateStore.Heartbeat(ctx, p.pipelineID, "online"); err != nil {
		logger.Debug("[pipeline] heartbeat failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.stateStore.Heartbeat(ctx, p.pipelineID, "online"); err != nil {
				logger.Debug("[pipeline] heartbeat failed: %v", err)
			}
		}
	}
}

// waitForBackground joins background goroutines with a bounded timeout so
// shutdown never hangs on a stuck store call.
func (p *Pipeline) waitForBackground(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.Warn("[pipeline] background goroutines did not stop within %s", shutdownGrace)
	}
}

// Status reports the current pipeline status snapshot.
func (p *Pipeline) Status() driving.StatusSnapshot {
	return p.status.Snapshot()
}
