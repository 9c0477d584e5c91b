package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
)

// stateStore implements driven.StateStore on the pipeline_state table.
type stateStore struct {
	store *Store
}

var _ driven.StateStore = (*stateStore)(nil)

// Load retrieves the saved state for a pipeline instance.
func (s *stateStore) Load(ctx context.Context, pipelineID string) (*domain.PipelineState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT pipeline_id, pipeline_type, known_files, last_check_time, last_run
		FROM pipeline_state WHERE pipeline_id = ?`, pipelineID)

	var state domain.PipelineState
	var knownJSON string
	var lastCheck, lastRun sql.NullTime
	err := row.Scan(&state.PipelineID, &state.PipelineType, &knownJSON, &lastCheck, &lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading state for %s: %w", pipelineID, err)
	}

	if err := json.Unmarshal([]byte(knownJSON), &state.KnownFiles); err != nil {
		return nil, fmt.Errorf("unmarshalling known files: %w", err)
	}
	if state.KnownFiles == nil {
		state.KnownFiles = make(map[string]time.Time)
	}
	if lastCheck.Valid {
		state.LastCheckTime = lastCheck.Time.UTC()
	}
	if lastRun.Valid {
		state.LastRun = lastRun.Time.UTC()
	}

	return &state, nil
}

// Save upserts the pipeline state, preserving the heartbeat columns.
func (s *stateStore) Save(ctx context.Context, state *domain.PipelineState) error {
	if state == nil || state.PipelineID == "" {
		return domain.ErrInvalidInput
	}

	knownJSON, err := json.Marshal(state.KnownFiles)
	if err != nil {
		return fmt.Errorf("marshalling known files: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_state (pipeline_id, pipeline_type, known_files, last_check_time, last_run, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pipeline_id) DO UPDATE SET
			pipeline_type = excluded.pipeline_type,
			known_files = excluded.known_files,
			last_check_time = excluded.last_check_time,
			last_run = excluded.last_run,
			updated_at = CURRENT_TIMESTAMP`,
		state.PipelineID, string(state.PipelineType), string(knownJSON),
		nullableTime(state.LastCheckTime), nullableTime(state.LastRun))
	if err != nil {
		return fmt.Errorf("saving state for %s: %w", state.PipelineID, err)
	}
	return nil
}

// Heartbeat updates liveness without touching the known-file record. A
// heartbeat may arrive before the first Save, so it also upserts.
func (s *stateStore) Heartbeat(ctx context.Context, pipelineID, serverStatus string) error {
	if pipelineID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pipeline_state (pipeline_id, pipeline_type, server_status, last_heartbeat)
		VALUES (?, '', ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pipeline_id) DO UPDATE SET
			server_status = excluded.server_status,
			last_heartbeat = CURRENT_TIMESTAMP`,
		pipelineID, serverStatus)
	if err != nil {
		return fmt.Errorf("heartbeat for %s: %w", pipelineID, err)
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
