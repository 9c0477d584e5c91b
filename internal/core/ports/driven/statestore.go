package driven

import (
	"context"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

// StateStore persists pipeline state across restarts.
type StateStore interface {
	// Load retrieves the state for a pipeline instance.
	// Returns domain.ErrNotFound when no state has been saved yet.
	Load(ctx context.Context, pipelineID string) (*domain.PipelineState, error)

	// Save stores or updates a pipeline's state.
	Save(ctx context.Context, state *domain.PipelineState) error

	// Heartbeat records pipeline liveness ("online"/"offline") without
	// touching the known-file map.
	Heartbeat(ctx context.Context, pipelineID, serverStatus string) error
}
