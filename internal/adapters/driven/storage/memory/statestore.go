package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
)

// StateStore is a thread-safe in-memory pipeline state store.
type StateStore struct {
	mu         sync.RWMutex
	states     map[string]*domain.PipelineState
	heartbeats map[string]heartbeat
}

type heartbeat struct {
	status string
	at     time.Time
}

var _ driven.StateStore = (*StateStore)(nil)

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states:     make(map[string]*domain.PipelineState),
		heartbeats: make(map[string]heartbeat),
	}
}

// Load returns a deep copy of the stored state, or domain.ErrNotFound.
func (s *StateStore) Load(_ context.Context, pipelineID string) (*domain.PipelineState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[pipelineID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyState(state), nil
}

// Save stores a deep copy so later caller mutations don't leak in.
func (s *StateStore) Save(_ context.Context, state *domain.PipelineState) error {
	if state == nil || state.PipelineID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.PipelineID] = copyState(state)
	return nil
}

// Heartbeat records liveness without touching the saved state.
func (s *StateStore) Heartbeat(_ context.Context, pipelineID, serverStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats[pipelineID] = heartbeat{status: serverStatus, at: time.Now().UTC()}
	return nil
}

// LastHeartbeat returns the most recent heartbeat status, for assertions.
func (s *StateStore) LastHeartbeat(pipelineID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heartbeats[pipelineID].status
}

func copyState(state *domain.PipelineState) *domain.PipelineState {
	cp := *state
	cp.KnownFiles = make(map[string]time.Time, len(state.KnownFiles))
	for k, v := range state.KnownFiles {
		cp.KnownFiles[k] = v
	}
	return &cp
}
