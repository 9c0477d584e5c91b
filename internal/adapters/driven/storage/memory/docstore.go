// Package memory provides in-memory store implementations used in tests
// and as a zero-dependency fallback.
package memory

import (
	"context"
	"sync"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
)

// DocumentStore is a thread-safe in-memory chunk store keyed by file ID.
type DocumentStore struct {
	mu     sync.RWMutex
	chunks map[string][]domain.Chunk
}

var _ driven.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{chunks: make(map[string][]domain.Chunk)}
}

// ReplaceChunks swaps the stored chunk set for a file in one step. An
// empty or nil set removes the file from the store entirely.
func (s *DocumentStore) ReplaceChunks(_ context.Context, fileID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(chunks) == 0 {
		delete(s.chunks, fileID)
		return nil
	}
	s.chunks[fileID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// DeleteByFileID removes all chunks for a file. Unknown IDs are a no-op.
func (s *DocumentStore) DeleteByFileID(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, fileID)
	return nil
}

// ListFileIDs returns the set of file IDs with stored chunks.
func (s *DocumentStore) ListFileIDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.chunks))
	for id := range s.chunks {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// CountChunks returns the number of chunks stored for a file.
func (s *DocumentStore) CountChunks(_ context.Context, fileID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[fileID]), nil
}

// Chunks returns a copy of the stored chunks for a file, for assertions.
func (s *DocumentStore) Chunks(fileID string) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunks[fileID]...)
}
