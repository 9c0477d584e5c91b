package driven

import (
	"context"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

// DocumentStore persists chunk-level records tagged by source file ID.
// Backed by SQLite; an in-memory implementation exists for tests.
type DocumentStore interface {
	// ReplaceChunks atomically replaces all chunks for a file with the
	// given set. Readers never observe a mix of old and new chunks.
	ReplaceChunks(ctx context.Context, fileID string, chunks []domain.Chunk) error

	// DeleteByFileID removes every chunk for a file. Deleting an absent
	// file ID is a success, not an error.
	DeleteByFileID(ctx context.Context, fileID string) error

	// ListFileIDs returns the set of distinct file IDs present in the store.
	ListFileIDs(ctx context.Context) (map[string]struct{}, error)

	// CountChunks returns the number of chunks stored for a file.
	CountChunks(ctx context.Context, fileID string) (int, error)
}
