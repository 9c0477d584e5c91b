package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore on the chunks table.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// ReplaceChunks swaps a file's chunk set inside one transaction, so a
// failure mid-write leaves the previous set intact and a concurrent
// reader never sees a mix.
func (d *documentStore) ReplaceChunks(ctx context.Context, fileID string, chunks []domain.Chunk) error {
	if fileID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, file_id, content, position, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?)`,
			chunk.ID, fileID, chunk.Content, chunk.Position,
			float32SliceToBytes(chunk.Embedding), string(metadataJSON))
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteByFileID removes every chunk for a file. Unknown IDs succeed.
func (d *documentStore) DeleteByFileID(ctx context.Context, fileID string) error {
	_, err := d.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", fileID, err)
	}
	return nil
}

// ListFileIDs returns the distinct file IDs present in the store.
func (d *documentStore) ListFileIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.store.db.QueryContext(ctx, "SELECT DISTINCT file_id FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("listing file IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning file ID: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// CountChunks returns the number of chunks stored for a file.
func (d *documentStore) CountChunks(ctx context.Context, fileID string) (int, error) {
	var count int
	row := d.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE file_id = ?", fileID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks for %s: %w", fileID, err)
	}
	return count, nil
}

// ChunksByFileID returns a file's chunks ordered by position.
func (d *documentStore) ChunksByFileID(ctx context.Context, fileID string) ([]domain.Chunk, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT id, file_id, content, position, embedding, metadata
		FROM chunks WHERE file_id = ? ORDER BY position`, fileID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks for %s: %w", fileID, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.FileID, &chunk.Content,
			&chunk.Position, &embeddingBlob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a stored byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
