// Package chunker provides fixed-size text chunking with overlap.
package chunker

import (
	"github.com/google/uuid"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 0

// Chunker splits extracted text into fixed-size chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split chunks the text for one source file. Empty text produces no
// chunks. Each chunk carries the file's metadata so the document store
// can serve chunk-level results without a join.
func (c *Chunker) Split(f domain.SourceFile, text string, metadata map[string]any) []domain.Chunk {
	if text == "" {
		return nil
	}

	contentLen := len(text)
	estimated := (contentLen / (c.chunkSize - c.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	position := 0
	start := 0

	for start < contentLen {
		end := start + c.chunkSize
		if end > contentLen {
			end = contentLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			FileID:   f.ID,
			Content:  text[start:end],
			Position: position,
			Metadata: metadata,
		})
		position++

		start += c.chunkSize - c.overlap
		if c.chunkSize <= c.overlap {
			break
		}
	}

	return chunks
}
