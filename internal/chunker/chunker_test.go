package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

func TestSplit_Empty(t *testing.T) {
	c := New()
	chunks := c.Split(domain.SourceFile{ID: "f1"}, "", nil)
	assert.Empty(t, chunks)
}

func TestSplit_SingleChunk(t *testing.T) {
	c := New(WithChunkSize(100))
	chunks := c.Split(domain.SourceFile{ID: "f1"}, "hello world", nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Equal(t, "f1", chunks[0].FileID)
	assert.Equal(t, 0, chunks[0].Position)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestSplit_MultipleChunks(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(0))
	text := strings.Repeat("a", 25)
	chunks := c.Split(domain.SourceFile{ID: "f1"}, text, nil)

	require.Len(t, chunks, 3)
	assert.Equal(t, 10, len(chunks[0].Content))
	assert.Equal(t, 10, len(chunks[1].Content))
	assert.Equal(t, 5, len(chunks[2].Content))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Position)
	}
}

func TestSplit_Overlap(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(4))
	text := "0123456789ABCDEFGHIJ"
	chunks := c.Split(domain.SourceFile{ID: "f1"}, text, nil)

	require.GreaterOrEqual(t, len(chunks), 2)
	// Each chunk starts chunkSize-overlap after the previous one.
	assert.Equal(t, "0123456789", chunks[0].Content)
	assert.Equal(t, "6789ABCDEF", chunks[1].Content)
}

func TestSplit_Metadata(t *testing.T) {
	c := New()
	meta := map[string]any{"file_name": "notes.txt", "mime_type": "text/plain"}
	chunks := c.Split(domain.SourceFile{ID: "f1"}, "some text", meta)

	require.Len(t, chunks, 1)
	assert.Equal(t, "notes.txt", chunks[0].Metadata["file_name"])
}

func TestNew_OverlapClampedToChunkSize(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(20))
	// Must terminate and produce chunks despite the invalid overlap.
	chunks := c.Split(domain.SourceFile{ID: "f1"}, strings.Repeat("x", 50), nil)
	assert.NotEmpty(t, chunks)
}
