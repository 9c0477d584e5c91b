package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/chunker"
	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Ingestor handles the per-file ingestion path: download, extract, chunk,
// embed and store. Each file is processed in isolation so one failure
// never aborts the batch.
type Ingestor struct {
	cfg       *config.Config
	scanner   driven.Scanner
	extractor driven.Extractor
	chunker   *chunker.Chunker
	embedder  driven.EmbeddingService
	docStore  driven.DocumentStore
	status    *StatusTracker
}

// NewIngestor creates an ingestor. embedder may be nil, in which case
// chunks are stored without vectors.
func NewIngestor(
	cfg *config.Config,
	scanner driven.Scanner,
	extractor driven.Extractor,
	ch *chunker.Chunker,
	embedder driven.EmbeddingService,
	docStore driven.DocumentStore,
	status *StatusTracker,
) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		scanner:   scanner,
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		docStore:  docStore,
		status:    status,
	}
}

// ProcessBatch ingests every file in order, updating the known-file map
// on success only. A file that fails keeps its old watermark and is
// retried on the next cycle. Returns the number of successes and failures.
func (ing *Ingestor) ProcessBatch(ctx context.Context, files []domain.SourceFile, known map[string]time.Time) (processed, failed int) {
	for _, f := range files {
		if ctx.Err() != nil {
			return processed, failed
		}

		if err := ing.ProcessFile(ctx, f); err != nil {
			if errors.Is(err, domain.ErrUnsupportedMIME) {
				logger.Debug("[ingestor] skipping %s: unsupported type %s", f.Name, f.MIMEType)
				continue
			}
			logger.Error("[ingestor] failed to process %s: %v", f.Name, err)
			failed++
			continue
		}

		known[f.ID] = f.ModifiedTime
		processed++
	}
	return processed, failed
}

// ProcessFile runs the full ingestion path for a single file. Extraction
// that yields no text is a success: any stale chunks are replaced with
// an empty set and the watermark still advances.
func (ing *Ingestor) ProcessFile(ctx context.Context, f domain.SourceFile) error {
	if !ing.cfg.MIMESupported(f.MIMEType) {
		return domain.ErrUnsupportedMIME
	}

	ing.status.StartFile(f)
	success := false
	defer func() { ing.status.FinishFile(f.ID, success) }()

	logger.Info("[ingestor] processing %s (%s)", f.Name, f.MIMEType)

	content, err := ing.scanner.Download(ctx, f)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	text, err := ing.extractor.Extract(content, f.MIMEType, f.Name)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if text == "" {
		logger.Info("[ingestor] no text extracted from %s, skipping", f.Name)
		if err := ing.docStore.ReplaceChunks(ctx, f.ID, nil); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		success = true
		return nil
	}

	chunks := ing.chunker.Split(f, text, ing.chunkMetadata(f))
	if ing.embedder != nil {
		if err := ing.embedChunks(ctx, chunks); err != nil {
			return fmt.Errorf("embed: %w", err)
		}
	}

	if err := ing.docStore.ReplaceChunks(ctx, f.ID, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	logger.Info("[ingestor] stored %d chunks for %s", len(chunks), f.Name)
	success = true
	return nil
}

// DeleteFile removes every chunk for a file and forgets its watermark.
// Deleting a file that has no chunks is a no-op.
func (ing *Ingestor) DeleteFile(ctx context.Context, fileID string, known map[string]time.Time) error {
	if err := ing.docStore.DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", fileID, err)
	}
	delete(known, fileID)
	return nil
}

func (ing *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

func (ing *Ingestor) chunkMetadata(f domain.SourceFile) map[string]any {
	md := map[string]any{
		"file_id":   f.ID,
		"file_name": f.Name,
		"mime_type": f.MIMEType,
	}
	if f.WebViewLink != "" {
		md["url"] = f.WebViewLink
	}
	if f.Path != "" {
		md["path"] = f.Path
	}
	return md
}
