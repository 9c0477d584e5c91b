// Package drive scans a Google Drive folder tree for ingestable files.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
	"github.com/bcsurf2822/ragpipe/internal/logger"
	"github.com/bcsurf2822/ragpipe/internal/retry"
)

const folderMIMEType = "application/vnd.google-apps.folder"

// listFields limits listing responses to what change detection needs.
const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, size, trashed, webViewLink)"

// Drive allows 10 requests/sec/user; stay under it.
const (
	requestsPerSecond = 8
	requestBurst      = 10
)

// Scanner watches one Drive folder tree through the Drive v3 API. All
// API calls go through a shared rate limiter and bounded retries; listing
// failures surface as errors rather than empty results so a flaky API
// never reads as a mass deletion.
type Scanner struct {
	cfg      *config.Config
	svc      *driveapi.Service
	folderID string
	limiter  *rate.Limiter
}

var _ driven.Scanner = (*Scanner)(nil)

// New authenticates and builds a Drive scanner for cfg.Drive.FolderID.
func New(ctx context.Context, cfg *config.Config, opts AuthOptions) (*Scanner, error) {
	if cfg.Drive.FolderID == "" {
		return nil, fmt.Errorf("%w: drive folder ID not configured", domain.ErrScannerValidation)
	}

	ts, err := NewTokenSource(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	svc, err := driveapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &Scanner{
		cfg:      cfg,
		svc:      svc,
		folderID: cfg.Drive.FolderID,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}, nil
}

// Type returns the pipeline type this scanner serves.
func (s *Scanner) Type() domain.PipelineType {
	return domain.PipelineGoogleDrive
}

// Validate confirms the watched folder exists and is reachable.
func (s *Scanner) Validate(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	f, err := s.svc.Files.Get(s.folderID).Fields("id, mimeType").
		SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: folder %s: %w", domain.ErrScannerValidation, s.folderID, wrapAPIError(err))
	}
	if f.MimeType != folderMIMEType {
		return fmt.Errorf("%w: %s is not a folder", domain.ErrScannerValidation, s.folderID)
	}
	return nil
}

// Changes lists files created or modified since the given time across
// the folder tree, including trashed files so deletions are observed.
// The result is time-bounded, never a full enumeration.
func (s *Scanner) Changes(ctx context.Context, since time.Time) (domain.Listing, error) {
	folders, err := s.folderTree(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("[drive] watched folder %s not found, treating as unreachable", s.folderID)
			return domain.Listing{Complete: false}, nil
		}
		return domain.Listing{}, err
	}

	var files []domain.SourceFile
	for _, folderID := range folders {
		batch, err := s.listFiles(ctx, changesQuery(folderID, since))
		if err != nil {
			return domain.Listing{}, fmt.Errorf("listing changes in %s: %w", folderID, err)
		}
		files = append(files, batch...)
	}

	return domain.Listing{Files: files, Complete: false}, nil
}

// ListAll enumerates every live file in the folder tree. A missing root
// folder yields an empty incomplete listing rather than an error.
func (s *Scanner) ListAll(ctx context.Context) (domain.Listing, error) {
	folders, err := s.folderTree(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("[drive] watched folder %s not found, treating as unreachable", s.folderID)
			return domain.Listing{Complete: false}, nil
		}
		return domain.Listing{}, err
	}

	var files []domain.SourceFile
	for _, folderID := range folders {
		batch, err := s.listFiles(ctx, fullQuery(folderID))
		if err != nil {
			return domain.Listing{}, fmt.Errorf("listing folder %s: %w", folderID, err)
		}
		files = append(files, batch...)
	}

	return domain.Listing{Files: files, Complete: true}, nil
}

// folderTree returns the watched folder plus all nested subfolders,
// breadth first. A visited set guards against shortcut cycles.
func (s *Scanner) folderTree(ctx context.Context) ([]string, error) {
	visited := map[string]struct{}{s.folderID: {}}
	order := []string{s.folderID}
	queue := []string{s.folderID}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", parent, folderMIMEType)
		subs, err := s.list(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("listing subfolders of %s: %w", parent, err)
		}
		for _, sub := range subs {
			if _, seen := visited[sub.Id]; seen {
				continue
			}
			visited[sub.Id] = struct{}{}
			order = append(order, sub.Id)
			queue = append(queue, sub.Id)
		}
	}

	return order, nil
}

// list runs one Drive query to completion, following page tokens.
func (s *Scanner) list(ctx context.Context, query string) ([]*driveapi.File, error) {
	var files []*driveapi.File
	pageToken := ""

	for {
		var page *driveapi.FileList
		err := retry.Do(ctx, retry.DefaultConfig(), "drive list", func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
			call := s.svc.Files.List().Q(query).
				PageSize(s.cfg.Drive.PageSize).
				Fields(listFields).
				IncludeItemsFromAllDrives(true).
				SupportsAllDrives(true).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			page, callErr = call.Do()
			return s.throttle(callErr)
		})
		if err != nil {
			return nil, err
		}

		files = append(files, page.Files...)

		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// listFiles runs a query and keeps only ingestable files: folders are
// dropped and the MIME allowlist is applied here, so listings never carry
// types the pipeline cannot process.
func (s *Scanner) listFiles(ctx context.Context, query string) ([]domain.SourceFile, error) {
	raw, err := s.list(ctx, query)
	if err != nil {
		return nil, err
	}

	files := make([]domain.SourceFile, 0, len(raw))
	for _, f := range raw {
		if !s.ingestable(f) {
			continue
		}
		files = append(files, mapFile(f))
	}
	return files, nil
}

// ingestable reports whether a listed file belongs in a listing.
func (s *Scanner) ingestable(f *driveapi.File) bool {
	return f.MimeType != folderMIMEType && s.cfg.MIMESupported(f.MimeType)
}

// Download fetches file content, exporting Google Workspace types to the
// configured text format first.
func (s *Scanner) Download(ctx context.Context, f domain.SourceFile) ([]byte, error) {
	if f.Size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%s exceeds size limit (%d > %d bytes)", f.Name, f.Size, s.cfg.MaxFileSize)
	}

	var data []byte
	err := retry.Do(ctx, retry.DefaultConfig(), "drive download", func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		var err error
		if exportMIME, ok := s.cfg.ExportMIMETypes[f.MIMEType]; ok {
			data, err = s.export(ctx, f.ID, exportMIME)
		} else {
			data, err = s.fetch(ctx, f.ID)
		}
		return s.throttle(err)
	})
	return data, err
}

func (s *Scanner) fetch(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFileSize))
}

func (s *Scanner) export(ctx context.Context, fileID, exportMIME string) ([]byte, error) {
	resp, err := s.svc.Files.Export(fileID, exportMIME).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFileSize))
}

// Notify returns nil: Drive offers no push channel in this deployment,
// so cycles run purely on the schedule.
func (s *Scanner) Notify(_ context.Context) <-chan struct{} {
	return nil
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (s *Scanner) Close() error {
	return nil
}

// throttle drains the limiter's burst after a quota response, so the next
// retry attempt waits out a full bucket refill instead of re-hitting the
// exhausted quota at speed.
func (s *Scanner) throttle(err error) error {
	if isRateLimited(err) {
		logger.Warn("[drive] rate limited, backing off")
		s.limiter.ReserveN(time.Now(), requestBurst)
	}
	return classify(err)
}

// classify wraps API errors and marks non-retryable ones permanent so
// the retry layer gives up immediately on auth and not-found responses.
func classify(err error) error {
	if err == nil {
		return nil
	}
	wrapped := wrapAPIError(err)
	if errors.Is(wrapped, domain.ErrAuthExpired) || errors.Is(wrapped, domain.ErrNotFound) {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

// changesQuery matches files created or modified after the watermark in
// one folder. Trashed files are included so removals are seen.
func changesQuery(folderID string, since time.Time) string {
	ts := since.UTC().Format(time.RFC3339)
	return fmt.Sprintf("(modifiedTime > '%s' or createdTime > '%s') and '%s' in parents and mimeType != '%s'",
		ts, ts, folderID, folderMIMEType)
}

// fullQuery matches every live file in one folder.
func fullQuery(folderID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'", folderID, folderMIMEType)
}

// mapFile converts a Drive API file into the domain representation.
func mapFile(f *driveapi.File) domain.SourceFile {
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		modified = time.Time{}
	}
	return domain.SourceFile{
		ID:           f.Id,
		Name:         f.Name,
		MIMEType:     f.MimeType,
		ModifiedTime: modified.UTC(),
		Size:         f.Size,
		Trashed:      f.Trashed,
		WebViewLink:  f.WebViewLink,
	}
}
