// Package localfs scans a local directory tree for ingestable files.
package localfs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Scanner walks a directory tree and reports files on the MIME allowlist.
// File IDs are stable hashes of the absolute path, so a file keeps its
// identity across scans and restarts.
type Scanner struct {
	cfg    *config.Config
	root   string
	notify *notifier
}

var _ driven.Scanner = (*Scanner)(nil)

// New creates a scanner rooted at cfg.Local.WatchDirectory.
func New(cfg *config.Config) (*Scanner, error) {
	if cfg.Local.WatchDirectory == "" {
		return nil, fmt.Errorf("%w: watch directory not configured", domain.ErrScannerValidation)
	}
	root, err := filepath.Abs(cfg.Local.WatchDirectory)
	if err != nil {
		return nil, fmt.Errorf("resolving watch directory: %w", err)
	}
	return &Scanner{cfg: cfg, root: root}, nil
}

// Type returns the pipeline type this scanner serves.
func (s *Scanner) Type() domain.PipelineType {
	return domain.PipelineLocalFiles
}

// Root returns the absolute watch directory.
func (s *Scanner) Root() string {
	return s.root
}

// Validate ensures the watch directory exists, creating it if needed.
// Failure to create it is fatal: there is nothing to watch.
func (s *Scanner) Validate(_ context.Context) error {
	info, err := os.Stat(s.root)
	if os.IsNotExist(err) {
		logger.Info("[localfs] creating watch directory %s", s.root)
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", domain.ErrScannerValidation, s.root, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", domain.ErrScannerValidation, s.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrScannerValidation, s.root)
	}
	return nil
}

// ListAll walks the whole tree. A missing or unreadable root yields an
// empty incomplete listing, never an error: a transient mount outage must
// not read as a mass deletion.
func (s *Scanner) ListAll(ctx context.Context) (domain.Listing, error) {
	if _, err := os.Stat(s.root); err != nil {
		logger.Warn("[localfs] watch directory unavailable: %v", err)
		return domain.Listing{Complete: false}, nil
	}

	var files []domain.SourceFile
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			logger.Warn("[localfs] skipping %s: %v", path, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		f, ok := s.describe(path, d)
		if ok {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		// Only context cancellation escapes the walk callback.
		return domain.Listing{Complete: false}, err
	}

	return domain.Listing{Files: files, Complete: true}, nil
}

// Changes walks the full tree; the filesystem has no server-side change
// query, so every scan is also a complete enumeration. Change detection
// against the watermark map happens in the caller.
func (s *Scanner) Changes(ctx context.Context, _ time.Time) (domain.Listing, error) {
	return s.ListAll(ctx)
}

// Download reads the file contents, enforcing the configured size cap.
func (s *Scanner) Download(_ context.Context, f domain.SourceFile) ([]byte, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	if info.Size() > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%s exceeds size limit (%d > %d bytes)", f.Name, info.Size(), s.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return data, nil
}

// describe builds a SourceFile for a walked entry, or reports false when
// the entry is off the allowlist or unreadable.
func (s *Scanner) describe(path string, d fs.DirEntry) (domain.SourceFile, bool) {
	info, err := d.Info()
	if err != nil {
		logger.Warn("[localfs] cannot stat %s: %v", path, err)
		return domain.SourceFile{}, false
	}

	mimeType := detectMIME(path)
	if !s.cfg.MIMESupported(mimeType) {
		return domain.SourceFile{}, false
	}

	return domain.SourceFile{
		ID:           FileID(path),
		Name:         filepath.Base(path),
		Path:         path,
		MIMEType:     mimeType,
		ModifiedTime: info.ModTime().UTC(),
		Size:         info.Size(),
	}, true
}

// Notify returns a debounced filesystem-event channel, or nil when the
// watcher cannot be started.
func (s *Scanner) Notify(ctx context.Context) <-chan struct{} {
	n, err := newNotifier(ctx, s.root)
	if err != nil {
		logger.Warn("[localfs] change notifications unavailable: %v", err)
		return nil
	}
	s.notify = n
	return n.C()
}

// Close stops the filesystem watcher if one was started.
func (s *Scanner) Close() error {
	if s.notify != nil {
		return s.notify.Close()
	}
	return nil
}

// FileID returns the stable identifier for a path: the hex MD5 of its
// absolute form. Renaming a file therefore reads as a delete plus an add.
func FileID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := md5.Sum([]byte(abs))
	return hex.EncodeToString(sum[:])
}

// detectMIME maps a filename to a MIME type by extension, stripping any
// charset parameter. Unknown extensions default to text/plain so plain
// files without an extension are still considered.
func detectMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".md" || ext == ".markdown" {
		return "text/markdown"
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return "text/plain"
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
