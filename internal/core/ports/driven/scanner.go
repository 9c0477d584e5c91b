// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"time"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

// Scanner enumerates files at an external source.
// Each source kind (local filesystem, Google Drive) implements this interface.
//
// Scanners are retry-free: bounded retries belong to the network layer below
// them. When the watch root is unreachable they return an empty incomplete
// Listing rather than an error, so a transient outage never looks like a
// mass deletion to the caller.
type Scanner interface {
	// Type returns the scanner type identifier.
	Type() domain.PipelineType

	// Validate checks the scanner is properly configured and can reach
	// its source. For the filesystem this checks the root exists; for
	// Drive it makes a lightweight API call.
	Validate(ctx context.Context) error

	// Changes lists files changed since the given time. The returned
	// Listing is Complete only when it is also a full enumeration (the
	// local scanner always walks the whole tree; the Drive scanner's
	// time-bounded query is inherently incremental).
	Changes(ctx context.Context, since time.Time) (domain.Listing, error)

	// ListAll returns a full enumeration of the source, used by the
	// initial scan and the orphan reconciler.
	ListAll(ctx context.Context) (domain.Listing, error)

	// Download fetches the raw bytes of a file.
	Download(ctx context.Context, f domain.SourceFile) ([]byte, error)

	// Notify returns a channel that receives a signal when the source
	// reports a change between scheduled cycles, or nil when the scanner
	// has no push mechanism.
	Notify(ctx context.Context) <-chan struct{}

	// Close releases resources.
	Close() error
}
