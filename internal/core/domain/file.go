package domain

import "time"

// SourceFile is a file as it currently exists at an external source.
// It is produced by a scanner pass and never mutated by the pipeline.
type SourceFile struct {
	// ID is the stable identifier for the file. For Google Drive this is
	// the native file ID; for the local filesystem it is a hash of the
	// absolute path, so a file keeps its identity across content changes.
	ID string

	// Name is the base file name.
	Name string

	// Path is the source-local location (absolute path or Drive folder path).
	Path string

	// MIMEType is the declared or inferred MIME type.
	MIMEType string

	// ModifiedTime is the last modification timestamp in UTC.
	ModifiedTime time.Time

	// Size is the file size in bytes, when the source reports one.
	Size int64

	// Trashed indicates the remote source has marked the file deleted.
	// Always false for local files.
	Trashed bool

	// WebViewLink is an optional browser URL for the file.
	WebViewLink string
}

// Listing is the result of one scanner pass.
//
// Complete distinguishes a successful full enumeration from an incremental
// or failed pass. Removal detection and orphan reconciliation must only ever
// run against a complete listing: an empty incomplete listing means the
// source was unreachable, not that every file was deleted.
type Listing struct {
	Files    []SourceFile
	Complete bool
}

// IDs returns the set of file IDs present in the listing.
func (l Listing) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(l.Files))
	for _, f := range l.Files {
		ids[f.ID] = struct{}{}
	}
	return ids
}

// Chunk is one searchable unit of an ingested file, tagged with the
// SourceFile ID it was derived from. Multiple chunks share one FileID.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// FileID links back to the originating SourceFile.
	FileID string

	// Content is the chunk text.
	Content string

	// Position is the ordinal position within the file's text.
	Position int

	// Embedding is the vector representation, when embedding is enabled.
	Embedding []float32

	// Metadata carries file-level context (name, mime type, url, ...).
	Metadata map[string]any
}
