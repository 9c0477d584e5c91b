package domain

import "time"

// PipelineType identifies the kind of source a pipeline instance watches.
type PipelineType string

const (
	// PipelineLocalFiles watches a local directory tree.
	PipelineLocalFiles PipelineType = "local_files"
	// PipelineGoogleDrive watches a Google Drive folder tree.
	PipelineGoogleDrive PipelineType = "google_drive"
)

// PipelineState is the persisted state of one pipeline instance.
//
// The state store is the only durable record of what the pipeline has
// already processed. It is read once at startup and written after every
// cycle; loading a non-empty state suppresses the initial full scan so a
// restart never reprocesses unchanged files.
type PipelineState struct {
	// PipelineID uniquely identifies this pipeline instance.
	PipelineID string

	// PipelineType is the source kind.
	PipelineType PipelineType

	// KnownFiles maps file ID to the last-observed modification time.
	// The timestamp is a watermark, not a snapshot: a file whose listing
	// watermark equals the stored one is considered unchanged.
	KnownFiles map[string]time.Time

	// LastCheckTime is the lower bound passed to incremental listings.
	LastCheckTime time.Time

	// LastRun is when the pipeline last completed a cycle.
	LastRun time.Time
}

// NewPipelineState returns an empty state for a pipeline instance.
func NewPipelineState(id string, typ PipelineType) *PipelineState {
	return &PipelineState{
		PipelineID:   id,
		PipelineType: typ,
		KnownFiles:   make(map[string]time.Time),
	}
}

// HasKnownFiles reports whether the state carries any watermarks.
func (s *PipelineState) HasKnownFiles() bool {
	return s != nil && len(s.KnownFiles) > 0
}
