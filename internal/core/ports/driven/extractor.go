package driven

// Extractor converts raw file bytes into plain text.
//
// An empty result with a nil error is an expected outcome for files with
// no extractable text (empty files, unsupported structures); the caller
// treats it as a logged no-op, not a failure.
type Extractor interface {
	// Extract returns the plain text content of a file.
	Extract(content []byte, mimeType, name string) (string, error)
}
