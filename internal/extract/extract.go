// Package extract converts raw file bytes into plain text, dispatched by
// MIME type. Text-family types pass through after UTF-8 validation; HTML
// is stripped to readable text. Types with no extractor yield empty text,
// which the ingestion worker treats as an expected skip.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/bcsurf2822/ragpipe/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.Extractor = (*Service)(nil)

// Service is the default text extractor.
type Service struct {
	maxSize int64
}

// New creates an extractor. maxSize caps the input size in bytes; zero
// means no cap.
func New(maxSize int64) *Service {
	return &Service{maxSize: maxSize}
}

// Extract returns the plain text content of a file. An empty result with
// a nil error means the file has no extractable text.
func (s *Service) Extract(content []byte, mimeType, name string) (string, error) {
	if len(content) == 0 {
		return "", nil
	}
	if s.maxSize > 0 && int64(len(content)) > s.maxSize {
		content = content[:s.maxSize]
	}

	switch baseMIME(mimeType) {
	case "text/html", "application/xhtml+xml":
		return StripHTML(string(content)), nil
	case "application/json", "application/xml", "text/xml":
		return validText(content), nil
	default:
		if strings.HasPrefix(mimeType, "text/") {
			return validText(content), nil
		}
		// No extractor for this type (binary formats, images, ...).
		return "", nil
	}
}

// baseMIME strips parameters like "; charset=utf-8".
func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

// validText returns the content as a string when it is valid UTF-8,
// otherwise empty. Binary content mislabelled as text is skipped rather
// than indexed as garbage.
func validText(content []byte) string {
	if !utf8.Valid(content) {
		return ""
	}
	return strings.TrimSpace(string(content))
}
