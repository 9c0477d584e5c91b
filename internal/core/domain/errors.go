package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIncompleteListing indicates a scanner pass that is not a full
	// enumeration was offered where a complete one is required.
	// Reconciling against an incomplete listing would purge live files.
	ErrIncompleteListing = errors.New("listing incomplete")

	// ErrUnsupportedMIME indicates a file's MIME type is outside the
	// configured allowlist.
	ErrUnsupportedMIME = errors.New("unsupported mime type")

	// Authentication errors.

	// ErrAuthRequired indicates no usable credential strategy is available.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates credentials expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrInteractiveAuthUnavailable indicates interactive authentication
	// was needed but the pipeline is running unattended.
	ErrInteractiveAuthUnavailable = errors.New("interactive authentication unavailable in unattended mode")

	// Scanner errors.

	// ErrScannerValidation indicates scanner validation failed: the watch
	// root is missing or credentials are unusable.
	ErrScannerValidation = errors.New("scanner validation failed")

	// ErrRateLimited indicates the source API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
