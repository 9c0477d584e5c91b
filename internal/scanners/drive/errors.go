package drive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

// wrapAPIError maps Google API status codes onto domain sentinels so the
// layers above never import googleapi.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return domain.ErrAuthExpired
	case gerr.Code == http.StatusTooManyRequests, quotaReason(gerr):
		return domain.ErrRateLimited
	case gerr.Code == http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return err
	}
}

// quotaReason reports whether a 403 carries a rate-limit reason. Drive
// signals per-user quota exhaustion as 403, not 429.
func quotaReason(gerr *googleapi.Error) bool {
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "userRateLimitExceeded", "rateLimitExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}

// isRateLimited reports whether the error is a quota or rate limit
// response.
func isRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || quotaReason(gerr)
	}
	return false
}
