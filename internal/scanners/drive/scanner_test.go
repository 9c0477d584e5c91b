package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	driveapi "google.golang.org/api/drive/v3"
)

func TestChangesQuery(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	got := changesQuery("folder123", since)

	assert.Contains(t, got, "modifiedTime > '2024-05-01T12:30:00Z'")
	assert.Contains(t, got, "createdTime > '2024-05-01T12:30:00Z'")
	assert.Contains(t, got, "'folder123' in parents")
	assert.Contains(t, got, "mimeType != 'application/vnd.google-apps.folder'")
	// Trashed files must be visible in change listings.
	assert.NotContains(t, got, "trashed")
}

func TestFullQueryExcludesTrashed(t *testing.T) {
	got := fullQuery("folder123")
	assert.Contains(t, got, "'folder123' in parents")
	assert.Contains(t, got, "trashed = false")
}

func TestMapFile(t *testing.T) {
	f := &driveapi.File{
		Id:           "abc",
		Name:         "report.pdf",
		MimeType:     "application/pdf",
		ModifiedTime: "2024-05-01T12:30:00.000Z",
		Size:         2048,
		Trashed:      true,
		WebViewLink:  "https://drive.google.com/file/d/abc",
	}

	got := mapFile(f)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, "application/pdf", got.MIMEType)
	assert.Equal(t, int64(2048), got.Size)
	assert.True(t, got.Trashed)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), got.ModifiedTime)
}

func TestMapFileBadTimestamp(t *testing.T) {
	got := mapFile(&driveapi.File{Id: "x", ModifiedTime: "not-a-time"})
	assert.True(t, got.ModifiedTime.IsZero())
}

func TestWrapAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, domain.ErrAuthExpired},
		{"too many requests", &googleapi.Error{Code: http.StatusTooManyRequests}, domain.ErrRateLimited},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, domain.ErrNotFound},
		{
			"quota 403",
			&googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}},
			domain.ErrRateLimited,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, wrapAPIError(tt.err), tt.want)
		})
	}
}

func TestWrapAPIErrorPassThrough(t *testing.T) {
	plain403 := &googleapi.Error{Code: http.StatusForbidden}
	assert.Equal(t, plain403, wrapAPIError(plain403))
	assert.NoError(t, wrapAPIError(nil))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(domain.ErrRateLimited))
	assert.True(t, isRateLimited(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.False(t, isRateLimited(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isRateLimited(nil))
}

func TestIngestableFiltersListings(t *testing.T) {
	s := &Scanner{cfg: testMIMEConfig()}

	tests := []struct {
		name string
		file *driveapi.File
		want bool
	}{
		{"plain text", &driveapi.File{MimeType: "text/plain"}, true},
		{"google doc", &driveapi.File{MimeType: "application/vnd.google-apps.document"}, true},
		{"folder", &driveapi.File{MimeType: folderMIMEType}, false},
		{"image", &driveapi.File{MimeType: "image/png"}, false},
		{"video", &driveapi.File{MimeType: "video/mp4"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ingestable(tt.file))
		})
	}
}

func TestThrottleDrainsLimiterOnQuotaError(t *testing.T) {
	s := &Scanner{
		cfg:     testMIMEConfig(),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
	require.True(t, s.limiter.Allow())

	quotaErr := &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
	}
	err := s.throttle(quotaErr)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// The burst is spent, so the next request has to wait for a refill.
	assert.False(t, s.limiter.Allow())
}

func TestThrottleLeavesLimiterAloneOtherwise(t *testing.T) {
	s := &Scanner{
		cfg:     testMIMEConfig(),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}

	require.NoError(t, s.throttle(nil))
	assert.True(t, s.limiter.Allow())
}

func testMIMEConfig() *config.Config {
	return &config.Config{SupportedMIMETypes: config.DefaultSupportedMIMETypes}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}

	require.NoError(t, writeToken(path, tok))

	got, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
}

func TestReadTokenRejectsRefreshlessToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, writeToken(path, &oauth2.Token{AccessToken: "access-only"}))

	_, err := readToken(path)
	assert.Error(t, err)
}

func tokenEndpoint(t *testing.T, handler http.HandlerFunc) *oauth2.Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL + "/token"},
	}
}

func writeExpiredToken(t *testing.T, refreshToken string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, writeToken(path, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}))
	return path
}

func TestCachedSourceRejectsRevokedRefreshToken(t *testing.T) {
	oCfg := tokenEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "invalid_grant"}`)
	})
	path := writeExpiredToken(t, "revoked")

	// The revoked token must be rejected at probe time, not on the first
	// API call, so the caller can fall through to interactive auth.
	_, err := cachedSource(context.Background(), oCfg, path)
	require.Error(t, err)
}

func TestCachedSourceRefreshesAndSaves(t *testing.T) {
	oCfg := tokenEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600}`)
	})
	path := writeExpiredToken(t, "still-good")

	ts, err := cachedSource(context.Background(), oCfg, path)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	// The rotated token is persisted back to the cache file.
	saved, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "still-good", saved.RefreshToken)
}

func TestCachedSourceValidTokenSkipsRefresh(t *testing.T) {
	var hits atomic.Int32
	oCfg := tokenEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "unexpected refresh", http.StatusInternalServerError)
	})

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, writeToken(path, &oauth2.Token{
		AccessToken:  "live",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	ts, err := cachedSource(context.Background(), oCfg, path)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "live", tok.AccessToken)
	assert.Zero(t, hits.Load())
}
