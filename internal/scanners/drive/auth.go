package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"

	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Environment variable carrying service-account JSON inline, for
// container deployments without a mounted credentials file.
const credentialsEnv = "GOOGLE_DRIVE_CREDENTIALS_JSON"

// How long the interactive flow waits for the browser callback.
const authCallbackTimeout = 5 * time.Minute

// AuthOptions controls how a token source is obtained.
type AuthOptions struct {
	// Interactive permits the browser-based OAuth flow. It must be false
	// for unattended daemon runs: a headless process cannot complete a
	// browser redirect, and failing fast beats hanging forever.
	Interactive bool
}

// NewTokenSource resolves Drive credentials by probing strategies in
// priority order: service-account JSON, a cached refresh token, then the
// interactive browser flow. Every failure falls through to the next
// strategy; when all are exhausted the error is domain.ErrAuthRequired.
func NewTokenSource(ctx context.Context, cfg *config.Config, opts AuthOptions) (oauth2.TokenSource, error) {
	if ts, err := serviceAccountSource(ctx, cfg); err != nil {
		logger.Debug("[drive] service account auth unavailable: %v", err)
	} else if ts != nil {
		logger.Info("[drive] authenticated with service account")
		return ts, nil
	}

	if ts, err := cachedTokenSource(ctx, cfg); err != nil {
		logger.Debug("[drive] cached token unavailable: %v", err)
	} else if ts != nil {
		logger.Info("[drive] authenticated with cached token")
		return ts, nil
	}

	if !opts.Interactive {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRequired, domain.ErrInteractiveAuthUnavailable)
	}

	ts, err := interactiveSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: interactive flow failed: %v", domain.ErrAuthRequired, err)
	}
	logger.Info("[drive] authenticated interactively")
	return ts, nil
}

// serviceAccountSource builds a token source from service-account JSON in
// the environment or the configured credentials file. Returns (nil, err)
// when no service-account material is present.
func serviceAccountSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	data := []byte(os.Getenv(credentialsEnv))
	if len(data) == 0 && cfg.Drive.CredentialsPath != "" {
		var err error
		data, err = os.ReadFile(cfg.Drive.CredentialsPath)
		if err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no credentials configured")
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if probe.Type != "service_account" {
		return nil, fmt.Errorf("credentials are not a service account key")
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, driveapi.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}
	return jwtCfg.TokenSource(ctx), nil
}

// cachedTokenSource builds a refreshing token source from a previously
// saved OAuth token. The refreshed token is written back whenever it
// rotates, so the cache stays warm across restarts.
func cachedTokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	oCfg, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}
	return cachedSource(ctx, oCfg, tokenPath(cfg))
}

// cachedSource loads the token cached at path and proves it still works
// by forcing one Token call before handing the source out. A revoked or
// stale refresh token fails here, at probe time, so NewTokenSource can
// fall through to interactive re-authentication instead of surfacing
// auth errors on the first API call of every cycle.
func cachedSource(ctx context.Context, oCfg *oauth2.Config, path string) (oauth2.TokenSource, error) {
	tok, err := readToken(path)
	if err != nil {
		return nil, err
	}

	src := &savingTokenSource{
		path:  path,
		last:  tok,
		inner: oCfg.TokenSource(ctx, tok),
	}
	if _, err := src.Token(); err != nil {
		return nil, fmt.Errorf("refreshing cached token: %w", err)
	}
	return src, nil
}

// interactiveSource runs the browser OAuth flow against a local callback
// server and caches the resulting token.
func interactiveSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	oCfg, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}

	srv := newCallbackServer(0)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	defer srv.Stop()

	oCfg.RedirectURL = srv.RedirectURI()
	url := oCfg.AuthCodeURL(srv.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	logger.Info("[drive] open this URL to authorize access:\n%s", url)
	if err := openBrowser(url); err != nil {
		logger.Debug("[drive] could not open browser: %v", err)
	}

	code, err := srv.WaitForCode(ctx, authCallbackTimeout)
	if err != nil {
		return nil, err
	}

	tok, err := oCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	if err := writeToken(tokenPath(cfg), tok); err != nil {
		logger.Warn("[drive] could not cache token: %v", err)
	}

	return &savingTokenSource{
		path:  tokenPath(cfg),
		last:  tok,
		inner: oCfg.TokenSource(ctx, tok),
	}, nil
}

// oauthConfig parses the OAuth client secrets file.
func oauthConfig(cfg *config.Config) (*oauth2.Config, error) {
	if cfg.Drive.CredentialsPath == "" {
		return nil, fmt.Errorf("no credentials path configured")
	}
	data, err := os.ReadFile(cfg.Drive.CredentialsPath)
	if err != nil {
		return nil, err
	}
	oCfg, err := google.ConfigFromJSON(data, driveapi.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets: %w", err)
	}
	return oCfg, nil
}

func tokenPath(cfg *config.Config) string {
	if cfg.Drive.TokenPath != "" {
		return cfg.Drive.TokenPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "token.json"
	}
	return filepath.Join(home, ".ragpipe", "token.json")
}

func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("parsing cached token: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("cached token has no refresh token")
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// savingTokenSource persists rotated tokens back to the cache file.
type savingTokenSource struct {
	path  string
	last  *oauth2.Token
	inner oauth2.TokenSource
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.last = tok
		if err := writeToken(s.path, tok); err != nil {
			logger.Debug("[drive] failed to persist refreshed token: %v", err)
		}
	}
	return tok, nil
}
