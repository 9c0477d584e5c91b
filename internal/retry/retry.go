// Package retry provides a bounded retry-with-backoff helper shared by all
// network-calling components. Per-file ingestion failures are deliberately
// not retried here; they are deferred to the next cycle by the pipeline.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// DefaultAttempts is the default number of attempts including the first.
const DefaultAttempts = 3

// DefaultInitialDelay is the starting backoff delay.
const DefaultInitialDelay = 500 * time.Millisecond

// Config parameterises a retry loop.
type Config struct {
	// Attempts is the total number of attempts, including the first.
	Attempts uint64
	// InitialDelay is the first backoff interval; subsequent intervals
	// grow exponentially.
	InitialDelay time.Duration
}

// DefaultConfig returns the shared default retry configuration.
func DefaultConfig() Config {
	return Config{
		Attempts:     DefaultAttempts,
		InitialDelay: DefaultInitialDelay,
	}
}

// Do runs op with bounded exponential backoff. It stops early when ctx is
// cancelled and returns the last error when attempts are exhausted.
func Do(ctx context.Context, cfg Config, name string, op func() error) error {
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil && attempt < int(cfg.Attempts) {
			logger.Warn("%s failed (attempt %d/%d): %v", name, attempt, cfg.Attempts, err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, cfg.Attempts-1), ctx))
}

// Permanent marks an error as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
