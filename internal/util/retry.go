package util

import (
	"context"
	"log/slog"
	"time"
)

// Default retry parameters for bar-data download calls. Three attempts a
// second apart ride out the transient 429/5xx responses the market-data
// endpoints return under load without stalling a multi-symbol fetch.
const (
	FetchAttempts  = 3
	FetchBaseDelay = time.Second
)

// Retry calls fn up to maxAttempts times with exponential backoff starting at
// baseDelay. It returns nil on the first successful call, or the last error
// if all attempts fail. Cancellation is honoured between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxAttempts-1 {
			slog.Debug("retrying after failure",
				"attempt", attempt+1,
				"of", maxAttempts,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
