// Package retry wraps transient operations (webhook posts, feed fetches)
// with bounded, context-aware retries.
package retry

import (
	"context"
	"fmt"
	"time"
)

// maxDelay caps the exponential growth.
const maxDelay = time.Minute

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // double the delay after each failed attempt
}

// Do runs fn until it succeeds, the attempts run out, or ctx is cancelled.
func Do(ctx context.Context, config Config, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	delay := config.Delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt == config.MaxAttempts {
			return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if config.Backoff {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}
}
