// Package retry implements a small bounded retry helper with exponential
// backoff. Retries are never infinite, the caller always sets (or inherits) a
// small bound.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config is the configuration for a retry run.
type Config struct {
	// Times is the number of retries after the first attempt. 0 means the
	// function runs exactly once.
	Times int
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Multiplier scales the delay after every retry. Defaults to 2.
	Multiplier float64
	// MaxDelay caps the backoff. Defaults to 1 minute.
	MaxDelay time.Duration
}

func (c *Config) defaults() {
	if c.Times < 0 {
		c.Times = 0
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Minute
	}
}

// Do runs fn until it succeeds, the retry budget is spent, or the context is
// cancelled. The last error is returned.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg.defaults()

	var err error
	delay := cfg.Delay
	for attempt := 0; attempt <= cfg.Times; attempt++ {
		if attempt > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return err
		}
	}

	return err
}
