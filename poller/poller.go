// Package poller implements the client side of the polling contract: each
// viewer keeps an explicit last-observed snapshot and diffs against its own
// previous poll, never trusting a "changed" flag from the server.
// Consistency is eventual, bounded by the poll interval.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrSuspended is returned when a run of consecutive poll failures exhausts
// the budget. The poller stops rather than retrying forever against a dead
// endpoint; a fresh Run (the next full mount/reload) starts clean.
var ErrSuspended = errors.New("polling suspended after repeated failures")

type Config struct {
	Interval      time.Duration
	FailureBudget int // consecutive failures tolerated before suspending
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.FailureBudget <= 0 {
		c.FailureBudget = 5
	}
	return c
}

// Run invokes step immediately (so viewers establish their baseline without
// waiting a full interval) and then on every tick until the context is
// cancelled or the failure budget is exhausted. A transient step failure
// never crashes the loop; only the budget ends it.
func Run(ctx context.Context, cfg Config, log *slog.Logger, step func(context.Context) error) error {
	cfg = cfg.withDefaults()

	failures := 0
	poll := func() error {
		if err := step(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			log.Warn("poll failed", "consecutive_failures", failures, "error", err)
			if failures >= cfg.FailureBudget {
				return ErrSuspended
			}
			return nil
		}
		failures = 0
		return nil
	}

	if err := poll(); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := poll(); err != nil {
				return err
			}
		}
	}
}
