// Package watcher re-runs a job on a fixed interval until cancelled.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job is one unit of periodic work
type Job func(ctx context.Context) error

// Watcher runs a job immediately and then once per interval
type Watcher struct {
	interval    time.Duration
	job         Job
	maxFailures int
	logger      zerolog.Logger
}

// New creates a new watcher
func New(interval time.Duration, job Job) *Watcher {
	return &Watcher{
		interval: interval,
		job:      job,
		logger:   zerolog.Nop(),
	}
}

// WithMaxFailures stops the watch after n consecutive failures. 0 never stops.
func (w *Watcher) WithMaxFailures(n int) *Watcher {
	w.maxFailures = n
	return w
}

// WithLogger sets the watcher logger
func (w *Watcher) WithLogger(logger zerolog.Logger) *Watcher {
	w.logger = logger
	return w
}

// Watch blocks until the context is cancelled or the failure limit is hit.
// Runs never overlap; a run longer than the interval delays the next one.
func (w *Watcher) Watch(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", w.interval)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	failures := 0
	for {
		if err := w.job(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			w.logger.Warn().Err(err).Int("failures", failures).Msg("watch run failed")
			if w.maxFailures > 0 && failures >= w.maxFailures {
				return fmt.Errorf("giving up after %d consecutive failures: %w", failures, err)
			}
		} else {
			failures = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
