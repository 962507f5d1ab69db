package reconcile

import (
	"time"

	"github.com/okian/settle/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithPollInterval sets the bulk candidate sync cadence.
func WithPollInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithRefreshDelay sets the sleep between full passes over the
// pending set.
func WithRefreshDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.refreshDelay = d
		}
	}
}

// WithRequestTimeout bounds each provider round-trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.requestTimeout = d
		}
	}
}

// WithRetryMaxElapsed bounds the total time spent retrying one
// round-trip before it is abandoned until the next cycle.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.retry.maxElapsed = d
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}
