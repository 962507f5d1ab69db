package settle

import (
	"time"

	"github.com/okian/settle/internal/adapters/announce"
	"github.com/okian/settle/internal/domain/scoring"
	"github.com/okian/settle/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithBinaryRule replaces the rule used for binary markets.
func WithBinaryRule(rule scoring.Rule) Option {
	return func(c *Coordinator) {
		if rule != nil {
			c.binary = rule
		}
	}
}

// WithVectorRule replaces the rule used for vector events.
func WithVectorRule(rule scoring.Rule) Option {
	return func(c *Coordinator) {
		if rule != nil {
			c.vector = rule
		}
	}
}

// WithPublisher sets the announcement publisher.
func WithPublisher(p announce.Publisher) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithRegistry lets settlement evict terminal events once rewards are
// stored.
func WithRegistry(r Registry) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithWorkerCount sets the settlement worker count.
func WithWorkerCount(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger for the coordinator.
func WithLogger(log logger.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}
