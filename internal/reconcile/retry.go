package reconcile

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/settle/pkg/logger"
)

// retryPolicy wraps a network round-trip in exponential backoff with a
// bound on total elapsed time. Exhaustion returns the last error; the
// caller defers to its next scheduled cycle instead of escalating.
type retryPolicy struct {
	initial    time.Duration
	max        time.Duration
	factor     float64
	jitter     float64
	maxElapsed time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		initial:    time.Second,
		max:        30 * time.Second,
		factor:     2.0,
		jitter:     0.2,
		maxElapsed: 5 * time.Minute,
	}
}

func (p retryPolicy) do(ctx context.Context, log logger.Logger, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	wait := p.initial

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if time.Since(start)+wait > p.maxElapsed {
			return err
		}

		sleep := wait + time.Duration(float64(wait)*p.jitter*(rand.Float64()*2-1)) //nolint:gosec // jitter needs no crypto entropy
		log.Debug(ctx, "retrying after backoff",
			logger.String("op", op),
			logger.Any("wait", sleep),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(sleep):
		}

		wait = time.Duration(float64(wait) * p.factor)
		if wait > p.max {
			wait = p.max
		}
	}
}
