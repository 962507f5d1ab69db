// Package settle turns terminal events into per-participant rewards.
//
// The coordinator bridges the registry's change hook and the worker
// pool: the hook enqueues, workers call Settle, and Settle drains the
// ledger, scores every participant, persists the result, and announces
// it. One settlement per event; the destructive ledger read makes a
// replay score everyone absent.
package settle

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/settle/internal/adapters/announce"
	"github.com/okian/settle/internal/adapters/mq/queue"
	"github.com/okian/settle/internal/adapters/mq/worker"
	"github.com/okian/settle/internal/adapters/repository"
	"github.com/okian/settle/internal/domain/commitment"
	"github.com/okian/settle/internal/domain/ledger"
	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/internal/domain/scoring"
	"github.com/okian/settle/pkg/logger"
	"github.com/okian/settle/pkg/metrics"
)

// truthValuesKey is the event metadata key carrying the ground-truth
// vector for continuous events. Its presence selects the vector rule.
const truthValuesKey = "truth_values"

// Registry is the slice of the event registry the coordinator touches.
type Registry interface {
	Evict(ctx context.Context, key model.EventKey) bool
}

// Coordinator routes terminal events through scoring.
type Coordinator struct {
	queue     queue.Queue
	ledger    ledger.Ledger
	binary    scoring.Rule
	vector    scoring.Rule
	book      *commitment.Book
	store     repository.Store
	publisher announce.Publisher
	registry  Registry

	workerCount int
	pool        *worker.Pool

	now func() time.Time
	log logger.Logger
}

// New creates a coordinator with configuration options.
func New(q queue.Queue, led ledger.Ledger, book *commitment.Book, store repository.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		queue:       q,
		ledger:      led,
		book:        book,
		store:       store,
		binary:      scoring.NewQuadraticRule(),
		vector:      scoring.NewRMSERule(),
		publisher:   &announce.NoopPublisher{},
		workerCount: runtime.NumCPU(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("settle")
	}
	return c
}

// Hook returns the registry change hook. Settled events are queued for
// the workers; discarded events have their forecasts dropped and are
// announced without rewards. The hook never blocks: a full queue is an
// error logged and counted, and the event stays evictable upstream.
func (c *Coordinator) Hook() func(model.Event) {
	return func(ev model.Event) {
		ctx := context.Background()
		switch ev.Status {
		case model.StatusSettled:
			if !c.queue.Enqueue(ctx, ev) {
				c.log.Error(ctx, "settlement queue refused event",
					logger.String("key", ev.Key.String()),
				)
			}
		case model.StatusDiscarded:
			c.discard(ctx, ev)
		default:
		}
	}
}

// Start launches the settlement workers. They stop when ctx is
// cancelled or the queue closes.
func (c *Coordinator) Start(ctx context.Context) {
	c.pool = worker.NewPool(c.workerCount, c.queue, c)
	c.pool.Start(ctx)
}

// Shutdown closes the queue and waits for the workers to drain it.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Shutdown(ctx)
}

// Settle computes rewards for one settled event. Scoring failures for
// one participant zero that participant and never abort the rest.
func (c *Coordinator) Settle(ctx context.Context, ev model.Event) error {
	if ev.Status != model.StatusSettled {
		return fmt.Errorf("%w: %s is %s", ErrNotSettled, ev.Key.String(), ev.Status.String())
	}

	truth, rule := c.truth(ev)
	participants := c.participants(ctx, ev)

	rewards := make(map[string]float64, len(participants))
	for _, id := range participants {
		in := c.input(ctx, id, ev)
		score, err := rule.Score(ctx, in, truth)
		if err != nil {
			c.log.Warn(ctx, "scoring failed, rewarding zero",
				logger.String("key", ev.Key.String()),
				logger.String("participant", id),
				logger.Error(err),
			)
			score = 0
		}
		rewards[id] = score
		metrics.ObserveReward(score)
	}

	// The binary path consumed its histories via Final and the vector
	// path its reveals via Take; sweep both stores so nothing for the
	// event outlives its one settlement.
	c.ledger.Drop(ctx, ev.Key)
	c.book.Drop(ctx, ev.Key)

	settledAt := c.now()
	if err := c.store.Put(ctx, repository.Result{
		Event:     ev.Key,
		Answer:    ev.Answer,
		Rewards:   rewards,
		SettledAt: settledAt,
	}); err != nil {
		return fmt.Errorf("store settlement result for %s: %w", ev.Key.String(), err)
	}

	if err := c.publisher.Publish(ctx, announce.TopicEventSettled, announce.Settled{
		EventKey:  ev.Key.String(),
		Answer:    ev.Answer.String(),
		Rewards:   rewards,
		SettledAt: settledAt.Format(time.RFC3339),
	}); err != nil {
		// Announcements are best effort; the result is already stored.
		c.log.Warn(ctx, "settlement announcement failed",
			logger.String("key", ev.Key.String()),
			logger.Error(err),
		)
	}

	if c.registry != nil {
		c.registry.Evict(ctx, ev.Key)
	}

	c.log.Info(ctx, "event settled",
		logger.String("key", ev.Key.String()),
		logger.String("answer", ev.Answer.String()),
		logger.Int("participants", len(rewards)),
	)
	return nil
}

// discard drops forecasts and commitments for an event that will never
// settle.
func (c *Coordinator) discard(ctx context.Context, ev model.Event) {
	c.ledger.Drop(ctx, ev.Key)
	c.book.Drop(ctx, ev.Key)

	if err := c.publisher.Publish(ctx, announce.TopicEventDiscarded, announce.Discarded{
		EventKey: ev.Key.String(),
	}); err != nil {
		c.log.Warn(ctx, "discard announcement failed",
			logger.String("key", ev.Key.String()),
			logger.Error(err),
		)
	}

	if c.registry != nil {
		c.registry.Evict(ctx, ev.Key)
	}

	c.log.Info(ctx, "event discarded", logger.String("key", ev.Key.String()))
}

// truth derives the ground truth and picks the matching rule. A
// ground-truth vector in the event metadata selects the vector rule;
// everything else scores as a binary market.
func (c *Coordinator) truth(ev model.Event) (scoring.Truth, scoring.Rule) {
	if values, ok := truthValues(ev.Metadata); ok {
		return scoring.Truth{Values: values}, c.vector
	}
	return scoring.Truth{Outcome: ev.Answer}, c.binary
}

// participants enumerates everyone holding an answer for the event.
// Vector participants live in the commitment book, not the forecast
// ledger, so the two sets are unioned: a reveal-only participant still
// scores, and a forecast-only one still scores absent.
func (c *Coordinator) participants(ctx context.Context, ev model.Event) []string {
	ids := c.ledger.Participants(ctx, ev.Key)
	if _, ok := truthValues(ev.Metadata); !ok {
		return ids
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range c.book.Revealers(ctx, ev.Key) {
		if _, dup := seen[id]; !dup {
			ids = append(ids, id)
		}
	}
	return ids
}

// input assembles one participant's accepted answer for the event.
func (c *Coordinator) input(ctx context.Context, participantID string, ev model.Event) scoring.Input {
	if _, ok := truthValues(ev.Metadata); ok {
		values, verified := c.book.Take(ctx, participantID, ev.Key)
		return scoring.Input{Values: values, Verified: verified}
	}

	value, found := c.ledger.Final(ctx, participantID, ev.Key, ev.LastUpdatedAt)
	if !found {
		return scoring.Input{}
	}
	return scoring.Input{Answer: &value}
}

// truthValues extracts the ground-truth vector from event metadata.
// JSON decoding hands vectors over as []any, so both shapes are
// accepted.
func truthValues(meta map[string]any) ([]float64, bool) {
	raw, ok := meta[truthValuesKey]
	if !ok {
		return nil, false
	}

	switch v := raw.(type) {
	case []float64:
		return v, len(v) > 0
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}
