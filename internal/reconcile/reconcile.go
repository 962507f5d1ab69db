// Package reconcile drives the event registry from a polled external
// market source: a bulk candidate sync on a cadence plus a per-event
// refresh pass over everything still pending.
package reconcile

import (
	"context"
	"time"

	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/pkg/logger"
	"github.com/okian/settle/pkg/metrics"
)

// Default loop configuration constants.
const (
	defaultPollInterval   = 60 * time.Second
	defaultRefreshDelay   = 5 * time.Second
	defaultRequestTimeout = 30 * time.Second
	nudgeBuffer           = 256
)

// Source is the capability a market provider must expose. Providers
// own their pagination cursors and schema parsing; the loop only sees
// normalized events.
type Source interface {
	// Name identifies the provider namespace for event keys.
	Name() string

	// Candidates lists not-yet-started events with live outcomes,
	// walking the provider's pagination to exhaustion.
	Candidates(ctx context.Context, since time.Time) ([]model.Event, error)

	// Fetch re-reads a single event by its provider-local id.
	Fetch(ctx context.Context, id string) (model.Event, error)
}

// Registry is the slice of the event registry the loop writes to.
type Registry interface {
	Register(ctx context.Context, ev model.Event) bool
	Update(ctx context.Context, ev model.Event) bool
	Pending(ctx context.Context) []model.Event
}

// Loop owns the two reconciliation goroutines. Cancelling the context
// stops scheduling further network rounds; in-flight registry writes
// always complete, so cancellation never corrupts state.
type Loop struct {
	source   Source
	registry Registry

	pollInterval   time.Duration
	refreshDelay   time.Duration
	requestTimeout time.Duration
	retry          retryPolicy

	// nudge carries event ids that deserve an immediate refresh,
	// e.g. from a provider stream signalling a status flap.
	nudge chan string

	log logger.Logger
}

// New creates a reconciliation loop with configuration options.
func New(source Source, registry Registry, opts ...Option) *Loop {
	l := &Loop{
		source:         source,
		registry:       registry,
		pollInterval:   defaultPollInterval,
		refreshDelay:   defaultRefreshDelay,
		requestTimeout: defaultRequestTimeout,
		retry:          defaultRetryPolicy(),
		nudge:          make(chan string, nudgeBuffer),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("reconcile")
	}
	return l
}

// Run blocks until ctx is cancelled, running the bulk sync and the
// pending refresh concurrently.
func (l *Loop) Run(ctx context.Context) {
	go l.runSync(ctx)
	go l.runRefresh(ctx)
	<-ctx.Done()
}

// Nudge requests an out-of-band refresh for one event id. Dropping on
// a full buffer is fine: the scheduled refresh will catch up.
func (l *Loop) Nudge(id string) {
	select {
	case l.nudge <- id:
	default:
	}
}

func (l *Loop) runSync(ctx context.Context) {
	// First pass immediately, then on the cadence.
	l.syncOnce(ctx)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.syncOnce(ctx)
		}
	}
}

// syncOnce fetches one page-walk of candidates and registers each.
// Failures are deferred to the next cycle, never escalated.
func (l *Loop) syncOnce(ctx context.Context) {
	start := time.Now()

	var candidates []model.Event
	err := l.retry.do(ctx, l.log, "sync candidates", func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, l.requestTimeout)
		defer cancel()
		var err error
		candidates, err = l.source.Candidates(rctx, start)
		return err
	})
	if err != nil {
		metrics.RecordReconcileError()
		l.log.Warn(ctx, "candidate sync abandoned until next cycle",
			logger.String("provider", l.source.Name()),
			logger.Error(err),
		)
		return
	}

	var fresh int
	for _, ev := range candidates {
		if ev.Key.ID == "" {
			l.log.Warn(ctx, "candidate missing id, skipping",
				logger.String("provider", l.source.Name()),
				logger.String("description", ev.Description),
			)
			continue
		}
		if l.registry.Register(ctx, ev) {
			fresh++
		}
	}

	metrics.RecordReconcileRound()
	metrics.RecordReconcileLatency(time.Since(start).Seconds())
	metrics.UpdatePendingEvents(len(l.registry.Pending(ctx)))
	l.log.Info(ctx, "candidate sync complete",
		logger.String("provider", l.source.Name()),
		logger.Int("candidates", len(candidates)),
		logger.Int("fresh", fresh),
	)
}

func (l *Loop) runRefresh(ctx context.Context) {
	for {
		l.refreshOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case id := <-l.nudge:
			l.refreshOne(ctx, id)
		case <-time.After(l.refreshDelay):
		}
	}
}

// refreshOnce re-fetches every pending event. A failure on one event
// never aborts the rest of the pass.
func (l *Loop) refreshOnce(ctx context.Context) {
	for _, ev := range l.registry.Pending(ctx) {
		if ctx.Err() != nil {
			return
		}
		l.refreshOne(ctx, ev.Key.ID)
	}
}

func (l *Loop) refreshOne(ctx context.Context, id string) {
	var fresh model.Event
	err := l.retry.do(ctx, l.log, "fetch event", func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, l.requestTimeout)
		defer cancel()
		var err error
		fresh, err = l.source.Fetch(rctx, id)
		return err
	})
	if err != nil {
		metrics.RecordReconcileError()
		l.log.Warn(ctx, "event refresh abandoned until next cycle",
			logger.String("provider", l.source.Name()),
			logger.String("id", id),
			logger.Error(err),
		)
		return
	}

	if fresh.Status == model.StatusDiscarded {
		metrics.RecordEventDiscarded()
	}
	l.registry.Update(ctx, fresh)
}
