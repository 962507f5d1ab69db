// Package app provides the core business service that implements the
// dependencies required by the HTTP API and owns the background loops.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/settle/internal/adapters/announce"
	eventqueue "github.com/okian/settle/internal/adapters/mq/queue"
	"github.com/okian/settle/internal/adapters/provider/polymarket"
	"github.com/okian/settle/internal/adapters/repository"
	"github.com/okian/settle/internal/config"
	"github.com/okian/settle/internal/domain/commitment"
	"github.com/okian/settle/internal/domain/ledger"
	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/internal/domain/scoring"
	"github.com/okian/settle/internal/reconcile"
	"github.com/okian/settle/internal/registry"
	"github.com/okian/settle/internal/settle"
	"github.com/okian/settle/pkg/logger"
	"github.com/okian/settle/pkg/metrics"
)

// Service wires the registry, ledger, commitment book, settlement
// pipeline, and reconciliation loop into one process.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	// Core components
	registry    *registry.Registry
	forecasts   *ledger.InMemoryLedger
	book        *commitment.Book
	queue       eventqueue.Queue
	store       repository.Store
	coordinator *settle.Coordinator
	loop        *reconcile.Loop
	stream      *polymarket.Stream
	publisher   announce.Publisher

	// source overrides the Polymarket client, for tests.
	source reconcile.Source

	// round is the commitment round counter, advanced by the round
	// clock goroutine.
	round atomic.Uint64

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource overrides the market source, for tests.
func WithSource(src reconcile.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithPublisher overrides the announcement publisher.
func WithPublisher(p announce.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service from configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting settlement engine...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.registry = registry.New()
	s.forecasts = ledger.NewInMemoryLedger(
		ledger.WithCutoff(time.Duration(s.cfg.CutoffSeconds) * time.Second),
	)
	s.book = commitment.NewBook(
		commitment.WithRevealWindow(s.cfg.RevealWindowRounds),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.QueueSize),
	)
	s.store = repository.NewMemoryStore()

	if s.publisher == nil {
		s.publisher = s.buildPublisher(ctx)
	}

	policy, _ := scoring.ParseAbsentPolicy(s.cfg.AbsentPolicy)
	s.coordinator = settle.New(s.queue, s.forecasts, s.book, s.store,
		settle.WithBinaryRule(scoring.NewQuadraticRule(
			scoring.WithAbsentPolicy(policy),
			scoring.WithFloorCeiling(s.cfg.FloorCeiling),
		)),
		settle.WithVectorRule(scoring.NewRMSERule(
			scoring.WithScale(s.cfg.RMSEScale),
		)),
		settle.WithPublisher(s.publisher),
		settle.WithRegistry(s.registry),
		settle.WithWorkerCount(s.cfg.WorkerCount),
	)
	s.registry.OnChange(s.coordinator.Hook())
	s.coordinator.Start(runCtx)

	if s.source == nil {
		s.source = polymarket.New(
			polymarket.WithBaseURL(s.cfg.ProviderBaseURL),
			polymarket.WithMaxPages(s.cfg.ProviderMaxPages),
		)
	}
	s.loop = reconcile.New(s.source, s.registry,
		reconcile.WithPollInterval(time.Duration(s.cfg.PollIntervalSeconds)*time.Second),
		reconcile.WithRefreshDelay(time.Duration(s.cfg.RefreshDelaySeconds)*time.Second),
		reconcile.WithRequestTimeout(time.Duration(s.cfg.RequestTimeoutSeconds)*time.Second),
		reconcile.WithRetryMaxElapsed(time.Duration(s.cfg.RetryMaxElapsedSeconds)*time.Second),
	)

	if err := s.loadCheckpoint(ctx); err != nil {
		s.logger.Warn(ctx, "checkpoint load failed, starting empty", logger.Error(err))
	}

	go s.loop.Run(runCtx)
	go s.runRoundClock(runCtx)
	go s.runCheckpoints(runCtx)

	if s.cfg.StreamEnabled && s.cfg.ProviderWSURL != "" {
		s.stream = polymarket.NewStream(s.cfg.ProviderWSURL, s.loop)
		go s.stream.Run(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "settlement engine started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.Int("cutoff_seconds", s.cfg.CutoffSeconds),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping settlement engine...")

	if err := s.saveCheckpoint(ctx); err != nil {
		s.logger.Warn(ctx, "final checkpoint failed", logger.Error(err))
	}

	s.cancel()
	if err := s.coordinator.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "coordinator shutdown incomplete", logger.Error(err))
	}
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn(ctx, "publisher close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "settlement engine stopped")
}

// buildPublisher connects to NATS when configured, otherwise no-ops.
func (s *Service) buildPublisher(ctx context.Context) announce.Publisher {
	if s.cfg.NATSURL == "" {
		return &announce.NoopPublisher{}
	}
	pub, err := announce.NewNATSPublisher(s.cfg.NATSURL)
	if err != nil {
		s.logger.Warn(ctx, "NATS unavailable, announcements disabled", logger.Error(err))
		return &announce.NoopPublisher{}
	}
	return pub
}

// runRoundClock advances the commitment round on a fixed cadence and
// expires commitments that outlived the reveal window.
func (s *Service) runRoundClock(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.RoundSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			round := s.round.Add(1)
			if n := s.book.Expire(ctx, round); n > 0 {
				s.logger.Debug(ctx, "expired stale commitments",
					logger.Int("count", n),
					logger.Any("round", round),
				)
			}
		}
	}
}

// SubmitForecast records one participant's probability for an event.
// Only events the registry still tracks as pending accept forecasts.
func (s *Service) SubmitForecast(ctx context.Context, participantID string, key model.EventKey, value float64) error {
	ev, ok := s.registry.Get(ctx, key)
	if !ok {
		return ErrUnknownEvent
	}
	if ev.Status != model.StatusPending {
		return ErrEventClosed
	}

	s.forecasts.Insert(ctx, participantID, key, time.Now(), value)
	metrics.UpdateLedgerBuckets(s.forecasts.Size(ctx))
	return nil
}

// Commit records a base64 digest for a future vector reveal.
func (s *Service) Commit(ctx context.Context, participantID string, key model.EventKey, digestB64 string) error {
	if _, ok := s.registry.Get(ctx, key); !ok {
		return ErrUnknownEvent
	}
	digest, ok := commitment.Decode(digestB64)
	if !ok {
		return ErrBadDigest
	}

	s.book.Commit(ctx, participantID, key, digest, s.round.Load())
	metrics.RecordCommitment()
	return nil
}

// Reveal checks values against the participant's outstanding
// commitment and reports whether they were accepted.
func (s *Service) Reveal(ctx context.Context, participantID string, key model.EventKey, values []float64) (bool, error) {
	if _, ok := s.registry.Get(ctx, key); !ok {
		return false, ErrUnknownEvent
	}

	accepted := s.book.Reveal(ctx, participantID, key, values, s.round.Load())
	if accepted {
		metrics.RecordRevealAccepted()
	} else {
		metrics.RecordRevealRejected()
	}
	return accepted, nil
}

// Event returns one tracked event.
func (s *Service) Event(ctx context.Context, key model.EventKey) (model.Event, bool) {
	return s.registry.Get(ctx, key)
}

// Events returns every tracked event.
func (s *Service) Events(ctx context.Context) []model.Event {
	return s.registry.List(ctx)
}

// Rewards returns the settlement result for one event.
func (s *Service) Rewards(ctx context.Context, key model.EventKey) (repository.Result, error) {
	return s.store.Get(ctx, key)
}

// RecentRewards returns up to limit settlement results, newest first.
func (s *Service) RecentRewards(ctx context.Context, limit int) ([]repository.Result, error) {
	return s.store.Recent(ctx, limit)
}

// Round returns the current commitment round.
func (s *Service) Round() uint64 {
	return s.round.Load()
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.cfg.WorkerCount,
		"round":        s.round.Load(),
	}
	if s.started {
		stats["tracked_events"] = s.registry.Len(ctx)
		stats["pending_events"] = len(s.registry.Pending(ctx))
		stats["forecast_buckets"] = s.forecasts.Size(ctx)
		stats["open_commitments"] = s.book.Size(ctx)
		stats["queued_settlements"] = s.queue.Len(ctx)
		stats["settled_results"] = s.store.Count(ctx)
	}
	return stats
}
