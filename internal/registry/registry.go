// Package registry owns the set of known events and their lifecycle
// state, reconciled against polled provider data.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/pkg/logger"
	"github.com/okian/settle/pkg/metrics"
)

// ChangeHook receives an event snapshot after an update commits.
// Hooks run synchronously on the updating goroutine and are
// fire-and-forget: a failing or slow hook is the hook's problem, so
// implementations must not block.
type ChangeHook func(model.Event)

// Registry is the process-wide event map. It is created empty, filled
// by registration, and mutated only through Register/Update so the
// lifecycle invariants hold: identity is immutable, Settled/Discarded
// are terminal, and an answer exists only on settled events.
type Registry struct {
	mu     sync.RWMutex
	events map[string]*model.Event

	hookMu sync.RWMutex
	hook   ChangeHook

	now func() time.Time
	log logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger for the registry.
func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		events: make(map[string]*model.Event),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("registry")
	}
	return r
}

// Register inserts the event if its key is unseen and reports whether
// this was a fresh insert. For a known key it behaves exactly as
// Update, so a polling pass can push every candidate through one
// idempotent entry point without tracking which case applies.
func (r *Registry) Register(ctx context.Context, ev model.Event) bool {
	r.mu.Lock()
	if _, exists := r.events[ev.Key.String()]; exists {
		// The lock stays held through the update so a concurrent
		// eviction cannot slip between the existence check and the
		// overwrite.
		snapshot, ok := r.updateLocked(ctx, ev)
		r.mu.Unlock()
		if ok {
			r.committed(snapshot)
		}
		return false
	}

	stored := normalize(ev, r.now())
	r.events[ev.Key.String()] = &stored
	r.mu.Unlock()

	metrics.RecordEventRegistered()
	r.log.Debug(ctx, "event registered",
		logger.String("key", ev.Key.String()),
		logger.String("status", ev.Status.String()),
	)
	return true
}

// Update overwrites the mutable fields of a known event and fires the
// change hook with the new snapshot. Updating an unknown key or a
// terminal event fails and logs; it never panics the caller.
func (r *Registry) Update(ctx context.Context, ev model.Event) bool {
	r.mu.Lock()
	snapshot, ok := r.updateLocked(ctx, ev)
	r.mu.Unlock()
	if !ok {
		return false
	}

	r.committed(snapshot)
	return true
}

// updateLocked applies an update to a known event. Caller holds r.mu.
func (r *Registry) updateLocked(ctx context.Context, ev model.Event) (model.Event, bool) {
	current, exists := r.events[ev.Key.String()]
	if !exists {
		r.log.Error(ctx, "update for event missing from registry",
			logger.String("key", ev.Key.String()),
		)
		return model.Event{}, false
	}
	if current.Status.Terminal() {
		r.log.Warn(ctx, "ignoring update to terminal event",
			logger.String("key", ev.Key.String()),
			logger.String("status", current.Status.String()),
		)
		return model.Event{}, false
	}

	stored := normalize(ev, r.now())
	r.events[ev.Key.String()] = &stored
	return stored, true
}

// committed records metrics and fires the change hook for an update
// that took effect. Runs outside r.mu so a slow hook never stalls
// readers.
func (r *Registry) committed(snapshot model.Event) {
	if snapshot.Status == model.StatusSettled {
		metrics.RecordEventSettled()
	}

	r.hookMu.RLock()
	hook := r.hook
	r.hookMu.RUnlock()
	if hook != nil {
		hook(snapshot)
	}
}

// Get returns a copy of the event, if known.
func (r *Registry) Get(ctx context.Context, key model.EventKey) (model.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[key.String()]
	if !ok {
		return model.Event{}, false
	}
	return *ev, true
}

// OnChange installs the process-wide change hook. Later calls replace
// the previous hook.
func (r *Registry) OnChange(hook ChangeHook) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.hook = hook
}

// Pending returns copies of all events still awaiting resolution.
func (r *Registry) Pending(ctx context.Context) []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Event, 0, len(r.events))
	for _, ev := range r.events {
		if ev.Status == model.StatusPending {
			out = append(out, *ev)
		}
	}
	return out
}

// List returns copies of every tracked event.
func (r *Registry) List(ctx context.Context) []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Event, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, *ev)
	}
	return out
}

// Evict removes a terminal event after its rewards were computed.
// Evicting a live event is refused; pending events still settle.
func (r *Registry) Evict(ctx context.Context, key model.EventKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[key.String()]
	if !ok {
		return false
	}
	if !ev.Status.Terminal() {
		r.log.Warn(ctx, "refusing to evict live event", logger.String("key", key.String()))
		return false
	}
	delete(r.events, key.String())
	return true
}

// Len returns the number of tracked events.
func (r *Registry) Len(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// normalize stamps the update time and keeps the answer consistent
// with the status: only settled events carry one.
func normalize(ev model.Event, now time.Time) model.Event {
	ev.LastUpdatedAt = now
	if ev.Status != model.StatusSettled {
		ev.Answer = model.OutcomeUnknown
	}
	return ev
}
