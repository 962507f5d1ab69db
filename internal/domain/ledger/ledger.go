// Package ledger stores time-ordered forecast histories per
// (participant, event) pair and resolves the final eligible answer.
//
// The ledger is the defense against outcome sniping: an answer only
// counts once it has aged past a configurable cutoff, so a forecast
// submitted an instant before settlement is ignored in favor of the
// newest one that had time to be trusted.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/okian/settle/internal/domain/model"
	"github.com/okian/settle/pkg/metrics"
)

const defaultCutoff = 2 * time.Hour

// Ledger records forecasts and extracts final answers.
type Ledger interface {
	// Insert appends a forecast unless it repeats the participant's
	// newest value for that event. Arrival order per pair is preserved.
	Insert(ctx context.Context, participantID string, event model.EventKey, submittedAt time.Time, value float64)

	// Final returns the newest answer older than the cutoff as of asOf.
	// The pair's entire history is discarded by the call, found or not:
	// it is a single-use read, intended for exactly one settlement.
	Final(ctx context.Context, participantID string, event model.EventKey, asOf time.Time) (float64, bool)

	// Participants lists every participant holding history for event.
	Participants(ctx context.Context, event model.EventKey) []string

	// Drop discards all history for event, e.g. when it is discarded
	// upstream and will never settle.
	Drop(ctx context.Context, event model.EventKey)

	Size(ctx context.Context) int
}

// bucket holds one participant's history for one event, newest first.
type bucket struct {
	subs []model.Submission
}

type pairKey struct {
	event       string
	participant string
}

// InMemoryLedger implements Ledger with a mutex-guarded map. Inserts
// and the destructive Final read on the same pair serialize on the
// lock, which gives the all-or-nothing visibility the read requires.
type InMemoryLedger struct {
	mu      sync.Mutex
	cutoff  time.Duration
	buckets map[pairKey]*bucket
	byEvent map[string]map[string]struct{} // event key -> participant set
}

// NewInMemoryLedger creates a ledger with configuration options.
func NewInMemoryLedger(opts ...Option) *InMemoryLedger {
	l := &InMemoryLedger{
		cutoff:  defaultCutoff,
		buckets: make(map[pairKey]*bucket),
		byEvent: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Insert appends a forecast to the front of the pair's history.
func (l *InMemoryLedger) Insert(ctx context.Context, participantID string, event model.EventKey, submittedAt time.Time, value float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pk := pairKey{event: event.String(), participant: participantID}
	b := l.buckets[pk]
	if b == nil {
		b = &bucket{}
		l.buckets[pk] = b
		set := l.byEvent[pk.event]
		if set == nil {
			set = make(map[string]struct{})
			l.byEvent[pk.event] = set
		}
		set[participantID] = struct{}{}
	}

	// A repeated identical answer is noise; a changed one always
	// appends, even inside the same time window.
	if len(b.subs) > 0 && b.subs[0].Value == value {
		metrics.RecordForecastDeduped()
		return
	}

	b.subs = append([]model.Submission{{
		ParticipantID: participantID,
		SubmittedAt:   submittedAt,
		Value:         value,
	}}, b.subs...)
	metrics.RecordForecastAccepted()
}

// Final scans newest to oldest for the first entry aged at least the
// cutoff, then discards the pair's history.
func (l *InMemoryLedger) Final(ctx context.Context, participantID string, event model.EventKey, asOf time.Time) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pk := pairKey{event: event.String(), participant: participantID}
	b := l.buckets[pk]
	if b == nil {
		return 0, false
	}

	var (
		value float64
		found bool
	)
	for _, sub := range b.subs {
		if asOf.Sub(sub.SubmittedAt) >= l.cutoff {
			value = sub.Value
			found = true
			break
		}
	}

	l.evictLocked(pk)
	return value, found
}

// Participants lists participants with history for the event.
func (l *InMemoryLedger) Participants(ctx context.Context, event model.EventKey) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	set := l.byEvent[event.String()]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Drop discards every participant's history for the event.
func (l *InMemoryLedger) Drop(ctx context.Context, event model.EventKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id := range l.byEvent[event.String()] {
		l.evictLocked(pairKey{event: event.String(), participant: id})
	}
}

// Size returns the number of live (participant, event) buckets.
func (l *InMemoryLedger) Size(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictLocked removes one bucket and its participant-set entry.
// Must be called with l.mu held.
func (l *InMemoryLedger) evictLocked(pk pairKey) {
	delete(l.buckets, pk)
	if set := l.byEvent[pk.event]; set != nil {
		delete(set, pk.participant)
		if len(set) == 0 {
			delete(l.byEvent, pk.event)
		}
	}
}
