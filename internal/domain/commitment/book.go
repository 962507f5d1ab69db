package commitment

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/okian/settle/internal/domain/model"
)

const defaultRevealWindow = 2

// Option applies a configuration option to the Book.
type Option func(*Book)

// WithRevealWindow bounds how many rounds a commitment stays
// redeemable. A reveal arriving later than the window is ineligible.
func WithRevealWindow(rounds uint64) Option {
	return func(b *Book) {
		if rounds > 0 {
			b.window = rounds
		}
	}
}

type entry struct {
	digest [sha256.Size]byte
	round  uint64
}

// Book tracks outstanding commitments per (participant, event) and
// gates reveals against them. A reveal with no matching commitment, a
// stale commitment, or a digest mismatch is a normal "no eligible
// answer" outcome, never an error.
type Book struct {
	mu       sync.Mutex
	window   uint64
	entries  map[pairKey]entry
	revealed map[pairKey][]float64
}

type pairKey struct {
	event       string
	participant string
}

// NewBook creates an empty commitment book.
func NewBook(opts ...Option) *Book {
	b := &Book{
		window:   defaultRevealWindow,
		entries:  make(map[pairKey]entry),
		revealed: make(map[pairKey][]float64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Commit records a digest for the pair, replacing any previous one.
func (b *Book) Commit(ctx context.Context, participantID string, event model.EventKey, digest [sha256.Size]byte, round uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[pairKey{event: event.String(), participant: participantID}] = entry{digest: digest, round: round}
}

// Reveal checks values against the pair's outstanding commitment. The
// commitment is consumed whether or not verification passes; it was
// spent either way.
func (b *Book) Reveal(ctx context.Context, participantID string, event model.EventKey, values []float64, round uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	pk := pairKey{event: event.String(), participant: participantID}
	e, ok := b.entries[pk]
	if !ok {
		return false
	}
	delete(b.entries, pk)

	if round < e.round || round-e.round > b.window {
		return false
	}
	if !Verify(values, e.digest) {
		return false
	}

	b.revealed[pk] = append([]float64(nil), values...)
	return true
}

// Take removes and returns the verified revealed values for the pair.
// Settlement calls this once per participant; a second call reports no
// values.
func (b *Book) Take(ctx context.Context, participantID string, event model.EventKey) ([]float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pk := pairKey{event: event.String(), participant: participantID}
	values, ok := b.revealed[pk]
	if !ok {
		return nil, false
	}
	delete(b.revealed, pk)
	return values, true
}

// Revealers lists every participant holding verified revealed values
// for the event. Settlement enumerates from here for vector events: a
// participant may reveal without ever touching the forecast ledger.
func (b *Book) Revealers(ctx context.Context, event model.EventKey) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0)
	for pk := range b.revealed {
		if pk.event == event.String() {
			out = append(out, pk.participant)
		}
	}
	return out
}

// Drop discards every commitment and revealed value for the event,
// e.g. after settlement consumed what it needed or the event was
// discarded upstream and will never settle.
func (b *Book) Drop(ctx context.Context, event model.EventKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for pk := range b.entries {
		if pk.event == event.String() {
			delete(b.entries, pk)
		}
	}
	for pk := range b.revealed {
		if pk.event == event.String() {
			delete(b.revealed, pk)
		}
	}
}

// Expire drops commitments older than the reveal window relative to
// round, returning how many were dropped.
func (b *Book) Expire(ctx context.Context, round uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	for pk, e := range b.entries {
		if round > e.round && round-e.round > b.window {
			delete(b.entries, pk)
			n++
		}
	}
	return n
}

// Size returns the number of outstanding commitments.
func (b *Book) Size(ctx context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
