package ledger

import (
	"context"

	"github.com/okian/settle/internal/domain/model"
)

// Snapshot is the serializable ledger state: event key -> participant
// -> history, newest first.
type Snapshot map[string]map[string][]model.Submission

// Snapshot copies the current state for checkpointing.
func (l *InMemoryLedger) Snapshot(ctx context.Context) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(Snapshot, len(l.byEvent))
	for pk, b := range l.buckets {
		byPart := out[pk.event]
		if byPart == nil {
			byPart = make(map[string][]model.Submission)
			out[pk.event] = byPart
		}
		subs := make([]model.Submission, len(b.subs))
		copy(subs, b.subs)
		byPart[pk.participant] = subs
	}
	return out
}

// Restore replaces the ledger state with a previously taken snapshot.
func (l *InMemoryLedger) Restore(ctx context.Context, snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buckets = make(map[pairKey]*bucket)
	l.byEvent = make(map[string]map[string]struct{})
	for event, byPart := range snap {
		for participant, subs := range byPart {
			cp := make([]model.Submission, len(subs))
			copy(cp, subs)
			l.buckets[pairKey{event: event, participant: participant}] = &bucket{subs: cp}
			set := l.byEvent[event]
			if set == nil {
				set = make(map[string]struct{})
				l.byEvent[event] = set
			}
			set[participant] = struct{}{}
		}
	}
}
