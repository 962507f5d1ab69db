package registry

import (
	"context"

	"github.com/okian/settle/internal/domain/model"
)

// Snapshot is the serializable registry state, keyed by the canonical
// event key string.
type Snapshot map[string]model.Event

// Snapshot copies the current state for checkpointing.
func (r *Registry) Snapshot(ctx context.Context) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(Snapshot, len(r.events))
	for key, ev := range r.events {
		out[key] = *ev
	}
	return out
}

// Restore replaces the registry state with a previously taken
// snapshot. Meant for startup, before any writer runs.
func (r *Registry) Restore(ctx context.Context, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = make(map[string]*model.Event, len(snap))
	for key, ev := range snap {
		stored := ev
		r.events[key] = &stored
	}
}
