// Package repository stores computed settlement results so callers can
// query rewards after the event itself has been evicted.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/settle/internal/domain/model"
)

// Result is one settled event's reward breakdown.
type Result struct {
	Event     model.EventKey     `json:"event"`
	Answer    model.Outcome      `json:"answer"`
	Rewards   map[string]float64 `json:"rewards"`
	SettledAt time.Time          `json:"settled_at"`
}

// Store persists settlement results.
type Store interface {
	// Put records the result for its event key, replacing any
	// previous result.
	Put(ctx context.Context, res Result) error

	// Get returns the result for an event key.
	Get(ctx context.Context, key model.EventKey) (Result, error)

	// Recent returns up to limit results, newest first.
	Recent(ctx context.Context, limit int) ([]Result, error)

	// Count returns the number of stored results.
	Count(ctx context.Context) int
}

// MemoryStore implements Store with a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]Result
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]Result)}
}

// Put records the result for its event key.
func (s *MemoryStore) Put(ctx context.Context, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.Event.String()] = res
	return nil
}

// Get returns the result for an event key.
func (s *MemoryStore) Get(ctx context.Context, key model.EventKey) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.results[key.String()]
	if !ok {
		return Result{}, ErrNotFound
	}
	return res, nil
}

// Recent returns up to limit results, newest first.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]Result, error) {
	s.mu.RLock()
	out := make([]Result, 0, len(s.results))
	for _, res := range s.results {
		out = append(out, res)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].SettledAt.After(out[j].SettledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored results.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
