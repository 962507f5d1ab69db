// Package announce emits settlement results to interested consumers.
package announce

import "context"

// Topic constants for settlement announcements.
const (
	TopicEventSettled   = "settle.event.settled"
	TopicEventDiscarded = "settle.event.discarded"
)

// Settled is the payload published when an event finishes settlement.
type Settled struct {
	EventKey  string             `json:"event_key"`
	Answer    string             `json:"answer"`
	Rewards   map[string]float64 `json:"rewards"`
	SettledAt string             `json:"settled_at"`
}

// Discarded is the payload published when an event is dropped without
// rewards.
type Discarded struct {
	EventKey string `json:"event_key"`
}

// Publisher is the interface for emitting announcements.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
