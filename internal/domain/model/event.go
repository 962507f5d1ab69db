// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventStatus tracks an event through its lifecycle.
type EventStatus int

// Event lifecycle states. Settled and Discarded are terminal.
const (
	StatusUnknown EventStatus = iota // provider status we could not map
	StatusPending
	StatusSettled
	StatusDiscarded
)

// String returns a human-readable status name.
func (s EventStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSettled:
		return "settled"
	case StatusDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status permits no further transitions.
func (s EventStatus) Terminal() bool {
	return s == StatusSettled || s == StatusDiscarded
}

// MarshalJSON renders the status by name so API responses and
// checkpoints stay readable.
func (s EventStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the named form back; unrecognized names map to
// StatusUnknown rather than failing the whole document.
func (s *EventStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "pending":
		*s = StatusPending
	case "settled":
		*s = StatusSettled
	case "discarded":
		*s = StatusDiscarded
	default:
		*s = StatusUnknown
	}
	return nil
}

// Outcome is the realized result of a binary market.
type Outcome int

// Binary market outcomes. Forecast values are the probability of
// OutcomeYes, so OutcomeYes rewards p^2 and OutcomeNo rewards (1-p)^2.
const (
	OutcomeUnknown Outcome = iota
	OutcomeYes
	OutcomeNo
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the outcome by name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON parses the named form back; unrecognized names map to
// OutcomeUnknown.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "yes":
		*o = OutcomeYes
	case "no":
		*o = OutcomeNo
	default:
		*o = OutcomeUnknown
	}
	return nil
}

// EventKey identifies an event within a provider namespace.
// Both fields are immutable after the event is created.
type EventKey struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

// String renders the key in the canonical "provider-id" form used for
// map keys and log lines.
func (k EventKey) String() string {
	return fmt.Sprintf("%s-%s", k.Provider, k.ID)
}

// ParseEventKey splits the canonical form back into a key. Provider
// names never contain a dash, so the first one is the separator; the
// id keeps any dashes of its own.
func ParseEventKey(s string) (EventKey, bool) {
	provider, id, ok := strings.Cut(s, "-")
	if !ok || provider == "" || id == "" {
		return EventKey{}, false
	}
	return EventKey{Provider: provider, ID: id}, true
}

// Event is an external occurrence tracked through a status lifecycle
// until its ground truth is known.
type Event struct {
	Key           EventKey       `json:"key"`
	Description   string         `json:"description"`
	StartsAt      time.Time      `json:"starts_at"`
	ResolveDate   time.Time      `json:"resolve_date,omitempty"`
	Status        EventStatus    `json:"status"`
	Answer        Outcome        `json:"answer"` // OutcomeUnknown unless Status == StatusSettled
	LastUpdatedAt time.Time      `json:"last_updated_at"`
	Metadata      map[string]any `json:"metadata,omitempty"` // provider fields, stored but never interpreted
}

// Settled reports whether the event carries a final answer.
func (e *Event) Settled() bool {
	return e.Status == StatusSettled
}

// Submission is a single participant forecast for an event at a point
// in time. Submissions are immutable once created.
type Submission struct {
	ParticipantID string    `json:"participant_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Value         float64   `json:"value"`
}
