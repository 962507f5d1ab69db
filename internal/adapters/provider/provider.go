// Package provider holds shared helpers for market data providers.
package provider

import "github.com/okian/settle/internal/domain/model"

// StatusFromLabel maps the provider status vocabulary onto the event
// lifecycle. Anything unrecognized defaults to pending, which is the
// conservative choice: a pending event keeps getting refreshed until
// the provider says something we understand.
func StatusFromLabel(label string) model.EventStatus {
	switch label {
	case "Created":
		return model.StatusPending
	case "Resolved":
		return model.StatusSettled
	case "Canceled":
		return model.StatusDiscarded
	case "Paused":
		return model.StatusPending
	default:
		return model.StatusPending
	}
}
