package ledger

import "time"

// Option applies a configuration option to the InMemoryLedger.
type Option func(*InMemoryLedger)

// WithCutoff sets the minimum age a forecast must reach before it is
// eligible as a final answer. A zero cutoff makes the newest entry
// eligible immediately.
func WithCutoff(cutoff time.Duration) Option {
	return func(l *InMemoryLedger) {
		if cutoff >= 0 {
			l.cutoff = cutoff
		}
	}
}
