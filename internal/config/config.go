// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Layer file and env overrides in Load.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// ProviderBaseURL points at the market provider REST API.
	ProviderBaseURL string `koanf:"provider_base_url"`

	// ProviderWSURL points at the provider's market stream; empty
	// disables the stream.
	ProviderWSURL string `koanf:"provider_ws_url"`

	// StreamEnabled turns the provider stream listener on.
	StreamEnabled bool `koanf:"stream_enabled"`

	// PollIntervalSeconds sets the bulk candidate sync cadence.
	PollIntervalSeconds int `koanf:"poll_interval_seconds"`

	// RefreshDelaySeconds sets the pause between pending-event
	// refresh passes.
	RefreshDelaySeconds int `koanf:"refresh_delay_seconds"`

	// RequestTimeoutSeconds bounds one provider call.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`

	// RetryMaxElapsedSeconds bounds the total retry budget of one
	// provider operation.
	RetryMaxElapsedSeconds int `koanf:"retry_max_elapsed_seconds"`

	// ProviderMaxPages caps pagination depth in one candidate sync.
	ProviderMaxPages int `koanf:"provider_max_pages"`

	// CutoffSeconds is the minimum age a forecast needs before it
	// counts at settlement.
	CutoffSeconds int `koanf:"cutoff_seconds"`

	// AbsentPolicy decides rewards for absent participants: "zero"
	// or "floor".
	AbsentPolicy string `koanf:"absent_policy"`

	// FloorCeiling caps the random floor reward.
	FloorCeiling float64 `koanf:"floor_ceiling"`

	// RMSEScale steepens the vector reward falloff.
	RMSEScale float64 `koanf:"rmse_scale"`

	// RevealWindowRounds bounds how many rounds a commitment stays
	// redeemable.
	RevealWindowRounds uint64 `koanf:"reveal_window_rounds"`

	// RoundSeconds is the wall-clock length of one commitment round.
	RoundSeconds int `koanf:"round_seconds"`

	// WorkerCount sets the number of settlement workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory settlement queue.
	QueueSize int `koanf:"queue_size"`

	// NATSURL enables reward announcements when non-empty.
	NATSURL string `koanf:"nats_url"`

	// CheckpointPath enables JSON state checkpoints when non-empty.
	CheckpointPath string `koanf:"checkpoint_path"`

	// CheckpointIntervalSeconds sets the checkpoint cadence.
	CheckpointIntervalSeconds int `koanf:"checkpoint_interval_seconds"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                  "info",
		Addr:                      ":9090",
		ProviderBaseURL:           "https://clob.polymarket.com",
		ProviderWSURL:             "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		StreamEnabled:             false,
		PollIntervalSeconds:       60,
		RefreshDelaySeconds:       5,
		RequestTimeoutSeconds:     30,
		RetryMaxElapsedSeconds:    300,
		ProviderMaxPages:          50,
		CutoffSeconds:             7200,
		AbsentPolicy:              "zero",
		FloorCeiling:              0.1,
		RMSEScale:                 1.0,
		RevealWindowRounds:        2,
		RoundSeconds:              12,
		WorkerCount:               runtime.NumCPU(),
		QueueSize:                 4096,
		NATSURL:                   "",
		CheckpointPath:            "",
		CheckpointIntervalSeconds: 60,
	}
}
