package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/okian/settle/internal/domain/ledger"
	"github.com/okian/settle/internal/registry"
	"github.com/okian/settle/pkg/logger"
)

// checkpoint is the serializable process state. Commitments are
// deliberately excluded: their reveal window is short enough that
// replaying them across a restart would accept stale reveals.
type checkpoint struct {
	SavedAt   time.Time         `json:"saved_at"`
	Round     uint64            `json:"round"`
	Events    registry.Snapshot `json:"events"`
	Forecasts ledger.Snapshot   `json:"forecasts"`
}

// loadCheckpoint restores state from the configured path, if any.
func (s *Service) loadCheckpoint(ctx context.Context) error {
	if s.cfg.CheckpointPath == "" {
		return nil
	}

	raw, err := os.ReadFile(s.cfg.CheckpointPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read checkpoint: %w", err)
	}

	var cp checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}

	s.registry.Restore(ctx, cp.Events)
	s.forecasts.Restore(ctx, cp.Forecasts)
	s.round.Store(cp.Round)

	s.logger.Info(ctx, "checkpoint restored",
		logger.Int("events", len(cp.Events)),
		logger.Any("saved_at", cp.SavedAt),
	)
	return nil
}

// saveCheckpoint writes state to the configured path via a temp file
// rename, so a crash mid-write never truncates the previous
// checkpoint.
func (s *Service) saveCheckpoint(ctx context.Context) error {
	if s.cfg.CheckpointPath == "" {
		return nil
	}

	cp := checkpoint{
		SavedAt:   time.Now(),
		Round:     s.round.Load(),
		Events:    s.registry.Snapshot(ctx),
		Forecasts: s.forecasts.Snapshot(ctx),
	}

	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp := s.cfg.CheckpointPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.cfg.CheckpointPath); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// runCheckpoints saves state on a fixed cadence.
func (s *Service) runCheckpoints(ctx context.Context) {
	if s.cfg.CheckpointPath == "" {
		return
	}

	ticker := time.NewTicker(time.Duration(s.cfg.CheckpointIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.saveCheckpoint(ctx); err != nil {
				s.logger.Warn(ctx, "checkpoint save failed", logger.Error(err))
			}
		}
	}
}
