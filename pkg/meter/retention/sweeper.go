// Package retention prunes aged meter state on a cron schedule: old
// acknowledged alerts, in-memory history, and persisted usage records.
// Sweeps run concurrently with live traffic.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config contains configuration for the retention sweeper.
type Config struct {
	// RecordRetentionDays is how long usage records are kept, in both
	// the in-memory history and the durable store. 0 keeps them forever.
	RecordRetentionDays int

	// AlertRetentionDays is how long acknowledged alerts are kept.
	// 0 keeps them forever.
	AlertRetentionDays int

	// Schedule is a cron expression for scheduling sweeps.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RecordRetentionDays: 90,
		AlertRetentionDays:  30,
		Schedule:            "0 3 * * *",
	}
}

// Engine is the meter surface the sweeper prunes.
type Engine interface {
	PruneAlertsBefore(cutoff time.Time) int
	TrimHistoryBefore(cutoff time.Time) int
	CleanupStore(ctx context.Context, olderThan time.Time) (int, error)
}

// Sweeper enforces retention policies on meter state.
type Sweeper struct {
	engine    Engine
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewSweeper creates a retention sweeper. A nil config uses defaults.
func NewSweeper(engine Engine, config *Config) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Sweeper{
		engine: engine,
		config: config,
		logger: slog.Default().With("component", "meter.retention"),
		now:    time.Now,
	}
	s.scheduler = NewScheduler(s)
	return s
}

// Scheduler returns the cron scheduler driving this sweeper.
func (s *Sweeper) Scheduler() *Scheduler {
	return s.scheduler
}

// Sweep runs one retention pass and returns the total number of items
// removed across alerts, history, and the store.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	total := 0

	if s.config.AlertRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -s.config.AlertRetentionDays)
		pruned := s.engine.PruneAlertsBefore(cutoff)
		total += pruned
		if pruned > 0 {
			s.logger.Info("pruned acknowledged alerts",
				"pruned_count", pruned,
				"retention_days", s.config.AlertRetentionDays)
		}
	}

	if s.config.RecordRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -s.config.RecordRetentionDays)

		trimmed := s.engine.TrimHistoryBefore(cutoff)
		total += trimmed
		if trimmed > 0 {
			s.logger.Info("trimmed in-memory history",
				"trimmed_count", trimmed,
				"retention_days", s.config.RecordRetentionDays)
		}

		deleted, err := s.engine.CleanupStore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("store cleanup failed: %w", err)
		}
		total += deleted
		if deleted > 0 {
			s.logger.Info("deleted persisted records",
				"deleted_count", deleted,
				"retention_days", s.config.RecordRetentionDays)
		}
	}

	if total == 0 {
		s.logger.Debug("retention sweep removed nothing")
	}
	return total, nil
}
