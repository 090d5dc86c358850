// Package scheduler wires up the cron job that periodically re-ingests
// content from all providers.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Syncer runs one full content synchronization.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// Scheduler wraps robfig/cron and manages the periodic sync loop.
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	logger  *zap.Logger
	spec    string // cron spec, e.g. "@every 6h"
	onStart bool
}

// New creates a Scheduler that fires every intervalHours hours. When onStart
// is set, one sync also runs immediately so the store is populated without
// waiting for the first tick.
func New(syncer Syncer, logger *zap.Logger, intervalHours int, onStart bool) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		syncer:  syncer,
		logger:  logger,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
		onStart: onStart,
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Sync scheduler started", zap.String("spec", s.spec))

	if s.onStart {
		go s.runSync(ctx)
	}

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Sync scheduler stopped")
}

func (s *Scheduler) runSync(ctx context.Context) {
	count, err := s.syncer.Sync(ctx)
	if err != nil {
		s.logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled sync complete", zap.Int("synced", count))
}
