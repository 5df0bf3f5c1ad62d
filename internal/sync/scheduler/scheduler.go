// Package scheduler provides optional periodic background sync.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	apperrors "github.com/twardell/clipsync/internal/errors"
	"github.com/twardell/clipsync/internal/logging"
	syncpkg "github.com/twardell/clipsync/internal/sync"
)

// Syncer is the slice of the engine the scheduler drives.
type Syncer interface {
	Sync(ctx context.Context) (*syncpkg.Result, error)
}

// Scheduler triggers periodic sync passes. It never bypasses the engine's
// single-flight guard: an overlapping trigger simply observes a skipped
// pass.
type Scheduler struct {
	engine   Syncer
	interval time.Duration
	cron     *cron.Cron
	entryID  cron.EntryID

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler that syncs every interval.
func New(engine Syncer, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start begins periodic syncing. Starting an already-started scheduler is a
// no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.trigger)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	logging.L().Info("background sync scheduler started",
		zap.Duration("interval", s.interval))
	return nil
}

// Stop halts periodic syncing and waits for an in-flight trigger to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	logging.L().Info("background sync scheduler stopped")
}

func (s *Scheduler) trigger() {
	result, err := s.engine.Sync(context.Background())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrOffline) {
			logging.L().Debug("scheduled sync skipped, offline")
			return
		}
		logging.L().Warn("scheduled sync failed", zap.Error(err))
		return
	}
	if result.Skipped {
		logging.L().Debug("scheduled sync skipped, pass already in flight")
		return
	}

	logging.L().Info("scheduled sync finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed))
}
