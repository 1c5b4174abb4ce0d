// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/listazap/gateway/internal/config"
	"github.com/listazap/gateway/internal/ratelimit"
)

// Scheduler manages scheduled tasks. Its only job today is sweeping expired
// fixed-window counters out of the in-memory store; when Redis backs the
// counters, keys expire server-side and no janitor is registered.
type Scheduler struct {
	cron   *cron.Cron
	store  *ratelimit.MemoryStore
	cfg    config.JanitorConfig
	logger *zap.Logger
}

// NewScheduler creates a scheduler sweeping the given store. store may be
// nil, in which case Start registers nothing.
func NewScheduler(cfg config.JanitorConfig, store *ratelimit.MemoryStore, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the janitor job and starts the cron loop.
func (s *Scheduler) Start() {
	if s.store == nil {
		s.logger.Info("no in-memory counter store, janitor disabled")
		return
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.sweepCounters); err != nil {
		s.logger.Error("failed to schedule counter janitor", zap.Error(err))
		return
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Schedule))
	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweepCounters() {
	removed := s.store.Sweep()
	if removed > 0 {
		s.logger.Info("swept expired rate-limit counters", zap.Int("removed", removed))
	}
}
