package service

import (
	"context"
	"fmt"

	"flowgen/internal/config"
	"flowgen/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the recurring learning cadence. It is an explicit
// component bound to the application lifecycle through Start/Stop
// rather than a package-level singleton. Overlapping cycles are not
// arbitrated here; the corpus dedup index absorbs any overlap.
type Scheduler struct {
	learning *LearningService
	cfg      config.LearningConfig
	log      *logger.Logger
	cron     *cron.Cron
}

func NewScheduler(learning *LearningService, cfg config.LearningConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		learning: learning,
		cfg:      cfg,
		log:      log,
	}
}

// Start registers the recurring learning cycle when learning is
// enabled. A disabled scheduler starts as a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Info("learning schedule disabled")
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.ScheduleCron, func() {
		result := s.learning.RunLearningCycle(context.Background())
		s.log.Info("scheduled learning cycle completed", "cycle_id", result.CycleID)
	})
	if err != nil {
		return fmt.Errorf("schedule learning cycle (%q): %w", s.cfg.ScheduleCron, err)
	}

	s.cron.Start()
	s.log.Info("learning schedule started", "cron", s.cfg.ScheduleCron)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.log.Info("learning schedule stopped")
	}
}

// TriggerNow fires one cycle detached from the caller.
func (s *Scheduler) TriggerNow() {
	go func() {
		result := s.learning.RunLearningCycle(context.Background())
		s.log.Info("manual learning cycle completed", "cycle_id", result.CycleID)
	}()
}
