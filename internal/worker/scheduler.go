package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/service"
)

// Scheduler runs the background policy loops: the hourly lifecycle sweep, the
// daily quota reset at the configured local time, and a periodic panel
// refresh so open/close boundaries show up without any triggering event.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// SchedulerDependencies bundles the jobs' collaborators.
type SchedulerDependencies struct {
	Scanner *service.Scanner
	Quota   *service.QuotaService
	Panel   *service.PanelService
}

// NewScheduler wires the cron entries. Entries run in the intake-policy time
// zone so "daily at the reset hour" means local time.
func NewScheduler(deps SchedulerDependencies, intake config.IntakeConfig, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithLocation(intake.Location()))

	if _, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		deps.Scanner.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	resetSpec := fmt.Sprintf("0 %d * * *", intake.QuotaResetHour)
	if _, err := c.AddFunc(resetSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := deps.Quota.ResetIfNewDay(ctx); err != nil {
			logger.Error("daily quota reset failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule quota reset: %w", err)
	}

	if _, err := c.AddFunc("*/10 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deps.Panel.RefreshLogged(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule panel refresh: %w", err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
