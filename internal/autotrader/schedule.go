package autotrader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"trader-sim/internal/markethours"
)

// Scheduler runs trading cycles on a fixed cadence, but only inside the
// trimmed trading window.
type Scheduler struct {
	cron   *cron.Cron
	trader *Trader
	log    *slog.Logger
}

// NewScheduler registers a cycle every intervalMinutes.
func NewScheduler(ctx context.Context, trader *Trader, intervalMinutes int, log *slog.Logger) (*Scheduler, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", intervalMinutes)
	}

	c := cron.New()
	s := &Scheduler{cron: c, trader: trader, log: log}

	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := c.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return nil, fmt.Errorf("register trading cycle: %w", err)
	}
	return s, nil
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	if !markethours.InTradingWindow(now) {
		s.log.Info("outside trading window, skipping cycle", "status", markethours.StatusString(now))
		return
	}
	if err := s.trader.RunCycle(ctx); err != nil {
		s.log.Error("trading cycle failed", "err", err)
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
