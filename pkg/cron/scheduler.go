// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// SessionSweeper drops expired import sessions.
type SessionSweeper interface {
	SweepExpired() int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	sweeper   SessionSweeper
	sweepSpec string
	logger    *slog.Logger
}

// NewScheduler creates a job scheduler. sweepSpec is a standard 5-field
// cron expression.
func NewScheduler(sweeper SessionSweeper, sweepSpec string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		sweeper:   sweeper,
		sweepSpec: sweepSpec,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.sweepSpec, s.sweepSessions)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the session sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.sweepSessions()
}

// sweepSessions removes import sessions whose TTL has passed.
func (s *Scheduler) sweepSessions() {
	removed := s.sweeper.SweepExpired()
	if removed > 0 {
		s.logger.Info("expired import sessions swept", slog.Int("removed", removed))
	}
}
