// Package scheduler runs the periodic backup and reporting jobs on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"relaybot/internal/engine"
	"relaybot/internal/model"
)

// Scheduler owns the cron runner. Job failures are logged and the
// schedule keeps running; a job error never terminates the process.
type Scheduler struct {
	cron    *cron.Cron
	backups *engine.BackupService
	reports *engine.AnalyticsService
	limiter interface{ Cleanup() }
	logger  engine.Logger
}

// New creates a Scheduler with jobs registered on the given cron specs.
// Specs use the standard five-field syntax, evaluated in UTC. limiter may
// be nil when no rate limiter runs in this process.
func New(backups *engine.BackupService, reports *engine.AnalyticsService,
	limiter interface{ Cleanup() }, backupSpec, reportSpec string, logger engine.Logger) (*Scheduler, error) {

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		backups: backups,
		reports: reports,
		limiter: limiter,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(backupSpec, s.runBackup); err != nil {
		return nil, fmt.Errorf("registering backup schedule %q: %w", backupSpec, err)
	}
	if _, err := s.cron.AddFunc(reportSpec, s.runReport); err != nil {
		return nil, fmt.Errorf("registering report schedule %q: %w", reportSpec, err)
	}
	// Hourly sweep keeps the limiter's window map from growing unbounded.
	if limiter != nil {
		if _, err := s.cron.AddFunc("0 * * * *", limiter.Cleanup); err != nil {
			return nil, fmt.Errorf("registering limiter cleanup: %w", err)
		}
	}

	return s, nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop stops the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runBackup performs a backup and then a retention pass. The retention
// pass runs even when useful backups exist only from earlier days, but is
// skipped when the backup itself failed so a bad run cannot age out the
// last good artifacts unattended.
func (s *Scheduler) runBackup() {
	ctx := context.Background()

	if _, err := s.backups.PerformBackup(ctx); err != nil {
		s.logger.Error("scheduled backup failed", "error", err)
		return
	}

	if _, err := s.backups.CleanupOldBackups(ctx, 0); err != nil {
		s.logger.Error("scheduled retention cleanup failed", "error", err)
	}
}

func (s *Scheduler) runReport() {
	if _, err := s.reports.GenerateReport(context.Background(), model.PeriodWeekly); err != nil {
		s.logger.Error("scheduled report failed", "error", err)
	}
}
