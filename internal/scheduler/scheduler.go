package scheduler

import (
	"time"

	"chargedesk/internal/jobs"
	"chargedesk/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler in UTC with seconds precision.
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Notification

	if cfg.RetrySchedule == "" {
		logger.Info("notification.retry_schedule empty, email retry job disabled")
		return
	}
	if _, err := s.cron.AddFunc(cfg.RetrySchedule, s.jobs.RetryFailedEmails); err != nil {
		logger.Error("Failed to register RetryFailedEmails job", "schedule", cfg.RetrySchedule, "error", err)
		return
	}

	logger.Info("Cron jobs registered", "count", len(s.cron.Entries()))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Cron scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
