package jobs

import (
	"context"

	"chargedesk/internal/config"
	"chargedesk/internal/logger"
)

// EmailRetrier resends notification emails whose delivery failed.
type EmailRetrier interface {
	RetryFailedEmails(ctx context.Context, maxAttempts, batch int) (int, error)
}

// JobRunner coordinates scheduled background work
type JobRunner struct {
	emails EmailRetrier
	config *config.Config
}

func NewJobRunner(emails EmailRetrier, cfg *config.Config) *JobRunner {
	return &JobRunner{emails: emails, config: cfg}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", jobName)
	jobFunc()
	logger.Debug("Job completed", "job", jobName)
}
