package jobs

import (
	"context"
	"time"

	"chargedesk/internal/logger"
)

const emailRetryBatch = 50

// RetryFailedEmails picks up failed notification emails that still have attempts left.
func (jr *JobRunner) RetryFailedEmails() {
	jr.runWithRecovery("RetryFailedEmails", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		sent, err := jr.emails.RetryFailedEmails(ctx, jr.config.Notification.MaxAttempts, emailRetryBatch)
		if err != nil {
			logger.Error("Failed to retry notification emails", "error", err)
			return
		}
		if sent > 0 {
			logger.Info("Retried notification emails", "sent", sent)
		}
	})
}
