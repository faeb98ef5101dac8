package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onboardhq/merchant-verify/internal/metrics"
	"github.com/onboardhq/merchant-verify/internal/notification"
	"github.com/onboardhq/merchant-verify/internal/worker/domain"
)

// processJob processes a single verification job: claim the bookkeeping row,
// run the verification service under a timeout with heartbeats, always
// attempt the outcome notification, and record the final status. The return
// value drives the ACK/NACK decision in the worker loop.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	start := time.Now()

	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("merchant_id", msg.MerchantID),
		slog.String("worker_id", w.workerID),
	)

	job, err := w.storage.ClaimJob(ctx, msg.JobID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			w.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("job already claimed: %w", err)
		}
		// Database unreachable: transient, let the queue redeliver
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.JobID, heartbeatDone)
	defer close(heartbeatDone)

	result, err := w.verifier.Verify(jobCtx, job.MerchantID)
	if err != nil {
		w.logger.Error("Verification failed",
			slog.String("job_id", job.JobID),
			slog.String("merchant_id", job.MerchantID),
			slog.String("error", err.Error()),
		)

		if job.RetryCount < job.MaxRetries {
			if releaseErr := w.storage.ReleaseJob(ctx, job.JobID, err.Error()); releaseErr != nil {
				w.logger.Error("Failed to release job for retry",
					slog.String("job_id", job.JobID),
					slog.String("error", releaseErr.Error()),
				)
			}

			w.metrics.JobsProcessed.WithLabelValues(metrics.ResultRetried).Inc()
			w.logger.Info("Job will be retried",
				slog.String("job_id", job.JobID),
				slog.Int("retry_count", job.RetryCount),
				slog.Int("max_retries", job.MaxRetries),
			)
			return domain.NewRetryableError(fmt.Errorf("verification failed: %w", err))
		}

		if failErr := w.storage.FailJob(ctx, job.JobID, err.Error()); failErr != nil {
			w.logger.Error("Failed to update job status to FAILED",
				slog.String("job_id", job.JobID),
				slog.String("error", failErr.Error()),
			)
		}

		w.metrics.JobsProcessed.WithLabelValues(metrics.ResultFailed).Inc()
		w.logger.Warn("Job exceeded max retries",
			slog.String("job_id", job.JobID),
			slog.Int("retry_count", job.RetryCount),
			slog.Int("max_retries", job.MaxRetries),
		)
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	w.metrics.VerificationLatency.Observe(time.Since(start).Seconds())

	// Exactly once per completed job, message by outcome polarity. A sink
	// failure is logged and never affects job completion.
	message := notification.MessageVerificationSucceeded
	if !result.Success {
		message = notification.MessageVerificationFailed
	}

	if notifyErr := w.notifier.Notify(ctx, job.MerchantID, message); notifyErr != nil {
		w.metrics.NotificationsFailed.Inc()
		w.logger.Warn("Failed to deliver outcome notification",
			slog.String("job_id", job.JobID),
			slog.String("merchant_id", job.MerchantID),
			slog.String("error", notifyErr.Error()),
		)
	} else {
		w.metrics.NotificationsSent.Inc()
	}

	if updateErr := w.storage.CompleteJob(ctx, job.JobID, result.Success); updateErr != nil {
		w.logger.Error("Failed to update job status to COMPLETED",
			slog.String("job_id", job.JobID),
			slog.String("error", updateErr.Error()),
		)
		// Job completed; a missed status update is not worth reprocessing
	}

	w.metrics.JobsProcessed.WithLabelValues(metrics.ResultCompleted).Inc()
	w.logger.Info("Job completed",
		slog.String("job_id", job.JobID),
		slog.String("merchant_id", job.MerchantID),
		slog.Bool("outcome", result.Success),
	)

	return nil
}

// sendJobHeartbeat periodically updates the job's heartbeat timestamp
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.storage.UpdateJobHeartbeat(ctx, jobID); err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
