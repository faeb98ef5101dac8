package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/onboardhq/merchant-verify/internal/worker/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob attempts to claim a verification job using optimistic locking.
// Only one worker can move a row from PENDING to RUNNING; a redelivered
// message whose row is already claimed fails here instead of double-processing.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE verification_jobs
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
		RETURNING job_id, merchant_id, retry_count, max_retries
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusRunning, workerID, jobID, domain.JobStatusPending).Scan(
		&job.JobID,
		&job.MerchantID,
		&job.RetryCount,
		&job.MaxRetries,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusRunning
	job.WorkerID = workerID

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.String("merchant_id", job.MerchantID),
	)

	return &job, nil
}

// CompleteJob marks a job COMPLETED and records the verification outcome
func (s *Storage) CompleteJob(ctx context.Context, jobID string, outcome bool) error {
	query := `
		UPDATE verification_jobs
		SET status = $1,
		    outcome = $2,
		    error_message = '',
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, outcome, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	s.logger.Info("Job marked completed",
		slog.String("job_id", jobID),
		slog.Bool("outcome", outcome),
	)

	return nil
}

// FailJob marks a job FAILED after its retry budget is exhausted
func (s *Storage) FailJob(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE verification_jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	s.logger.Info("Job marked failed",
		slog.String("job_id", jobID),
	)

	return nil
}

// ReleaseJob returns a job to PENDING and bumps its retry count so a
// redelivered message can claim it again
func (s *Storage) ReleaseJob(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE verification_jobs
		SET status = $1,
		    worker_id = NULL,
		    retry_count = retry_count + 1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE job_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusPending, errorMsg, jobID); err != nil {
		return fmt.Errorf("failed to release job: %w", err)
	}

	s.logger.Info("Job released for retry",
		slog.String("job_id", jobID),
	)

	return nil
}

// UpdateJobHeartbeat updates the last_heartbeat_at timestamp for a running job
func (s *Storage) UpdateJobHeartbeat(ctx context.Context, jobID string) error {
	query := `
		UPDATE verification_jobs
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update job heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Job heartbeat update - no rows affected (job may not be running)",
			slog.String("job_id", jobID),
		)
	}

	return nil
}
