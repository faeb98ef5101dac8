package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onboardhq/merchant-verify/internal/api/domain"
	"github.com/onboardhq/merchant-verify/internal/api/model"
	"github.com/onboardhq/merchant-verify/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.VerificationJob) error {
	query := `
		INSERT INTO verification_jobs (
			job_id, merchant_id, status, retry_count,
			max_retries, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.MerchantID,
		job.Status,
		job.RetryCount,
		job.MaxRetries,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create verification job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.VerificationJob, error) {
	var job model.VerificationJob
	query := `
		SELECT
			job_id, merchant_id, status, outcome,
			retry_count, max_retries, created_at, updated_at
		FROM verification_jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get verification job: %w", err)
	}

	return &job, nil
}

// MarkJobFailed flags a job that could not be handed to the queue
func (s *Storage) MarkJobFailed(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE verification_jobs
		SET status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE job_id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errorMsg, jobID); err != nil {
		return fmt.Errorf("failed to mark verification job failed: %w", err)
	}

	return nil
}

type JobFilter struct {
	MerchantID string
	Status     string
	PageSize   int
	Cursor     *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.VerificationJob, error) {
	query := `
        SELECT
            job_id, merchant_id, status, outcome,
            retry_count, max_retries, created_at, updated_at
        FROM verification_jobs
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.MerchantID != "" {
		query += fmt.Sprintf(" AND merchant_id = $%d", argIdx)
		args = append(args, filter.MerchantID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.VerificationJob
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification jobs: %w", err)
	}

	return jobs, nil
}
