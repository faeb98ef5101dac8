package model

import (
	"database/sql"
	"time"
)

// VerificationJob is a verification job row as seen by the API service
type VerificationJob struct {
	JobID      string       `db:"job_id"`
	MerchantID string       `db:"merchant_id"`
	Status     string       `db:"status"`
	Outcome    sql.NullBool `db:"outcome"`
	RetryCount int          `db:"retry_count"`
	MaxRetries int          `db:"max_retries"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}
