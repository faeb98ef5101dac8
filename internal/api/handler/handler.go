package handler

import (
	"context"
	"log/slog"

	"github.com/onboardhq/merchant-verify/internal/api/model"
	"github.com/onboardhq/merchant-verify/internal/api/storage"
	"github.com/onboardhq/merchant-verify/internal/metrics"
)

// JobStore is the persistence surface the handlers need
type JobStore interface {
	CreateJob(ctx context.Context, job *model.VerificationJob) error
	GetJobByID(ctx context.Context, jobID string) (*model.VerificationJob, error)
	MarkJobFailed(ctx context.Context, jobID, errorMsg string) error
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.VerificationJob, error)
}

// Publisher hands a verification job message to the queue
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers, injected at startup
type Dependencies struct {
	Logger            *slog.Logger
	Store             JobStore
	Publisher         Publisher
	Metrics           *metrics.Metrics
	DefaultMaxRetries int
}

// VerificationHandler handles merchant verification HTTP requests
type VerificationHandler struct {
	logger            *slog.Logger
	store             JobStore
	publisher         Publisher
	metrics           *metrics.Metrics
	defaultMaxRetries int
}

// NewVerificationHandler creates a new VerificationHandler instance
func NewVerificationHandler(deps *Dependencies) *VerificationHandler {
	return &VerificationHandler{
		logger:            deps.Logger,
		store:             deps.Store,
		publisher:         deps.Publisher,
		metrics:           deps.Metrics,
		defaultMaxRetries: deps.DefaultMaxRetries,
	}
}
