package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onboardhq/merchant-verify/internal/metrics"
	"github.com/onboardhq/merchant-verify/internal/notification"
	"github.com/onboardhq/merchant-verify/internal/verification"
	"github.com/onboardhq/merchant-verify/internal/worker/domain"
	"github.com/onboardhq/merchant-verify/shared/rabbitmq"
)

// JobStore is the bookkeeping surface the worker needs from Postgres
type JobStore interface {
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	CompleteJob(ctx context.Context, jobID string, outcome bool) error
	FailJob(ctx context.Context, jobID, errorMsg string) error
	ReleaseJob(ctx context.Context, jobID, errorMsg string) error
	UpdateJobHeartbeat(ctx context.Context, jobID string) error
}

// Verifier computes a verification outcome for a merchant
type Verifier interface {
	Verify(ctx context.Context, merchantID string) (verification.Result, error)
}

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	Storage           JobStore
	RabbitClient      *rabbitmq.Client
	Verifier          Verifier
	Notifier          notification.Notifier
	Metrics           *metrics.Metrics
	WorkerID          string
	Concurrency       int
	PrefetchCount     int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
}

// Worker is the long-running consumer of verification jobs. Multiple
// instances may run in parallel; the only shared mutable state between job
// executions is the external result cache and the Postgres claim row.
type Worker struct {
	logger            *slog.Logger
	storage           JobStore
	rabbitClient      *rabbitmq.Client
	verifier          Verifier
	notifier          notification.Notifier
	metrics           *metrics.Metrics
	workerID          string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	jobsChan          chan *domain.JobMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	heartbeatInterval := cfg.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}

	return &Worker{
		logger:            cfg.Logger,
		storage:           cfg.Storage,
		rabbitClient:      cfg.RabbitClient,
		verifier:          cfg.Verifier,
		notifier:          cfg.Notifier,
		metrics:           cfg.Metrics,
		workerID:          cfg.WorkerID,
		concurrency:       cfg.Concurrency,
		prefetchCount:     cfg.PrefetchCount,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: heartbeatInterval,
		jobsChan:          make(chan *domain.JobMessage),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming and processing verification jobs. Blocks until the
// context is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker, waiting for in-flight jobs
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
