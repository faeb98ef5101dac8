package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhq/merchant-verify/internal/metrics"
	"github.com/onboardhq/merchant-verify/internal/verification"
	"github.com/onboardhq/merchant-verify/internal/worker/domain"
)

type fakeStore struct {
	job      *domain.Job
	claimErr error

	completed map[string]bool // job_id -> outcome
	failed    []string
	released  []string
}

func newFakeStore(job *domain.Job) *fakeStore {
	return &fakeStore{
		job:       job,
		completed: make(map[string]bool),
	}
}

func (s *fakeStore) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	return s.job, nil
}

func (s *fakeStore) CompleteJob(ctx context.Context, jobID string, outcome bool) error {
	s.completed[jobID] = outcome
	return nil
}

func (s *fakeStore) FailJob(ctx context.Context, jobID, errorMsg string) error {
	s.failed = append(s.failed, jobID)
	return nil
}

func (s *fakeStore) ReleaseJob(ctx context.Context, jobID, errorMsg string) error {
	s.released = append(s.released, jobID)
	return nil
}

func (s *fakeStore) UpdateJobHeartbeat(ctx context.Context, jobID string) error {
	return nil
}

type fakeVerifier struct {
	result verification.Result
	err    error
	calls  int
}

func (v *fakeVerifier) Verify(ctx context.Context, merchantID string) (verification.Result, error) {
	v.calls++
	return v.result, v.err
}

type notifyCall struct {
	merchantID string
	message    string
}

type fakeNotifier struct {
	err   error
	calls []notifyCall
}

func (n *fakeNotifier) Notify(ctx context.Context, merchantID, message string) error {
	n.calls = append(n.calls, notifyCall{merchantID: merchantID, message: message})
	return n.err
}

func newTestWorker(store JobStore, verifier Verifier, notifier *fakeNotifier) *Worker {
	return NewWorker(&Config{
		Logger:            slog.New(slog.DiscardHandler),
		Storage:           store,
		Verifier:          verifier,
		Notifier:          notifier,
		Metrics:           metrics.New(prometheus.NewRegistry()),
		WorkerID:          "worker-test",
		Concurrency:       1,
		PrefetchCount:     1,
		JobTimeout:        time.Second,
		HeartbeatInterval: time.Minute,
	})
}

func pendingJob(retryCount int) *domain.Job {
	return &domain.Job{
		JobID:      "6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b",
		MerchantID: "M-001",
		Status:     domain.JobStatusPending,
		RetryCount: retryCount,
		MaxRetries: 3,
	}
}

func jobMessage() *domain.JobMessage {
	return &domain.JobMessage{
		JobID:      "6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b",
		MerchantID: "M-001",
	}
}

func TestProcessJobSuccessfulVerification(t *testing.T) {
	store := newFakeStore(pendingJob(0))
	verifier := &fakeVerifier{result: verification.Result{Success: true}}
	notifier := &fakeNotifier{}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.NoError(t, err)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "M-001", notifier.calls[0].merchantID)
	assert.Equal(t, "Verification successful!", notifier.calls[0].message)

	outcome, ok := store.completed["6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b"]
	require.True(t, ok, "job must be marked completed")
	assert.True(t, outcome)
}

func TestProcessJobNegativeVerdictStillCompletes(t *testing.T) {
	store := newFakeStore(pendingJob(0))
	verifier := &fakeVerifier{result: verification.Result{Success: false, Message: "sanctions hit"}}
	notifier := &fakeNotifier{}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.NoError(t, err, "a negative verdict is a completed job, not a failure")

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "Verification failed!", notifier.calls[0].message)

	outcome, ok := store.completed["6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b"]
	require.True(t, ok)
	assert.False(t, outcome)
	assert.Empty(t, store.failed)
}

func TestProcessJobVerifierErrorReleasesForRetry(t *testing.T) {
	store := newFakeStore(pendingJob(0))
	verifier := &fakeVerifier{err: errors.New("authority unreachable")}
	notifier := &fakeNotifier{}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.Error(t, err)

	assert.True(t, w.shouldRequeueJob(err), "transient verification errors must trigger redelivery")
	assert.Equal(t, []string{"6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b"}, store.released)
	assert.Empty(t, notifier.calls, "no notification on an infrastructure error")
	assert.Empty(t, store.completed)
}

func TestProcessJobRetriesExhausted(t *testing.T) {
	store := newFakeStore(pendingJob(3))
	verifier := &fakeVerifier{err: errors.New("authority unreachable")}
	notifier := &fakeNotifier{}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)

	assert.False(t, w.shouldRequeueJob(err), "exhausted jobs go to the dead-letter queue")
	assert.Equal(t, []string{"6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b"}, store.failed)
	assert.Empty(t, store.released)
}

func TestProcessJobAlreadyClaimed(t *testing.T) {
	store := newFakeStore(nil)
	store.claimErr = domain.ErrJobAlreadyClaimed
	verifier := &fakeVerifier{}
	notifier := &fakeNotifier{}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)

	assert.False(t, w.shouldRequeueJob(err))
	assert.Zero(t, verifier.calls)
	assert.Empty(t, notifier.calls)
}

func TestProcessJobClaimDatabaseErrorIsRetryable(t *testing.T) {
	store := newFakeStore(nil)
	store.claimErr = errors.New("connection reset")
	verifier := &fakeVerifier{}
	notifier := &fakeNotifier{}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))
}

func TestProcessJobNotificationFailureDoesNotFailJob(t *testing.T) {
	store := newFakeStore(pendingJob(0))
	verifier := &fakeVerifier{result: verification.Result{Success: true}}
	notifier := &fakeNotifier{err: errors.New("sink down")}

	w := newTestWorker(store, verifier, notifier)
	err := w.processJob(context.Background(), jobMessage())
	require.NoError(t, err, "a notification failure must not affect job completion")

	require.Len(t, notifier.calls, 1)
	_, ok := store.completed["6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b"]
	assert.True(t, ok)
}

func TestShouldRequeueJob(t *testing.T) {
	w := newTestWorker(newFakeStore(nil), &fakeVerifier{}, &fakeNotifier{})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable error", domain.NewRetryableError(errors.New("boom")), true},
		{"already claimed", domain.ErrJobAlreadyClaimed, false},
		{"max retries exceeded", domain.ErrMaxRetriesExceeded, false},
		{"invalid payload", domain.ErrInvalidPayload, false},
		{"unknown error", errors.New("mystery"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeueJob(tt.err))
		})
	}
}
