package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhq/merchant-verify/internal/api/domain"
	"github.com/onboardhq/merchant-verify/internal/api/model"
	"github.com/onboardhq/merchant-verify/internal/api/storage"
	"github.com/onboardhq/merchant-verify/internal/metrics"
)

type fakeStore struct {
	createErr error
	getJob    *model.VerificationJob
	getErr    error
	listJobs  []model.VerificationJob
	listErr   error

	created []*model.VerificationJob
	failed  []string
}

func (s *fakeStore) CreateJob(ctx context.Context, job *model.VerificationJob) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, job)
	return nil
}

func (s *fakeStore) GetJobByID(ctx context.Context, jobID string) (*model.VerificationJob, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getJob, nil
}

func (s *fakeStore) MarkJobFailed(ctx context.Context, jobID, errorMsg string) error {
	s.failed = append(s.failed, jobID)
	return nil
}

func (s *fakeStore) ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.VerificationJob, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listJobs, nil
}

type fakePublisher struct {
	err       error
	published [][]byte
}

func (p *fakePublisher) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, body)
	return nil
}

func newTestRouter(store *fakeStore, publisher *fakePublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewVerificationHandler(&Dependencies{
		Logger:            slog.New(slog.DiscardHandler),
		Store:             store,
		Publisher:         publisher,
		Metrics:           metrics.New(prometheus.NewRegistry()),
		DefaultMaxRetries: 3,
	})

	r := gin.New()
	r.POST("/merchant/submit", h.SubmitMerchant)
	r.POST("/webhook/external-verification", h.ExternalVerificationWebhook)
	r.GET("/api/v1/verification/jobs/:job_id", h.GetJob)
	r.GET("/api/v1/verification/jobs", h.ListJobs)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitMerchantEnqueuesJob(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	r := newTestRouter(store, publisher)

	w := doJSON(t, r, http.MethodPost, "/merchant/submit", gin.H{
		"merchantId":   "M-001",
		"businessName": "Acme Ltd",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			JobID      string `json:"jobId"`
			MerchantID string `json:"merchantId"`
			Status     string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "M-001", resp.Data.MerchantID)
	assert.Equal(t, domain.JobStatusPending, resp.Data.Status)
	assert.NotEmpty(t, resp.Data.JobID)

	require.Len(t, store.created, 1)
	assert.Equal(t, 3, store.created[0].MaxRetries)

	// The queue payload carries the jobId/merchantId wire shape
	require.Len(t, publisher.published, 1)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, "M-001", msg["merchantId"])
	assert.Equal(t, resp.Data.JobID, msg["jobId"])
}

func TestSubmitMerchantMissingMerchantID(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	r := newTestRouter(store, publisher)

	w := doJSON(t, r, http.MethodPost, "/merchant/submit", gin.H{
		"businessName": "Acme Ltd",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.created)
	assert.Empty(t, publisher.published)
}

func TestSubmitMerchantStoreFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	publisher := &fakePublisher{}
	r := newTestRouter(store, publisher)

	w := doJSON(t, r, http.MethodPost, "/merchant/submit", gin.H{"merchantId": "M-001"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down", "internal error detail must not leak to the client")
	assert.Empty(t, publisher.published)
}

func TestSubmitMerchantPublishFailureMarksJobFailed(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{err: errors.New("broker down")}
	r := newTestRouter(store, publisher)

	w := doJSON(t, r, http.MethodPost, "/merchant/submit", gin.H{"merchantId": "M-001"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, []string{store.created[0].JobID}, store.failed)
}

func TestExternalVerificationWebhook(t *testing.T) {
	store := &fakeStore{}
	publisher := &fakePublisher{}
	r := newTestRouter(store, publisher)

	w := doJSON(t, r, http.MethodPost, "/webhook/external-verification", gin.H{
		"merchantId": "M-002",
		"event":      "document.updated",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	require.Len(t, store.created, 1)
	assert.Equal(t, "M-002", store.created[0].MerchantID)
	assert.Len(t, publisher.published, 1)
}

func TestExternalVerificationWebhookFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	publisher := &fakePublisher{}
	r := newTestRouter(store, publisher)

	w := doJSON(t, r, http.MethodPost, "/webhook/external-verification", gin.H{"merchantId": "M-002"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetJob(t *testing.T) {
	jobID := "6f1e1d0a-7c2b-4c1e-9f5a-2b8d3e4c5a6b"

	tests := []struct {
		name       string
		path       string
		store      *fakeStore
		wantStatus int
	}{
		{
			name: "found",
			path: "/api/v1/verification/jobs/" + jobID,
			store: &fakeStore{getJob: &model.VerificationJob{
				JobID:      jobID,
				MerchantID: "M-001",
				Status:     domain.JobStatusCompleted,
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			path:       "/api/v1/verification/jobs/" + jobID,
			store:      &fakeStore{getErr: domain.ErrJobNotFound},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid uuid",
			path:       "/api/v1/verification/jobs/nope",
			store:      &fakeStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage error",
			path:       "/api/v1/verification/jobs/" + jobID,
			store:      &fakeStore{getErr: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.store, &fakePublisher{})
			w := doJSON(t, r, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestListJobs(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		listJobs: []model.VerificationJob{
			{JobID: "a", MerchantID: "M-001", Status: domain.JobStatusCompleted, CreatedAt: now, UpdatedAt: now},
			{JobID: "b", MerchantID: "M-002", Status: domain.JobStatusPending, CreatedAt: now, UpdatedAt: now},
		},
	}
	r := newTestRouter(store, &fakePublisher{})

	w := doJSON(t, r, http.MethodGet, "/api/v1/verification/jobs?page_size=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Jobs       []map[string]any `json:"jobs"`
		NextCursor string           `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, 2)
	assert.Empty(t, resp.NextCursor, "no next cursor when all results fit one page")
}
