package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onboardhq/merchant-verify/internal/api/domain"
	"github.com/onboardhq/merchant-verify/internal/api/dto"
	"github.com/onboardhq/merchant-verify/internal/api/model"
	"github.com/onboardhq/merchant-verify/internal/api/storage"
)

// SubmitMerchant handles POST /merchant/submit
// Accepts a merchant submission and enqueues a verification job. The caller
// gets an immediate acknowledgment; the outcome is delivered later through
// the notification side channel.
func (h *VerificationHandler) SubmitMerchant(c *gin.Context) {
	var req dto.SubmitMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid submission body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	h.logger.Info("Merchant submission received",
		slog.String("merchant_id", req.MerchantID),
		slog.String("business_name", req.BusinessName),
	)

	job, err := h.enqueueVerification(c, req.MerchantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to accept submission",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    toJobDTO(job),
	})
}

// ExternalVerificationWebhook handles POST /webhook/external-verification
// Drives verification for a merchant from an externally-triggered event.
func (h *VerificationHandler) ExternalVerificationWebhook(c *gin.Context) {
	var req dto.WebhookEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid webhook body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	h.logger.Info("External verification event received",
		slog.String("merchant_id", req.MerchantID),
		slog.String("event", req.Event),
	)

	if _, err := h.enqueueVerification(c, req.MerchantID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to process webhook",
		})
		return
	}

	c.String(http.StatusOK, "ok")
}

// enqueueVerification persists a PENDING job row and publishes the queue
// message. The handler responds as soon as the publish succeeds; it never
// blocks on worker completion. Internal error detail is logged, not returned.
func (h *VerificationHandler) enqueueVerification(c *gin.Context, merchantID string) (*model.VerificationJob, error) {
	now := time.Now()
	job := &model.VerificationJob{
		JobID:      uuid.New().String(),
		MerchantID: merchantID,
		Status:     domain.JobStatusPending,
		MaxRetries: h.defaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx := c.Request.Context()

	if err := h.store.CreateJob(ctx, job); err != nil {
		h.logger.Error("Failed to create verification job",
			slog.String("merchant_id", merchantID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	body, err := json.Marshal(dto.QueueMessage{
		JobID:      job.JobID,
		MerchantID: job.MerchantID,
	})
	if err != nil {
		h.logger.Error("Failed to marshal queue message",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := h.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		h.logger.Error("Failed to publish verification job",
			slog.String("job_id", job.JobID),
			slog.String("merchant_id", merchantID),
			slog.String("error", err.Error()),
		)
		if markErr := h.store.MarkJobFailed(ctx, job.JobID, "failed to enqueue"); markErr != nil {
			h.logger.Error("Failed to mark unpublished job failed",
				slog.String("job_id", job.JobID),
				slog.String("error", markErr.Error()),
			)
		}
		return nil, err
	}

	h.metrics.JobsEnqueued.Inc()
	h.logger.Info("Verification job enqueued",
		slog.String("job_id", job.JobID),
		slog.String("merchant_id", merchantID),
	)

	return job, nil
}

// GetJob handles GET /api/v1/verification/jobs/:job_id
func (h *VerificationHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toJobDTO(job),
	})
}

// ListJobs handles GET /api/v1/verification/jobs
// Lists verification jobs with optional filtering and cursor pagination
func (h *VerificationHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		MerchantID: req.MerchantID,
		Status:     req.Status,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.VerificationJobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = toJobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor, err = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

func toJobDTO(job *model.VerificationJob) dto.VerificationJobDTO {
	d := dto.VerificationJobDTO{
		JobID:      job.JobID,
		MerchantID: job.MerchantID,
		Status:     job.Status,
		RetryCount: job.RetryCount,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Outcome.Valid {
		outcome := job.Outcome.Bool
		d.Outcome = &outcome
	}
	return d
}
