package dto

// SubmitMerchantRequest is the merchant submission payload. Only the merchant
// identifier drives the pipeline; the remaining fields are logged for context.
type SubmitMerchantRequest struct {
	MerchantID   string `json:"merchantId" binding:"required"`
	BusinessName string `json:"businessName"`
	Country      string `json:"country"`
	ContactEmail string `json:"contactEmail"`
}

// WebhookEventRequest is an externally-triggered verification event
type WebhookEventRequest struct {
	MerchantID string `json:"merchantId" binding:"required"`
	Event      string `json:"event"`
}

// QueueMessage is the wire shape published to the verification queue
type QueueMessage struct {
	JobID      string `json:"jobId"`
	MerchantID string `json:"merchantId"`
}

type ListJobsRequest struct {
	MerchantID string `form:"merchant_id"`
	Status     string `form:"status"`
	PageSize   int    `form:"page_size"`
	Cursor     string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []VerificationJobDTO `json:"jobs"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type VerificationJobDTO struct {
	JobID      string `json:"jobId"`
	MerchantID string `json:"merchantId"`
	Status     string `json:"status"`
	Outcome    *bool  `json:"outcome,omitempty"`
	RetryCount int    `json:"retryCount"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}
