package domain

// Job represents a verification job row claimed by a worker
type Job struct {
	JobID      string
	MerchantID string
	Status     string
	WorkerID   string
	RetryCount int
	MaxRetries int
}

// JobMessage represents a verification job message from RabbitMQ.
// The wire shape carries the merchant identifier plus the bookkeeping row key.
type JobMessage struct {
	JobID       string `json:"jobId"`
	MerchantID  string `json:"merchantId"`
	DeliveryTag uint64 `json:"-"`
}
