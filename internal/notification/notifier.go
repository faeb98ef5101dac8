package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Outcome messages delivered to merchants
const (
	MessageVerificationSucceeded = "Verification successful!"
	MessageVerificationFailed    = "Verification failed!"
)

// Notifier delivers a verification outcome message to a merchant out-of-band.
// Fire-and-forget from the pipeline's perspective: a delivery failure is the
// caller's to log, never to fail a job over.
type Notifier interface {
	Notify(ctx context.Context, merchantID, message string) error
}

// WebhookNotifier posts outcome messages to a configured notification sink.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier constructs a notifier against the given sink URL with an
// explicit request timeout.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type notifyRequest struct {
	MerchantID string `json:"merchantId"`
	Message    string `json:"message"`
}

// Notify posts the message to the sink. Any non-2xx status is a delivery
// failure.
func (n *WebhookNotifier) Notify(ctx context.Context, merchantID, message string) error {
	body, err := json.Marshal(notifyRequest{
		MerchantID: merchantID,
		Message:    message,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected notification sink status: %d", resp.StatusCode)
	}

	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)

// LogNotifier writes the notification to the application log. Used in
// development environments without a real sink.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (n *LogNotifier) Notify(ctx context.Context, merchantID, message string) error {
	n.logger.Info("Merchant notification",
		slog.String("merchant_id", merchantID),
		slog.String("message", message),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
