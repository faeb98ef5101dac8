package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"
)

// Verdict is an explicit answer from the verification authority. A negative
// verdict is a valid outcome, distinct from the authority being unreachable.
type Verdict struct {
	Verified bool
	Reason   string
}

// Checker consults the external verification authority for a merchant.
// An error return means the check itself failed (transport error, timeout,
// unexpected status) and no verdict was obtained.
type Checker interface {
	Check(ctx context.Context, merchantID string) (Verdict, error)
}

// HTTPChecker calls a verification authority over HTTP. The base URL is
// injected from config so tests can point to a local mock.
type HTTPChecker struct {
	url        string
	httpClient *http.Client
}

// NewHTTPChecker constructs a checker against the given authority URL with
// an explicit request timeout.
func NewHTTPChecker(url string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type checkRequest struct {
	MerchantID string `json:"merchantId"`
}

type checkResponse struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

// Check posts the merchant identifier to the authority and maps the response
// to a verdict. Any non-200 status is an infrastructure failure, not a verdict.
func (c *HTTPChecker) Check(ctx context.Context, merchantID string) (Verdict, error) {
	body, err := json.Marshal(checkRequest{MerchantID: merchantID})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("create check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("call verification authority: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("unexpected authority status: %d", resp.StatusCode)
	}

	var checkResp checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkResp); err != nil {
		return Verdict{}, fmt.Errorf("decode authority response: %w", err)
	}

	return Verdict{
		Verified: checkResp.Verified,
		Reason:   checkResp.Reason,
	}, nil
}

var _ Checker = (*HTTPChecker)(nil)

// MockChecker returns a randomized verdict. It stands in for the real
// authority in development and test environments only.
type MockChecker struct{}

// NewMockChecker constructs the randomized placeholder checker.
func NewMockChecker() *MockChecker {
	return &MockChecker{}
}

// Check flips a coin.
func (c *MockChecker) Check(ctx context.Context, merchantID string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	if rand.IntN(2) == 0 {
		return Verdict{Verified: false, Reason: "merchant did not pass mock screening"}, nil
	}
	return Verdict{Verified: true}, nil
}

var _ Checker = (*MockChecker)(nil)
