package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCheckerVerdicts(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantErr      bool
		wantVerified bool
		wantReason   string
	}{
		{
			name:         "positive verdict",
			status:       http.StatusOK,
			body:         `{"verified": true}`,
			wantVerified: true,
		},
		{
			name:         "negative verdict with reason",
			status:       http.StatusOK,
			body:         `{"verified": false, "reason": "documents rejected"}`,
			wantVerified: false,
			wantReason:   "documents rejected",
		},
		{
			name:    "authority error status",
			status:  http.StatusInternalServerError,
			body:    `{}`,
			wantErr: true,
		},
		{
			name:    "malformed response body",
			status:  http.StatusOK,
			body:    `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)

				var req checkRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "M-001", req.MerchantID)

				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			checker := NewHTTPChecker(srv.URL, time.Second)
			verdict, err := checker.Check(context.Background(), "M-001")

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantVerified, verdict.Verified)
			assert.Equal(t, tt.wantReason, verdict.Reason)
		})
	}
}

func TestHTTPCheckerUnreachableAuthority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Immediately closed: connection refused

	checker := NewHTTPChecker(srv.URL, time.Second)
	_, err := checker.Check(context.Background(), "M-001")
	require.Error(t, err)
}

func TestMockChecker(t *testing.T) {
	checker := NewMockChecker()

	verdict, err := checker.Check(context.Background(), "M-001")
	require.NoError(t, err)
	if !verdict.Verified {
		assert.NotEmpty(t, verdict.Reason)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = checker.Check(ctx, "M-001")
	require.Error(t, err)
}
