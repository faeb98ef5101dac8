package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onboardhq/merchant-verify/internal/metrics"
)

// Result is the outcome of verifying a merchant.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Config holds the verification service settings
type Config struct {
	Logger       *slog.Logger
	Cache        ResultCache
	Checker      Checker
	Metrics      *metrics.Metrics
	CacheTTL     time.Duration
	CheckTimeout time.Duration
}

// Service computes verification outcomes, consulting the shared result cache
// first and writing through on a fresh computation. Safe for concurrent use
// across worker instances; the cache is the only shared state.
type Service struct {
	logger       *slog.Logger
	cache        ResultCache
	checker      Checker
	metrics      *metrics.Metrics
	cacheTTL     time.Duration
	checkTimeout time.Duration
}

// NewService creates a new verification service
func NewService(cfg *Config) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	checkTimeout := cfg.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = 10 * time.Second
	}

	return &Service{
		logger:       cfg.Logger,
		cache:        cfg.Cache,
		checker:      cfg.Checker,
		metrics:      cfg.Metrics,
		cacheTTL:     cacheTTL,
		checkTimeout: checkTimeout,
	}
}

// Verify returns the verification outcome for a merchant.
//
// An unexpired cache entry is authoritative and returned without
// recomputation. On a miss the external authority is consulted under an
// explicit timeout and its verdict, either polarity, is written through with
// the configured TTL. A non-nil error means infrastructure failure (cache
// unreachable, authority unreachable); no verdict was obtained and nothing
// was cached, so the caller's retry machinery should reprocess the job.
func (s *Service) Verify(ctx context.Context, merchantID string) (Result, error) {
	outcome, ok, err := s.cache.Get(ctx, merchantID)
	if err != nil {
		return Result{Success: false, Message: "verification cache unavailable"},
			fmt.Errorf("verify merchant %s: %w", merchantID, err)
	}

	if ok {
		s.metrics.CacheHits.Inc()
		s.logger.Debug("Verification cache hit",
			slog.String("merchant_id", merchantID),
			slog.Bool("outcome", outcome),
		)
		return Result{Success: outcome}, nil
	}

	s.metrics.CacheMisses.Inc()

	checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	verdict, err := s.checker.Check(checkCtx, merchantID)
	if err != nil {
		// Infrastructure error, not a verdict: never cached.
		s.logger.Error("Verification authority check failed",
			slog.String("merchant_id", merchantID),
			slog.String("error", err.Error()),
		)
		return Result{Success: false, Message: "verification authority unavailable"},
			fmt.Errorf("verify merchant %s: %w", merchantID, err)
	}

	// Both polarities are cached to avoid hammering the authority on
	// repeated bad submissions.
	if err := s.cache.Set(ctx, merchantID, verdict.Verified, s.cacheTTL); err != nil {
		// The verdict exists; a failed write only costs a recomputation later.
		s.logger.Warn("Failed to cache verification outcome",
			slog.String("merchant_id", merchantID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Verification computed",
		slog.String("merchant_id", merchantID),
		slog.Bool("verified", verdict.Verified),
	)

	return Result{Success: verdict.Verified, Message: verdict.Reason}, nil
}
