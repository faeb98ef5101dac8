package verification

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
)

// fakeCache is an in-memory ResultCache with an injectable clock so tests
// can drive TTL expiry without sleeping.
type fakeCache struct {
	now     func() time.Time
	entries map[string]fakeEntry
	getErr  error
	setErr  error
}

type fakeEntry struct {
	outcome   bool
	expiresAt time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		now:     time.Now,
		entries: make(map[string]fakeEntry),
	}
}

func (c *fakeCache) Get(ctx context.Context, merchantID string) (bool, bool, error) {
	if c.getErr != nil {
		return false, false, c.getErr
	}
	entry, ok := c.entries[merchantID]
	if !ok || c.now().After(entry.expiresAt) {
		return false, false, nil
	}
	return entry.outcome, true, nil
}

func (c *fakeCache) Set(ctx context.Context, merchantID string, outcome bool, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[merchantID] = fakeEntry{
		outcome:   outcome,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// countingChecker returns a fixed verdict or error and counts invocations.
type countingChecker struct {
	verdict Verdict
	err     error
	calls   int
}

func (c *countingChecker) Check(ctx context.Context, merchantID string) (Verdict, error) {
	c.calls++
	if c.err != nil {
		return Verdict{}, c.err
	}
	return c.verdict, nil
}

func newTestService(cache ResultCache, checker Checker) *Service {
	return NewService(&Config{
		Logger:       slog.New(slog.DiscardHandler),
		Cache:        cache,
		Checker:      checker,
		Metrics:      metrics.New(prometheus.NewRegistry()),
		CacheTTL:     time.Hour,
		CheckTimeout: time.Second,
	})
}

func TestVerifyComputesOnceWithinTTL(t *testing.T) {
	cache := newFakeCache()
	checker := &countingChecker{verdict: Verdict{Verified: true}}
	svc := newTestService(cache, checker)

	first, err := svc.Verify(context.Background(), "M-001")
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := svc.Verify(context.Background(), "M-001")
	require.NoError(t, err)
	assert.Equal(t, first.Success, second.Success)

	assert.Equal(t, 1, checker.calls, "expensive computation must run only once within the TTL window")
}

func TestVerifyRecomputesAfterTTLExpiry(t *testing.T) {
	now := time.Now()
	cache := newFakeCache()
	cache.now = func() time.Time { return now }

	checker := &countingChecker{verdict: Verdict{Verified: true}}
	svc := newTestService(cache, checker)

	_, err := svc.Verify(context.Background(), "M-001")
	require.NoError(t, err)
	require.Equal(t, 1, checker.calls)

	// Advance past the TTL; the stale entry must not be reused
	now = now.Add(2 * time.Hour)

	_, err = svc.Verify(context.Background(), "M-001")
	require.NoError(t, err)
	assert.Equal(t, 2, checker.calls)
}

func TestVerifyCachesNegativeVerdict(t *testing.T) {
	cache := newFakeCache()
	checker := &countingChecker{verdict: Verdict{Verified: false, Reason: "sanctions hit"}}
	svc := newTestService(cache, checker)

	first, err := svc.Verify(context.Background(), "M-002")
	require.NoError(t, err)
	assert.False(t, first.Success)
	assert.Equal(t, "sanctions hit", first.Message)

	second, err := svc.Verify(context.Background(), "M-002")
	require.NoError(t, err)
	assert.False(t, second.Success)

	assert.Equal(t, 1, checker.calls)

	entry, ok := cache.entries["M-002"]
	require.True(t, ok)
	assert.False(t, entry.outcome)
}

func TestVerifyCacheHitSkipsAuthority(t *testing.T) {
	cache := newFakeCache()
	require.NoError(t, cache.Set(context.Background(), "M-002", false, time.Hour))

	checker := &countingChecker{verdict: Verdict{Verified: true}}
	svc := newTestService(cache, checker)

	result, err := svc.Verify(context.Background(), "M-002")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Zero(t, checker.calls, "authority must not be consulted on a cache hit")
}

func TestVerifyAuthorityFailureNotCached(t *testing.T) {
	cache := newFakeCache()
	checker := &countingChecker{err: errors.New("connection refused")}
	svc := newTestService(cache, checker)

	result, err := svc.Verify(context.Background(), "M-003")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	_, cached := cache.entries["M-003"]
	assert.False(t, cached, "an infrastructure error is not a verdict and must not be cached")
}

func TestVerifyCacheErrorPropagates(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("cache unreachable")

	checker := &countingChecker{verdict: Verdict{Verified: true}}
	svc := newTestService(cache, checker)

	_, err := svc.Verify(context.Background(), "M-004")
	require.Error(t, err)
	assert.Zero(t, checker.calls)
}

func TestVerifyCacheWriteFailureStillReturnsVerdict(t *testing.T) {
	cache := newFakeCache()
	cache.setErr = errors.New("cache write failed")

	checker := &countingChecker{verdict: Verdict{Verified: true}}
	svc := newTestService(cache, checker)

	result, err := svc.Verify(context.Background(), "M-005")
	require.NoError(t, err)
	assert.True(t, result.Success)
}
