package verification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefix for verification outcomes
const cacheKeyPrefix = "merchant_verification:"

// ResultCache is the shared, cross-process store of verification outcomes.
// Absence of an entry is a normal result, never an error.
type ResultCache interface {
	// Get returns the cached outcome for a merchant. ok is false when no
	// unexpired entry exists.
	Get(ctx context.Context, merchantID string) (outcome bool, ok bool, err error)

	// Set stores the outcome with an expiry starting at write time,
	// overwriting any prior entry. Last write wins.
	Set(ctx context.Context, merchantID string, outcome bool, ttl time.Duration) error
}

// RedisCache is the Redis-backed ResultCache used in production. Entries are
// the strings "true"/"false" under merchant_verification:{merchantId}.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache constructs a Redis-backed result cache.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func cacheKey(merchantID string) string {
	return cacheKeyPrefix + merchantID
}

// Get looks up a cached outcome. A missing key maps to ok=false.
func (c *RedisCache) Get(ctx context.Context, merchantID string) (bool, bool, error) {
	val, err := c.rdb.Get(ctx, cacheKey(merchantID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("cache get for merchant %s: %w", merchantID, err)
	}

	outcome, err := strconv.ParseBool(val)
	if err != nil {
		return false, false, fmt.Errorf("cache entry for merchant %s is not a boolean: %w", merchantID, err)
	}

	return outcome, true, nil
}

// Set writes an outcome through to Redis with the given TTL.
func (c *RedisCache) Set(ctx context.Context, merchantID string, outcome bool, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, cacheKey(merchantID), strconv.FormatBool(outcome), ttl).Err(); err != nil {
		return fmt.Errorf("cache set for merchant %s: %w", merchantID, err)
	}
	return nil
}

var _ ResultCache = (*RedisCache)(nil)
