package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// AnalyticsCache stores rendered analytics per organization. Every key embeds
// the organization's generation counter, so bumping the counter after a
// snapshot write orphans all earlier entries at once.
type AnalyticsCache struct {
	rdb     redis.Cmdable
	breaker *gobreaker.CircuitBreaker
}

func NewAnalyticsCache(rdb redis.Cmdable) *AnalyticsCache {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "analytics-cache",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().WithFields(map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return &AnalyticsCache{rdb: rdb, breaker: breaker}
}

// GenerationKey is the counter bumped whenever an organization's snapshots change.
func GenerationKey(orgID string) string {
	return fmt.Sprintf("analytics:%s:gen", orgID)
}

// AnalyticsKey builds the cache key for one analytics query.
func AnalyticsKey(orgID string, generation int64, parts ...string) string {
	key := fmt.Sprintf("analytics:%s:%d", orgID, generation)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Generation returns the current generation of orgID (0 when never bumped).
func (c *AnalyticsCache) Generation(ctx context.Context, orgID string) (int64, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Get(ctx, GenerationKey(orgID)).Int64()
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Bump invalidates every cached entry of orgID.
func (c *AnalyticsCache) Bump(ctx context.Context, orgID string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Incr(ctx, GenerationKey(orgID)).Result()
	})
	return err
}

// Get decodes the entry under key into dst. A miss returns false and no error.
func (c *AnalyticsCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.rdb.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(v.([]byte), dst); err != nil {
		return false, fmt.Errorf("failed to decode cached analytics: %w", err)
	}
	return true, nil
}

// Set stores v as JSON under key for ttl.
func (c *AnalyticsCache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, key, data, ttl).Err()
	})
	return err
}
