package redis

import (
	"context"
	"fmt"
	"time"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter is a fixed one-minute window limiter
type RateLimiter struct {
	client            *Client
	requestsPerMinute int
	burst             int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client:            client,
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
	}
}

// Allow counts a request against key.
// Returns (allowed, remaining, resetTime, error)
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowStart := time.Now().Truncate(time.Minute)
	windowEnd := windowStart.Add(time.Minute)
	fullKey := rateLimitKey(key, windowStart)

	pipe := r.client.rdb.TxPipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	allowed, remaining := evaluate(incrCmd.Val(), r.requestsPerMinute+r.burst)
	return allowed, remaining, windowEnd, nil
}

func rateLimitKey(key string, window time.Time) string {
	return fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, window.Unix())
}

func evaluate(count int64, limit int) (bool, int) {
	remaining := int(int64(limit) - count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(limit), remaining
}
