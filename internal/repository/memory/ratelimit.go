package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateLimiter is a fixed one-minute window limiter kept in process memory
type RateLimiter struct {
	mu    sync.Mutex
	cache *cache.Cache
	limit int
}

func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		cache: cache.New(time.Minute, 2*time.Minute),
		limit: requestsPerMinute + burst,
	}
}

// Allow counts a request against key.
// Returns (allowed, remaining, resetTime, error)
func (r *RateLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	windowStart := time.Now().Truncate(time.Minute)
	windowEnd := windowStart.Add(time.Minute)
	fullKey := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	r.mu.Lock()
	defer r.mu.Unlock()

	count, err := r.cache.IncrementInt(fullKey, 1)
	if err != nil {
		r.cache.Set(fullKey, 1, time.Until(windowEnd)+time.Second)
		count = 1
	}

	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= r.limit, remaining, windowEnd, nil
}
