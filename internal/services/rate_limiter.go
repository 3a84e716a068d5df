package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"iap-verification-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window request limit per key. With a Redis
// client the window counters are shared across instances; without one they
// live in an in-process map that is swept periodically.
type RateLimiter struct {
	client *redis.Client
	window time.Duration

	mutex       sync.Mutex
	counters    map[string]*windowCounter
	stopCleanup chan bool
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		client:      client,
		window:      window,
		counters:    make(map[string]*windowCounter),
		stopCleanup: make(chan bool),
	}
	if client == nil {
		go l.startCleanupRoutine()
	}
	return l
}

// Allow reports whether the request identified by key fits within limit
// requests per window. A limit of zero or less disables limiting.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	if l.client != nil {
		return l.allowRedis(ctx, key, limit)
	}
	return l.allowMemory(key, limit), nil
}

func (l *RateLimiter) allowRedis(ctx context.Context, key string, limit int) (bool, error) {
	redisKey := fmt.Sprintf("rate_limit:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}
	return count <= int64(limit), nil
}

func (l *RateLimiter) allowMemory(key string, limit int) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	c, exists := l.counters[key]
	if !exists || now.After(c.resetAt) {
		l.counters[key] = &windowCounter{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	c.count++
	return c.count <= limit
}

// startCleanupRoutine 定期清理过期的计数器
func (l *RateLimiter) startCleanupRoutine() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *RateLimiter) cleanup() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	initialCount := len(l.counters)

	for key, c := range l.counters {
		if now.After(c.resetAt) {
			delete(l.counters, key)
		}
	}

	if cleaned := initialCount - len(l.counters); cleaned > 0 {
		logging.Infof("Rate limiter cleanup: removed %d expired windows, remaining: %d", cleaned, len(l.counters))
	}
}

// Stop stops the in-memory cleanup goroutine.
func (l *RateLimiter) Stop() {
	if l.client == nil {
		close(l.stopCleanup)
	}
}
