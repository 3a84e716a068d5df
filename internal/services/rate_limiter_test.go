package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMemoryWindow(t *testing.T) {
	limiter := NewRateLimiter(nil, time.Minute)
	defer limiter.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "p1:1.2.3.4", 3)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := limiter.Allow(ctx, "p1:1.2.3.4", 3)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request must be rejected")

	// Other keys have their own windows.
	ok, err = limiter.Allow(ctx, "p1:5.6.7.8", 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter(nil, 10*time.Millisecond)
	defer limiter.Stop()

	ctx := context.Background()
	ok, err := limiter.Allow(ctx, "k", 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = limiter.Allow(ctx, "k", 1)
	require.False(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = limiter.Allow(ctx, "k", 1)
	require.NoError(t, err)
	assert.True(t, ok, "window must reset after it elapses")
}

func TestRateLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewRateLimiter(nil, time.Minute)
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		ok, err := limiter.Allow(context.Background(), "k", 0)
		require.NoError(t, err)
		require.True(t, ok)
	}
}
