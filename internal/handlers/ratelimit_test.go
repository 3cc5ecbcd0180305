package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterDropsIdleBuckets(t *testing.T) {
	limiter := NewMemoryLimiter(2)
	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	limiter.lastSweep = clock
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "ratelimit:a"))
	assert.True(t, limiter.Allow(ctx, "ratelimit:a"))
	assert.False(t, limiter.Allow(ctx, "ratelimit:a"))
	assert.True(t, limiter.Allow(ctx, "ratelimit:b"))
	require.Len(t, limiter.buckets, 2)

	clock = clock.Add(limiterIdleTTL - time.Second)
	assert.True(t, limiter.Allow(ctx, "ratelimit:b"))
	require.Len(t, limiter.buckets, 2)

	clock = clock.Add(2 * time.Second)
	assert.True(t, limiter.Allow(ctx, "ratelimit:c"))
	assert.Len(t, limiter.buckets, 2, "a was idle past the ttl")
	assert.NotContains(t, limiter.buckets, "ratelimit:a")

	assert.True(t, limiter.Allow(ctx, "ratelimit:a"))
}
