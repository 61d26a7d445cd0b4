package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageRedis "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/redis"
)

func newLimiter(t *testing.T, perMinute, per10Sec int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(storageRedis.NewClient(client), perMinute, per10Sec), mr
}

func TestLimiterBlocksOn10SecondWindow(t *testing.T) {
	limiter, mr := newLimiter(t, 100, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, "42")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt #%d", i+1)
		assert.Zero(t, retryAfter)
	}

	retryAfter, allowed, err := limiter.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Positive(t, retryAfter)
	assert.LessOrEqual(t, retryAfter, int64(10))

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, "42")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	limiter, mr := newLimiter(t, 3, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, allowed, err := limiter.Allow(ctx, "77")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	retryAfter, allowed, err := limiter.Allow(ctx, "77")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, int64(10))

	mr.FastForward(61 * time.Second)

	_, allowed, err = limiter.Allow(ctx, "77")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterUsersAreIndependent(t *testing.T) {
	limiter, _ := newLimiter(t, 1, 0)
	ctx := context.Background()

	_, allowed, err := limiter.Allow(ctx, "1")
	require.NoError(t, err)
	require.True(t, allowed)

	_, allowed, err = limiter.Allow(ctx, "2")
	require.NoError(t, err)
	assert.True(t, allowed)

	_, allowed, err = limiter.Allow(ctx, "1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimiterRejectsEmptyUser(t *testing.T) {
	limiter, _ := newLimiter(t, 1, 1)

	_, _, err := limiter.Allow(context.Background(), "")
	assert.Error(t, err)
}
