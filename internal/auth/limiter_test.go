package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLoginLimiter(client, max, window), mr
}

func TestLimiterAllowsUnderThreshold(t *testing.T) {
	limiter, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))

	allowed, err = limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterBlocksAtThreshold(t *testing.T) {
	limiter, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	}

	allowed, err := limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other accounts stay unaffected.
	allowed, err = limiter.Allow(ctx, "other@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterKeyIsCaseInsensitive(t *testing.T) {
	limiter, _ := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "User@Example.com"))

	allowed, err := limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimiterResets(t *testing.T) {
	limiter, _ := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))
	require.NoError(t, limiter.Reset(ctx, "user@example.com"))

	allowed, err := limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterWindowExpires(t *testing.T) {
	limiter, mr := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "user@example.com"))

	allowed, err := limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	require.False(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, err = limiter.Allow(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, allowed)
}
