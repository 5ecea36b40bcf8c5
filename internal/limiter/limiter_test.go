package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestAttemptLimiter_BlocksAfterBudget(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	l := New(rdb, Config{MaxAttempts: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, ScopeLogin, "alice@example.com"))
		require.NoError(t, l.Fail(ctx, ScopeLogin, "alice@example.com"))
	}

	assert.ErrorIs(t, l.Check(ctx, ScopeLogin, "alice@example.com"), ErrRateLimited)
	assert.NoError(t, l.Check(ctx, ScopeLogin, "bob@example.com"))
	assert.NoError(t, l.Check(ctx, ScopeResetOTP, "alice@example.com"))
}

func TestAttemptLimiter_WindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	l := New(rdb, Config{MaxAttempts: 1, Window: time.Minute})

	require.NoError(t, l.Fail(ctx, ScopeVerifyEmail, "u1"))
	require.ErrorIs(t, l.Check(ctx, ScopeVerifyEmail, "u1"), ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.Check(ctx, ScopeVerifyEmail, "u1"))
}

func TestAttemptLimiter_ResetClearsCounter(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	l := New(rdb, Config{MaxAttempts: 1, Window: time.Minute})

	require.NoError(t, l.Fail(ctx, ScopeLogin, "alice@example.com"))
	require.NoError(t, l.Reset(ctx, ScopeLogin, "alice@example.com"))
	assert.NoError(t, l.Check(ctx, ScopeLogin, "alice@example.com"))
}

func TestAttemptLimiter_RedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	l := New(rdb, Config{MaxAttempts: 1, Window: time.Minute})

	mr.Close()
	assert.ErrorIs(t, l.Fail(ctx, ScopeLogin, "alice@example.com"), ErrRedisUnavailable)
}

func TestAttemptLimiter_NilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	l := New(nil, Config{})

	require.NoError(t, l.Fail(ctx, ScopeLogin, "x"))
	assert.NoError(t, l.Check(ctx, ScopeLogin, "x"))

	var nilLimiter *AttemptLimiter
	assert.NoError(t, nilLimiter.Check(ctx, ScopeLogin, "x"))
}
