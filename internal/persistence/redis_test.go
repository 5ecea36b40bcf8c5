package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/limiter"
)

func TestThrottleRedis_LimiterUsesPrefixAndDB(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	ctx := context.Background()

	r := NewThrottleRedis(ctx, config.RedisConfig{Addr: mr.Addr(), DB: 2, KeyPrefix: "auth"}, zap.NewNop())
	t.Cleanup(r.Close)
	require.NoError(t, r.Ping(ctx))

	l := r.Limiter(config.ThrottleConfig{MaxAttempts: 2, WindowMinutes: 5})
	require.NoError(t, l.Fail(ctx, limiter.ScopeLogin, "alice@example.com"))
	require.NoError(t, l.Fail(ctx, limiter.ScopeLogin, "alice@example.com"))
	assert.ErrorIs(t, l.Check(ctx, limiter.ScopeLogin, "alice@example.com"), limiter.ErrRateLimited)

	db := mr.DB(2)
	assert.True(t, db.Exists("auth:login:alice@example.com"))
	assert.Equal(t, 5*time.Minute, db.TTL("auth:login:alice@example.com"))
	assert.False(t, mr.Exists("auth:login:alice@example.com"))
}

func TestThrottleRedis_UnreachableIsNotFatal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	ctx := context.Background()
	r := NewThrottleRedis(ctx, config.RedisConfig{Addr: addr, KeyPrefix: "auth", TimeoutSeconds: 1}, zap.NewNop())
	t.Cleanup(r.Close)
	assert.Error(t, r.Ping(ctx))

	err = r.Limiter(config.ThrottleConfig{}).Fail(ctx, limiter.ScopeLogin, "alice@example.com")
	assert.ErrorIs(t, err, limiter.ErrRedisUnavailable)
}
