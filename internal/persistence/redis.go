package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/limiter"
)

// Redis is the counter store behind the attempt limiter.
type Redis struct {
	Client    *redis.Client
	keyPrefix string
}

// NewThrottleRedis builds the limiter's client. An unreachable server is
// logged, not fatal: the limiter then reports ErrRedisUnavailable per call.
func NewThrottleRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	timeout := cfg.Timeout()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   cfg.KeyPrefix + "-throttle",
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("throttle redis unreachable", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("throttle redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client, keyPrefix: cfg.KeyPrefix}
}

// Limiter returns an attempt limiter whose counters live under the configured key prefix.
func (r *Redis) Limiter(throttle config.ThrottleConfig) *limiter.AttemptLimiter {
	return limiter.New(r.Client, limiter.Config{
		MaxAttempts: throttle.MaxAttempts,
		Window:      throttle.Window(),
		Prefix:      r.keyPrefix,
	})
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
