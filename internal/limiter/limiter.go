// Package limiter throttles repeated authentication attempts with Redis counters.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("limiter redis unavailable")
)

// Scope namespaces counters per flow.
type Scope string

const (
	ScopeLogin       Scope = "login"
	ScopeVerifyEmail Scope = "verify"
	ScopeResetOTP    Scope = "reset"
)

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

// AttemptLimiter counts failed attempts per key inside a fixed window.
type AttemptLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a limiter. A nil client yields a limiter that never blocks.
func New(redisClient redis.UniversalClient, cfg Config) *AttemptLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "idt"
	}
	return &AttemptLimiter{redis: redisClient, config: cfg}
}

// Check returns ErrRateLimited once the key has used its budget.
func (l *AttemptLimiter) Check(ctx context.Context, scope Scope, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(scope, key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failed attempt.
func (l *AttemptLimiter) Fail(ctx context.Context, scope Scope, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	k := l.key(scope, key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// fixed window: TTL is only set by the first hit
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter after a successful attempt.
func (l *AttemptLimiter) Reset(ctx context.Context, scope Scope, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(scope, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *AttemptLimiter) key(scope Scope, key string) string {
	return l.config.Prefix + ":" + string(scope) + ":" + key
}
