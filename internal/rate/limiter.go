package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys.
const DefaultPrefix = "apollo:rate"

// Config holds limiter tuning parameters. A zero limit disables that check.
type Config struct {
	Prefix            string
	RequestsPerWindow int
	Window            time.Duration
	MaxLoginFailures  int
	LoginCooldown     time.Duration
}

// Limiter enforces per-address request budgets and per-email failed login
// budgets with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.LoginCooldown <= 0 {
		cfg.LoginCooldown = 15 * time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Allow counts one request from addr and reports ErrRateLimited once the
// window's budget is exceeded.
func (l *Limiter) Allow(ctx context.Context, addr string) error {
	if l.config.RequestsPerWindow <= 0 || addr == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.requestKey(addr), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.RequestsPerWindow) {
		return ErrRateLimited
	}
	return nil
}

// CheckLogin reports ErrRateLimited while email is cooling down after too
// many failed logins.
func (l *Limiter) CheckLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}

	count, err := l.redis.Get(ctx, l.loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginFailures) {
		return ErrRateLimited
	}
	return nil
}

// RecordLoginFailure counts a failed login for email.
func (l *Limiter) RecordLoginFailure(ctx context.Context, email string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.loginKey(email), l.config.LoginCooldown)
	return err
}

// ResetLogin clears the failed-login counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	if err := l.redis.Del(ctx, l.loginKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) requestKey(addr string) string {
	return l.config.Prefix + ":req:" + addr
}

func (l *Limiter) loginKey(email string) string {
	return l.config.Prefix + ":login:" + strings.ToLower(email)
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
