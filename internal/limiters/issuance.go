package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrIssuanceRateLimited        = errors.New("issuance rate limited")
	ErrIssuanceLimiterUnavailable = errors.New("issuance limiter unavailable")
)

// IssuanceConfig bounds how many tokens one identity may request per window.
type IssuanceConfig struct {
	EnableIdentityThrottle bool
	EnableIPThrottle       bool
	MaxRequests            int
	Window                 time.Duration
}

// IssuanceLimiter is a fixed-window counter per identity and per client IP.
type IssuanceLimiter struct {
	redis  redis.UniversalClient
	config IssuanceConfig
}

func NewIssuanceLimiter(redisClient redis.UniversalClient, cfg IssuanceConfig) *IssuanceLimiter {
	return &IssuanceLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRequest counts one issuance request and fails once the window budget
// is spent. A nil limiter admits everything.
func (l *IssuanceLimiter) CheckRequest(ctx context.Context, identity, ip string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if l.config.EnableIdentityThrottle && identity != "" {
		if err := l.enforceFixedWindow(ctx, issuanceIdentityKey(identity)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, issuanceIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *IssuanceLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIssuanceLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrIssuanceLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		return ErrIssuanceRateLimited
	}

	return nil
}

func issuanceIdentityKey(identity string) string {
	return "gpi:" + identity
}

func issuanceIPKey(ip string) string {
	return "gpip:" + ip
}
