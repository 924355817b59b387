package stores

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisReplaySet keeps redeemed identities in a single Redis set. SADD is the
// atomic check-and-add, so several processes may share one key.
type RedisReplaySet struct {
	redis redis.UniversalClient
	key   string
}

func NewRedisReplaySet(redisClient redis.UniversalClient, key string) *RedisReplaySet {
	if key == "" {
		key = "gpr:redeemed"
	}
	return &RedisReplaySet{
		redis: redisClient,
		key:   key,
	}
}

func (s *RedisReplaySet) Contains(ctx context.Context, identity string) (bool, error) {
	ok, err := s.redis.SIsMember(ctx, s.key, normalizeIdentity(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	return ok, nil
}

func (s *RedisReplaySet) Add(ctx context.Context, identity string) (bool, error) {
	normalized := normalizeIdentity(identity)
	if normalized == "" {
		return false, fmt.Errorf("%w: empty identity", ErrReplayUnavailable)
	}

	// The write must not be abandoned halfway by a caller cancellation.
	added, err := s.redis.SAdd(context.WithoutCancel(ctx), s.key, normalized).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	return added == 1, nil
}

func (s *RedisReplaySet) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	return nil
}

func (s *RedisReplaySet) Len(ctx context.Context) (int, error) {
	n, err := s.redis.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	return int(n), nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisReplaySet) Close() error {
	return nil
}
