package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore backs fixed-window counters with Redis. INCR gives the atomic
// increment; the window TTL is set on the first hit and the window start is
// derived back from the remaining TTL, so no second key is needed.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Hit implements CounterStore.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr %s: %w", key, err)
	}

	now := s.now()

	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire %s: %w", key, err)
		}
		return count, now, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis pttl %s: %w", key, err)
	}
	if ttl < 0 {
		// Counter survived without a TTL (e.g. expiry raced a flush); pin a
		// fresh window so the key cannot grow unbounded.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire %s: %w", key, err)
		}
		return count, now, nil
	}

	return count, now.Add(ttl - window), nil
}
