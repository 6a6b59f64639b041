package draft

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores drafts as plain string values with a sliding TTL:
// every save pushes the expiry out again.
type RedisBackend struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisBackend(rdb redis.Cmdable, ttl time.Duration) *RedisBackend {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisBackend{rdb: rdb, ttl: ttl}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	return b.rdb.Set(ctx, key, value, b.ttl).Err()
}

func (b *RedisBackend) Remove(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
