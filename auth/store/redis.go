package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAPI is the subset of redis.Cmdable used by RedisSlots.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSlots keeps slots as plain Redis string keys. Keys never expire: the
// server decides when a token stops being valid, not the cache.
type RedisSlots struct {
	client RedisAPI
	prefix string
}

// NewRedisSlots creates slots stored as prefix+key.
func NewRedisSlots(client RedisAPI, prefix string) *RedisSlots {
	return &RedisSlots{client: client, prefix: prefix}
}

func (r *RedisSlots) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisSlots) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisSlots) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
