package budget

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps the consumption ledger in a single redis key so that
// concurrent refresh batches observe the same quota. The key is expected to
// be rotated externally when the provider quota window resets.
type RedisCounter struct {
	rdb *redis.Client
	key string
}

func NewRedisCounter(rdb *redis.Client, key string) *RedisCounter {
	return &RedisCounter{rdb: rdb, key: key}
}

func (c *RedisCounter) Get(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, c.key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (c *RedisCounter) Add(ctx context.Context, delta int64) (int64, error) {
	return c.rdb.IncrBy(ctx, c.key, delta).Result()
}
