package access

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acolhida/acolhida/internal/platform/cache"
)

const DefaultRedisKey = "acolhida:access_settings"

// RedisCache is the SharedCache backed by a single JSON value in Redis.
type RedisCache struct {
	client redis.Cmdable
	key    string
}

func NewRedisCache(client redis.Cmdable, key string) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{client: client, key: key}
}

func (c *RedisCache) Get(ctx context.Context) (Settings, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if cache.IsMiss(err) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next load.
		return Settings{}, false, nil
	}
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, s Settings, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, raw, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
