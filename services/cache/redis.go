package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

const scanCount = 100

// RedisCache is a core.Cache backed by Redis.
// A RedisCache without client is disabled: every Get misses and every write is a no-op.
type RedisCache struct {
	client *redis.Client
}

var _ core.Cache = (*RedisCache)(nil)

// NewRedisCache connects to the configured Redis server.
// Redis is optional: the returned cache is disabled when nothing is configured or the server is unreachable.
func NewRedisCache(conf *core.Config, logger core.Logger) *RedisCache {
	var opts *redis.Options
	switch {
	case conf.Redis.URL != "":
		opt, err := redis.ParseURL(conf.Redis.URL)
		if err != nil {
			logger.Warn("invalid redis url, cache disabled", errors.Wrap(err, "cachesvc.NewRedisCache"))
			return &RedisCache{}
		}
		opts = opt
	case conf.Redis.Addr != "":
		opts = &redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}
	default:
		logger.Info("redis not configured, cache disabled")
		return &RedisCache{}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, cache disabled", errors.Wrap(err, "cachesvc.NewRedisCache"))
		_ = client.Close()
		return &RedisCache{}
	}
	logger.Info("connected to redis at " + opts.Addr)
	return &RedisCache{client: client}
}

func (c *RedisCache) Enabled() bool { return c.client != nil }

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, errors.Wrap(err, "getting "+key)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrap(err, "decoding "+key)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding "+key)
	}
	return errors.Wrap(c.client.Set(ctx, key, data, ttl).Err(), "setting "+key)
}

// DeletePrefix removes every key starting with prefix.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	if c.client == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return errors.Wrap(err, "scanning "+prefix)
		}
		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "deleting "+prefix)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
