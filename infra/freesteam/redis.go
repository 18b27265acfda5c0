package freesteam

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/cogen/core/factory"
	core "github.com/kilianp07/cogen/core/freesteam"
)

// RedisConfig configures the Redis memo cache.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// redisClient is the subset of redis.Cmdable the cache needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares memoized estimates between service instances.
type RedisCache struct {
	rdb    redisClient
	prefix string
}

// NewRedisCache connects to cfg.Addr.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisCache(rdb, cfg.Prefix)
}

func newRedisCache(rdb redisClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "cogen:free_steam:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// Get returns the cached estimate for key.
func (c *RedisCache) Get(ctx context.Context, key string) (core.Estimate, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Estimate{}, false, nil
	}
	if err != nil {
		return core.Estimate{}, false, err
	}
	var e core.Estimate
	if err := json.Unmarshal(data, &e); err != nil {
		return core.Estimate{}, false, err
	}
	return e, true, nil
}

// Set stores e under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, e core.Estimate, ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, data, ttl).Err()
}

func init() {
	_ = core.RegisterCache("redis", func(conf map[string]any) (core.Cache, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRedisCache(c), nil
	})
}
