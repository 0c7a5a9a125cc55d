package pager

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ResteasyAPI/internal/logger"

	"github.com/redis/go-redis/v9"
)

const versionPrefix = "countver:"

// RedisCache shares counts between processes. Table versions are Redis
// counters so an invalidation on one node is seen by all. Redis failures
// fall back to running the query.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Count(ctx context.Context, tables []string, sqlStr string, args []any, load func() (int64, error)) (int64, error) {
	versions, err := c.versions(ctx, tables)
	if err != nil {
		logger.Warn("count_cache_redis_failed", map[string]any{"op": "versions", "error": err.Error()})
		return load()
	}
	key, err := countCacheKey(tables, versions, sqlStr, args)
	if err != nil {
		logger.Warn("count_cache_key_failed", map[string]any{"error": err.Error()})
		return load()
	}

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if n, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
			return n, nil
		}
		logger.Warn("count_cache_invalid_value", map[string]any{"key": key})
	} else if err != redis.Nil {
		logger.Warn("count_cache_redis_failed", map[string]any{"op": "get", "error": err.Error()})
	}

	n, err := load()
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, key, n, c.ttl).Err(); err != nil {
		logger.Warn("count_cache_redis_failed", map[string]any{"op": "set", "error": err.Error()})
	}
	return n, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, tables ...string) {
	if len(tables) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, t := range tables {
		pipe.Incr(ctx, versionPrefix+t)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("count_cache_redis_failed", map[string]any{"op": "invalidate", "error": err.Error()})
	}
}

func (c *RedisCache) versions(ctx context.Context, tables []string) (map[string]int64, error) {
	out := make(map[string]int64, len(tables))
	if len(tables) == 0 {
		return out, nil
	}
	keys := make([]string, len(tables))
	for i, t := range tables {
		keys[i] = versionPrefix + t
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		var n int64
		if s, ok := v.(string); ok {
			n, _ = strconv.ParseInt(s, 10, 64)
		}
		out[tables[i]] = n
	}
	return out, nil
}

// Flush deletes every cached count and version counter.
func (c *RedisCache) Flush(ctx context.Context) error {
	for _, pattern := range []string{keyPrefix + "*", versionPrefix + "*"} {
		iter := c.rdb.Scan(ctx, 0, pattern, 1000).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			if err := c.rdb.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", key, err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan error: %w", err)
		}
	}
	return nil
}
