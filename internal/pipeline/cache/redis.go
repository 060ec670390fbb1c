package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
)

// setScript writes an entry and keeps the insertion index bounded.
// KEYS: entry, index, sequence. ARGV: value, ttl ms, max entries.
var setScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[2], KEYS[1]) then
  local max = tonumber(ARGV[3])
  while redis.call('ZCARD', KEYS[2]) >= max do
    local popped = redis.call('ZPOPMIN', KEYS[2])
    if #popped == 0 then break end
    redis.call('DEL', popped[1])
  end
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, KEYS[1])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return seq
`)

// RedisCache shares answers across replicas. Entries expire through Redis
// TTLs; a sorted set scored by insertion sequence bounds the entry count.
type RedisCache struct {
	client     *redis.Client
	ttl        time.Duration
	maxEntries int
	prefix     string
	logger     logger.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, maxEntries int, prefix string, log logger.Logger) *RedisCache {
	if prefix == "" {
		prefix = "assistant:cache"
	}
	return &RedisCache{
		client:     client,
		ttl:        ttl,
		maxEntries: maxEntries,
		prefix:     prefix,
		logger:     log.With(map[string]interface{}{"component": "cache"}),
	}
}

func (c *RedisCache) entryKey(query string, filters models.Filters) string {
	return c.prefix + ":entry:" + Key(query, filters)
}

func (c *RedisCache) indexKey() string { return c.prefix + ":index" }
func (c *RedisCache) seqKey() string   { return c.prefix + ":seq" }

// Get treats every Redis error as a miss.
func (c *RedisCache) Get(ctx context.Context, query string, filters models.Filters) (models.QueryResult, bool) {
	val, err := c.client.Get(ctx, c.entryKey(query, filters)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return models.QueryResult{}, false
	}

	var result models.QueryResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"error": err.Error()})
		return models.QueryResult{}, false
	}
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, query string, filters models.Filters, result models.QueryResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache entry not encodable", map[string]interface{}{"error": err.Error()})
		return
	}

	err = setScript.Run(ctx, c.client,
		[]string{c.entryKey(query, filters), c.indexKey(), c.seqKey()},
		string(data), c.ttl.Milliseconds(), c.maxEntries,
	).Err()
	if err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// Cleanup removes index members whose entry already expired.
func (c *RedisCache) Cleanup(ctx context.Context) int {
	members, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		c.logger.Warn("cache cleanup failed", map[string]interface{}{"error": err.Error()})
		return 0
	}

	removed := 0
	for _, member := range members {
		n, err := c.client.Exists(ctx, member).Result()
		if err != nil {
			c.logger.Warn("cache cleanup failed", map[string]interface{}{"error": err.Error()})
			return removed
		}
		if n == 0 {
			if err := c.client.ZRem(ctx, c.indexKey(), member).Err(); err == nil {
				removed++
			}
		}
	}
	return removed
}
