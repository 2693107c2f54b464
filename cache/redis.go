package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amaranthustech/jcal/log"
	"github.com/go-redis/redis/v8"
)

var logger = log.Logger()

// RedisCache represents a Redis-based response cache for the HTTP gateway.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// LunarDayCacheData is the cached envelope around a day_of/range_of
// response, carrying a CachedAt timestamp for staleness checks independent
// of the Redis TTL.
type LunarDayCacheData struct {
	Date       string          `json:"date"`
	TZ         string          `json:"tz"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Day        int             `json:"day"`
	IsLeap     bool            `json:"is_leap"`
	MonthLabel string          `json:"month_label"`
	DayLabel   string          `json:"day_label"`
	MonthName  string          `json:"month_name"`
	Rokuyo     string          `json:"rokuyo"`
	Events     []LunarEvent    `json:"events"`
	SunriseUTC string          `json:"sunrise_utc,omitempty"`
	SunsetUTC  string          `json:"sunset_utc,omitempty"`
	CachedAt   time.Time       `json:"cached_at"`
}

// LunarEvent is a sekki or moon-phase event attached to a cached day.
type LunarEvent struct {
	Name      string `json:"name"`
	InstantUTC string `json:"instant_utc"`
	EventType string `json:"event_type"` // "sekki" or "moon_phase"
}

// NewRedisCache creates a new Redis cache instance.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis cache connected successfully", "addr", addr, "db", db, "ttl", ttl)

	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}, nil
}

// GenerateCacheKey generates a cache key for a lunisolar query, keyed by
// (date|range, tz, ephemeris_spec, config_hash) per the documented cache
// key schema.
func (r *RedisCache) GenerateCacheKey(dateOrRange, tz, ephemerisSpec, configHash string) string {
	return fmt.Sprintf("jcal:%s:%s:%s:%s", dateOrRange, tz, ephemerisSpec, configHash)
}

// Get retrieves cached lunar day data.
func (r *RedisCache) Get(ctx context.Context, key string) (*LunarDayCacheData, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	var data LunarDayCacheData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		logger.Error("Failed to unmarshal cached data", "key", key, "error", err)
		r.client.Del(ctx, key)
		return nil, nil
	}

	if time.Since(data.CachedAt) > r.ttl {
		logger.Debug("Cache entry expired", "key", key, "cached_at", data.CachedAt)
		r.client.Del(ctx, key)
		return nil, nil
	}

	logger.Debug("Cache hit", "key", key, "cached_at", data.CachedAt)
	return &data, nil
}

// Set stores lunar day data in cache.
func (r *RedisCache) Set(ctx context.Context, key string, data *LunarDayCacheData) error {
	data.CachedAt = time.Now()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := r.client.Set(ctx, key, jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	logger.Debug("Cache set", "key", key, "ttl", r.ttl)
	return nil
}

// GetBatch retrieves multiple cached entries.
func (r *RedisCache) GetBatch(ctx context.Context, keys []string) (map[string]*LunarDayCacheData, error) {
	if len(keys) == 0 {
		return make(map[string]*LunarDayCacheData), nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))

	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to execute batch get: %w", err)
	}

	result := make(map[string]*LunarDayCacheData)

	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			logger.Error("Failed to get batch cache key", "key", keys[i], "error", err)
			continue
		}

		var data LunarDayCacheData
		if err := json.Unmarshal([]byte(val), &data); err != nil {
			logger.Error("Failed to unmarshal batch cached data", "key", keys[i], "error", err)
			continue
		}

		if time.Since(data.CachedAt) <= r.ttl {
			result[keys[i]] = &data
		}
	}

	logger.Debug("Batch cache operation", "requested", len(keys), "hits", len(result))
	return result, nil
}

// SetBatch stores multiple entries in cache.
func (r *RedisCache) SetBatch(ctx context.Context, data map[string]*LunarDayCacheData) error {
	if len(data) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	now := time.Now()

	for key, cacheData := range data {
		cacheData.CachedAt = now

		jsonData, err := json.Marshal(cacheData)
		if err != nil {
			logger.Error("Failed to marshal batch cache data", "key", key, "error", err)
			continue
		}

		pipe.Set(ctx, key, jsonData, r.ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to execute batch set: %w", err)
	}

	logger.Debug("Batch cache set", "count", len(data), "ttl", r.ttl)
	return nil
}

// Delete removes a cache entry.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Clear removes all cache entries under the jcal prefix.
func (r *RedisCache) Clear(ctx context.Context) error {
	keys, err := r.client.Keys(ctx, "jcal:*").Result()
	if err != nil {
		return fmt.Errorf("failed to get cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	logger.Info("Cache cleared", "keys_deleted", len(keys))
	return nil
}

// GetStats returns cache statistics.
func (r *RedisCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	info, err := r.client.Info(ctx, "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis stats: %w", err)
	}

	keys, err := r.client.Keys(ctx, "jcal:*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count cache keys: %w", err)
	}

	stats := map[string]interface{}{
		"cache_keys_count": len(keys),
		"ttl_seconds":      int(r.ttl.Seconds()),
		"redis_info":       info,
	}

	return stats, nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// HealthCheck performs a health check on the cache.
func (r *RedisCache) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
