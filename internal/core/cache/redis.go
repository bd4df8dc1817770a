package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
)

const redisKeyPrefix = "eventstats:result:"

// RedisCache shares calculated results between server instances
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg config.RedisConfig, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"cache_ttl": ttl,
	}).Info("Redis result cache initialized successfully")

	return NewRedisCacheWithClient(rdb, ttl, logger), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Name identifies the cache in stats and logs
func (r *RedisCache) Name() string {
	return "redis"
}

// Get retrieves a result from Redis
func (r *RedisCache) Get(ctx context.Context, key string) (charts.ChartResult, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		r.misses.Add(1)
		return charts.ChartResult{}, false, nil
	}
	if err != nil {
		r.misses.Add(1)
		return charts.ChartResult{}, false, fmt.Errorf("failed to read result from Redis: %w", err)
	}

	var result charts.ChartResult
	if err := json.Unmarshal(data, &result); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cached result")
		r.misses.Add(1)
		return charts.ChartResult{}, false, nil
	}

	r.hits.Add(1)
	return result, true, nil
}

// Set stores a result with the cache TTL
func (r *RedisCache) Set(ctx context.Context, key string, result charts.ChartResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result in Redis: %w", err)
	}

	r.sets.Add(1)
	return nil
}

// DeleteChart removes every entry for a chart
func (r *RedisCache) DeleteChart(ctx context.Context, chartID string) error {
	return r.deleteMatching(ctx, redisKeyPrefix+chartPrefix(chartID)+"*")
}

// Clear removes every result this service stored
func (r *RedisCache) Clear(ctx context.Context) error {
	return r.deleteMatching(ctx, redisKeyPrefix+"*")
}

func (r *RedisCache) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"pattern": pattern,
		"deleted": len(keys),
	}).Debug("Redis result cache entries deleted")
	return nil
}

// Stats returns this instance's counters. Size is not tracked for the shared
// store and is reported as -1.
func (r *RedisCache) Stats() Stats {
	return Stats{
		Name:   r.Name(),
		Hits:   r.hits.Load(),
		Misses: r.misses.Load(),
		Sets:   r.sets.Load(),
		Size:   -1,
	}
}

// Health checks Redis connection health
func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
