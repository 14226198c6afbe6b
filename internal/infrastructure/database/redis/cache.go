package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

var (
	// ErrCacheMiss is returned by Get when the key is absent.
	ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

	// ErrSerializationFailed is returned when a cached value cannot be
	// encoded or decoded.
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// CacheMetrics counts hits and misses; satisfied by
// prometheus.PipelineMetrics.  A nil recorder disables counting.
type CacheMetrics interface {
	RecordCacheAccess(cache string, hit bool)
}

// cacheName labels this cache's hit/miss counters.
const cacheName = "review"

// Cache is the JSON read cache in front of the review API's list endpoints.
// Values are serialised as JSON; keys are namespaced by the client prefix.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
		loader func(ctx context.Context) (interface{}, error)) error
}

type redisCache struct {
	client  *Client
	logger  logging.Logger
	metrics CacheMetrics
	group   singleflight.Group
}

// NewCache constructs the JSON cache on the shared client.  metrics may be
// nil.
func NewCache(client *Client, logger logging.Logger, metrics CacheMetrics) Cache {
	return &redisCache{client: client, logger: logger, metrics: metrics}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Underlying().Get(ctx, c.client.Key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.recordAccess(false)
			return ErrCacheMiss
		}
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed
	}
	c.recordAccess(true)
	return nil
}

func (c *redisCache) recordAccess(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheAccess(cacheName, hit)
	}
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed
	}
	if ttl <= 0 {
		ttl = c.client.DefaultTTL()
	}
	if err := c.client.Underlying().Set(ctx, c.client.Key(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.client.Key(k)
	}
	if err := c.client.Underlying().Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache delete failed")
	}
	return nil
}

// GetOrSet returns the cached value or runs loader once per key under
// singleflight, caching its result.  Loader errors are returned uncached.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
	loader func(ctx context.Context) (interface{}, error)) error {

	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	} else if err != ErrCacheMiss {
		c.logger.Warn("cache read failed, falling back to loader",
			logging.String("key", key), logging.Err(err))
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, loaded, ttl); err != nil {
			c.logger.Warn("cache backfill failed", logging.String("key", key), logging.Err(err))
		}
		return loaded, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON so dest is populated uniformly whether the
	// value came from the cache or the loader.
	data, err := json.Marshal(val)
	if err != nil {
		return ErrSerializationFailed
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed
	}
	return nil
}
