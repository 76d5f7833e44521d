package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
)

const typeCacheKey = "scheduling:appointment-types"

// TypeCache holds the source's appointment-type listing in Redis so that
// event processing does not hit the source listing endpoint on every webhook.
// Cache failures are logged and treated as misses.
type TypeCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewTypeCache(cfg config.RedisConfig, ttl time.Duration, log logger.Logger) *TypeCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &TypeCache{rdb: rdb, ttl: ttl, log: log}
}

// NewTypeCacheWithClient wraps an existing Redis client (used in tests).
func NewTypeCacheWithClient(rdb *redis.Client, ttl time.Duration, log logger.Logger) *TypeCache {
	return &TypeCache{rdb: rdb, ttl: ttl, log: log}
}

// Ping verifies the Redis connection.
func (c *TypeCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Get returns the cached listing and whether it was present.
func (c *TypeCache) Get(ctx context.Context) ([]SourceAppointmentType, bool) {
	data, err := c.rdb.Get(ctx, typeCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("appointment-type cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}
	var types []SourceAppointmentType
	if err := json.Unmarshal(data, &types); err != nil {
		c.log.Warn("appointment-type cache entry corrupt, discarding", map[string]interface{}{
			"error": err.Error(),
		})
		c.rdb.Del(ctx, typeCacheKey)
		return nil, false
	}
	return types, true
}

// Set stores the listing with the configured TTL.
func (c *TypeCache) Set(ctx context.Context, types []SourceAppointmentType) {
	data, err := json.Marshal(types)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, typeCacheKey, data, c.ttl).Err(); err != nil {
		c.log.Warn("appointment-type cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Invalidate drops the cached listing.
func (c *TypeCache) Invalidate(ctx context.Context) {
	c.rdb.Del(ctx, typeCacheKey)
}

// Close releases the underlying Redis connection.
func (c *TypeCache) Close() error {
	return c.rdb.Close()
}
