package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/railrules-api/internal/models"
	"github.com/noah-isme/railrules-api/internal/observability"
)

const highlightCachePrefix = "highlight:v1"

// highlightCache keeps each viewer's unread change log ids per entity. A nil
// client disables caching.
type highlightCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newHighlightCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *highlightCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &highlightCache{client: client, ttl: ttl, logger: logger}
}

func highlightCacheKey(userID uint, entityType models.EntityType, entityID uint) string {
	return fmt.Sprintf("%s:%d:%s:%d", highlightCachePrefix, userID, entityType, entityID)
}

func (c *highlightCache) load(ctx context.Context, key string) ([]uint, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to read highlight cache")
		}
		observability.HighlightCacheRequests().WithLabelValues("miss").Inc()
		return nil, false
	}

	var ids []uint
	if err := json.Unmarshal([]byte(cached), &ids); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt highlight cache entry")
		observability.HighlightCacheRequests().WithLabelValues("miss").Inc()
		return nil, false
	}

	observability.HighlightCacheRequests().WithLabelValues("hit").Inc()
	return ids, true
}

func (c *highlightCache) store(ctx context.Context, key string, ids []uint) {
	if c == nil || c.client == nil {
		return
	}
	if ids == nil {
		ids = []uint{}
	}

	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store highlight cache")
	}
}

func (c *highlightCache) invalidate(ctx context.Context, userID uint, entityType models.EntityType, entityID uint) {
	if c == nil || c.client == nil {
		return
	}
	key := highlightCacheKey(userID, entityType, entityID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate highlight cache")
	}
}

// invalidateUser drops every cached entry of a viewer.
func (c *highlightCache) invalidateUser(ctx context.Context, userID uint) {
	if c == nil || c.client == nil {
		return
	}

	pattern := fmt.Sprintf("%s:%d:*", highlightCachePrefix, userID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to scan highlight cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate highlight cache")
	}
}
