package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/permit-map-backend-go/internal/metrics"
	"github.com/jengzang/permit-map-backend-go/internal/models"
)

const (
	keyPrefix          = "permitmap:geography:"
	defaultLoadTimeout = 30 * time.Second
)

// GeographySource loads the geography feed from the permit store
type GeographySource interface {
	GeographyFeatures(ctx context.Context, limit int) ([]models.GeoFeature, error)
}

// GeographyCache caches geography feed responses in redis.
// Concurrent misses for the same limit share one source call. The shared call
// is detached from any single caller's cancellation.
// A nil client disables caching.
type GeographyCache struct {
	client      *redis.Client
	source      GeographySource
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
}

// OpenRedis opens a redis client for addr; an empty addr returns nil
func OpenRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewGeographyCache creates a cache in front of source
func NewGeographyCache(client *redis.Client, source GeographySource, ttl time.Duration) *GeographyCache {
	return &GeographyCache{client: client, source: source, ttl: ttl, loadTimeout: defaultLoadTimeout}
}

func cacheKey(limit int) string {
	return keyPrefix + strconv.Itoa(limit)
}

// GeographyFeatures returns the cached feed for limit, loading it on a miss
func (c *GeographyCache) GeographyFeatures(ctx context.Context, limit int) ([]models.GeoFeature, error) {
	if c.client == nil {
		return c.source.GeographyFeatures(ctx, limit)
	}

	raw, err := c.client.Get(ctx, cacheKey(limit)).Bytes()
	switch {
	case err == nil:
		var features []models.GeoFeature
		if err := json.Unmarshal(raw, &features); err == nil {
			metrics.GeoCacheHitsTotal.Inc()
			return features, nil
		}
		log.Printf("[GeographyCache] Discarding undecodable entry for limit %d", limit)
	case !errors.Is(err, redis.Nil):
		log.Printf("[GeographyCache] Redis get failed: %v", err)
	}

	metrics.GeoCacheMissesTotal.Inc()
	return c.load(ctx, limit)
}

// Refresh bypasses the cached entry, reloads it from the source and stores the result
func (c *GeographyCache) Refresh(ctx context.Context, limit int) ([]models.GeoFeature, error) {
	if c.client == nil {
		return c.source.GeographyFeatures(ctx, limit)
	}
	return c.load(ctx, limit)
}

// load fetches the feed once for all concurrent callers of the same limit.
// Each caller stops waiting when its own ctx is done; the shared load keeps
// running for the others until it finishes or loadTimeout elapses.
func (c *GeographyCache) load(ctx context.Context, limit int) ([]models.GeoFeature, error) {
	key := cacheKey(limit)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		features, err := c.source.GeographyFeatures(loadCtx, limit)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(features)
		if err != nil {
			return nil, fmt.Errorf("failed to encode geography: %w", err)
		}
		if err := c.client.Set(loadCtx, key, payload, c.ttl).Err(); err != nil {
			log.Printf("[GeographyCache] Redis set failed: %v", err)
		}
		return features, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.GeoFeature), nil
	}
}

// Invalidate removes every cached geography response
func (c *GeographyCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan geography cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate geography cache: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
