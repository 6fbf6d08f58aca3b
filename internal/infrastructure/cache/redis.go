package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

const (
	// mediaCacheKeyPrefix is the prefix for asset cache keys in Redis.
	mediaCacheKeyPrefix = "media:"
)

// assetJSON is the cached representation of a MediaAsset.
// Kept separate so the cache format does not follow the published document.
type assetJSON struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Kind            string   `json:"kind"`
	Languages       []string `json:"languages"`
	Renditions      []string `json:"renditions"`
	AccessTier      string   `json:"access_tier"`
	CreatedAt       int64    `json:"created_at"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
}

// RedisMediaCache implements MediaCache using Redis as the backing store.
type RedisMediaCache struct {
	client *redis.Client
}

// Compile-time verification that RedisMediaCache implements MediaCache.
var _ MediaCache = (*RedisMediaCache)(nil)

// NewRedisMediaCache creates a new Redis-backed asset cache.
func NewRedisMediaCache(client *redis.Client) *RedisMediaCache {
	return &RedisMediaCache{
		client: client,
	}
}

// Get retrieves an asset from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisMediaCache) Get(ctx context.Context, assetID uuid.UUID) (*model.MediaAsset, error) {
	key := c.buildKey(assetID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	asset, err := c.deserialize(data)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return nil, fmt.Errorf("deserialize asset: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
	return asset, nil
}

// Set stores an asset in Redis cache with the specified TTL.
func (c *RedisMediaCache) Set(ctx context.Context, asset *model.MediaAsset, ttl time.Duration) error {
	key := c.buildKey(asset.ID)

	data, err := c.serialize(asset)
	if err != nil {
		return fmt.Errorf("serialize asset: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

// Delete removes an asset from Redis cache.
func (c *RedisMediaCache) Delete(ctx context.Context, assetID uuid.UUID) error {
	key := c.buildKey(assetID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

// buildKey constructs the Redis key for an asset.
func (c *RedisMediaCache) buildKey(assetID uuid.UUID) string {
	return mediaCacheKeyPrefix + assetID.String()
}

// serialize converts a MediaAsset to JSON bytes.
func (c *RedisMediaCache) serialize(asset *model.MediaAsset) ([]byte, error) {
	v := assetJSON{
		ID:              asset.ID.String(),
		Title:           asset.Title,
		Kind:            string(asset.Kind),
		Languages:       asset.Languages,
		Renditions:      asset.Renditions,
		AccessTier:      string(asset.AccessTier),
		CreatedAt:       asset.CreatedAt,
		DurationSeconds: asset.DurationSeconds,
		Thumbnail:       asset.Thumbnail,
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to a MediaAsset.
func (c *RedisMediaCache) deserialize(data []byte) (*model.MediaAsset, error) {
	var v assetJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(v.ID)
	if err != nil {
		return nil, fmt.Errorf("parse asset ID: %w", err)
	}

	kind := model.Kind(v.Kind)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidKind, v.Kind)
	}

	tier := model.AccessTier(v.AccessTier)
	return &model.MediaAsset{
		ID:              id,
		Title:           v.Title,
		Kind:            kind,
		Languages:       v.Languages,
		Renditions:      v.Renditions,
		AccessTier:      tier,
		Premium:         tier == model.AccessPremium,
		CreatedAt:       v.CreatedAt,
		DurationSeconds: v.DurationSeconds,
		Thumbnail:       v.Thumbnail,
	}, nil
}
