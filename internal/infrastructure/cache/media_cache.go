package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// MediaCache defines the interface for caching published asset metadata.
// Implementations should handle serialization/deserialization transparently.
type MediaCache interface {
	// Get retrieves an asset from cache by ID.
	// Returns nil, nil if the asset is not found in cache (cache miss).
	Get(ctx context.Context, assetID uuid.UUID) (*model.MediaAsset, error)

	// Set stores an asset in cache with the specified TTL.
	Set(ctx context.Context, asset *model.MediaAsset, ttl time.Duration) error

	// Delete removes an asset from cache by ID.
	// Returns nil if the asset was not in cache.
	Delete(ctx context.Context, assetID uuid.UUID) error
}
