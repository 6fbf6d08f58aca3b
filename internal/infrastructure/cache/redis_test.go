package cache

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func testAsset() *model.MediaAsset {
	duration := 93.5
	return &model.MediaAsset{
		ID:              uuid.New(),
		Title:           "Night Drive",
		Kind:            model.KindMovie,
		Languages:       []string{"en", "ja"},
		Renditions:      []string{"480p", "720p"},
		AccessTier:      model.AccessPremium,
		Premium:         true,
		CreatedAt:       1700000000000,
		DurationSeconds: &duration,
		Thumbnail:       "thumbnails/abc/thumbnail.jpg",
	}
}

func TestRedisMediaCache_Get_CacheHit(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisMediaCache(client)
	ctx := context.Background()

	asset := testAsset()
	if err := cache.Set(ctx, asset, 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected asset, got nil")
	}

	if got.ID != asset.ID {
		t.Errorf("ID = %v, want %v", got.ID, asset.ID)
	}
	if got.Title != asset.Title {
		t.Errorf("Title = %v, want %v", got.Title, asset.Title)
	}
	if got.Kind != asset.Kind {
		t.Errorf("Kind = %v, want %v", got.Kind, asset.Kind)
	}
	if !slices.Equal(got.Languages, asset.Languages) {
		t.Errorf("Languages = %v, want %v", got.Languages, asset.Languages)
	}
	if !slices.Equal(got.Renditions, asset.Renditions) {
		t.Errorf("Renditions = %v, want %v", got.Renditions, asset.Renditions)
	}
	if got.AccessTier != asset.AccessTier || !got.Premium {
		t.Errorf("AccessTier = %v premium=%v, want premium", got.AccessTier, got.Premium)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 93.5 {
		t.Errorf("DurationSeconds = %v, want 93.5", got.DurationSeconds)
	}
	if got.CreatedAt != asset.CreatedAt {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, asset.CreatedAt)
	}
}

func TestRedisMediaCache_Get_CacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisMediaCache(client)

	got, err := cache.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for cache miss, got %v", got)
	}
}

func TestRedisMediaCache_Get_Expired(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisMediaCache(client)
	ctx := context.Background()

	asset := testAsset()
	if err := cache.Set(ctx, asset, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired entry to miss, got %v", got)
	}
}

func TestRedisMediaCache_Get_Corrupt(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisMediaCache(client)

	id := uuid.New()
	if err := mr.Set(cache.buildKey(id), "{not json"); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Get(context.Background(), id); err == nil {
		t.Error("expected error for corrupt entry")
	}
}

func TestRedisMediaCache_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisMediaCache(client)
	ctx := context.Background()

	asset := testAsset()
	if err := cache.Set(ctx, asset, 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Delete(ctx, asset.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := cache.Get(ctx, asset.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %v", got)
	}
}

func TestRedisMediaCache_Delete_NonExistent(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisMediaCache(client)

	if err := cache.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Delete failed for non-existent key: %v", err)
	}
}

func TestRedisMediaCache_buildKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisMediaCache(client)
	assetID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	key := cache.buildKey(assetID)
	expected := "media:550e8400-e29b-41d4-a716-446655440000"

	if key != expected {
		t.Errorf("buildKey() = %v, want %v", key, expected)
	}
}
