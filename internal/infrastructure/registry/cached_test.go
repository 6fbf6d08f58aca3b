package registry

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

// mockMediaCache implements cache.MediaCache for testing.
type mockMediaCache struct {
	mu      sync.Mutex
	data    map[uuid.UUID]*model.MediaAsset
	getErr  error
	deletes int
}

func newMockMediaCache() *mockMediaCache {
	return &mockMediaCache{data: make(map[uuid.UUID]*model.MediaAsset)}
}

func (m *mockMediaCache) Get(_ context.Context, id uuid.UUID) (*model.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[id], nil
}

func (m *mockMediaCache) Set(_ context.Context, asset *model.MediaAsset, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[asset.ID] = asset
	return nil
}

func (m *mockMediaCache) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, id)
	return nil
}

func TestCachedRegistry_LoadMedia_CacheAside(t *testing.T) {
	store := newMemStore()
	inner := NewStoreRegistry(store, repository.DefaultBuckets())
	mc := newMockMediaCache()
	reg := NewCachedRegistry(inner, mc, time.Minute)
	ctx := context.Background()

	asset := newAsset(t, model.KindMovie)
	if err := inner.SaveMedia(ctx, asset); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.LoadMedia(ctx, asset.ID); err != nil {
		t.Fatalf("first LoadMedia() error = %v", err)
	}
	getsAfterMiss := store.gets

	got, err := reg.LoadMedia(ctx, asset.ID)
	if err != nil {
		t.Fatalf("second LoadMedia() error = %v", err)
	}
	if got.ID != asset.ID {
		t.Errorf("got %v, want %v", got.ID, asset.ID)
	}
	if store.gets != getsAfterMiss {
		t.Errorf("cache hit still read the store (%d -> %d)", getsAfterMiss, store.gets)
	}
}

func TestCachedRegistry_LoadMedia_CacheErrorFallsBack(t *testing.T) {
	inner := NewStoreRegistry(newMemStore(), repository.DefaultBuckets())
	mc := newMockMediaCache()
	mc.getErr = errors.New("redis down")
	reg := NewCachedRegistry(inner, mc, time.Minute)
	ctx := context.Background()

	asset := newAsset(t, model.KindAudio)
	if err := inner.SaveMedia(ctx, asset); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.LoadMedia(ctx, asset.ID); err != nil {
		t.Fatalf("LoadMedia() error = %v", err)
	}
}

func TestCachedRegistry_LoadMedia_NotFoundIsNotCached(t *testing.T) {
	mc := newMockMediaCache()
	reg := NewCachedRegistry(NewStoreRegistry(newMemStore(), repository.DefaultBuckets()), mc, time.Minute)

	_, err := reg.LoadMedia(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if len(mc.data) != 0 {
		t.Error("not-found result must not be cached")
	}
}

func TestCachedRegistry_SaveMediaInvalidates(t *testing.T) {
	mc := newMockMediaCache()
	reg := NewCachedRegistry(NewStoreRegistry(newMemStore(), repository.DefaultBuckets()), mc, time.Minute)

	if err := reg.SaveMedia(context.Background(), newAsset(t, model.KindMovie)); err != nil {
		t.Fatalf("SaveMedia() error = %v", err)
	}
	if mc.deletes != 1 {
		t.Errorf("deletes = %d, want 1", mc.deletes)
	}
}

func TestCachedRegistry_ReturnsCopies(t *testing.T) {
	inner := NewStoreRegistry(newMemStore(), repository.DefaultBuckets())
	reg := NewCachedRegistry(inner, newMockMediaCache(), time.Minute)
	ctx := context.Background()

	asset := newAsset(t, model.KindMovie)
	asset.Languages = []string{"en", "ja"}
	if err := inner.SaveMedia(ctx, asset); err != nil {
		t.Fatal(err)
	}

	first, _ := reg.LoadMedia(ctx, asset.ID)
	first.Title = "changed"
	first.Languages[0] = "fr"
	first.Renditions[0] = "1080p"

	second, err := reg.LoadMedia(ctx, asset.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Title != "Test" {
		t.Errorf("cached asset was mutated: %q", second.Title)
	}
	if second.Languages[0] != "en" || second.Renditions[0] != "480p" {
		t.Errorf("cached slices were mutated: languages=%v renditions=%v", second.Languages, second.Renditions)
	}
}

func TestCachedRegistry_LoadMedia_RepeatedLoadsAreEqual(t *testing.T) {
	store := newMemStore()
	inner := NewStoreRegistry(store, repository.DefaultBuckets())
	reg := NewCachedRegistry(inner, newMockMediaCache(), time.Minute)
	ctx := context.Background()

	asset := newAsset(t, model.KindSeries)
	asset.SetDuration(42)
	if err := inner.SaveMedia(ctx, asset); err != nil {
		t.Fatal(err)
	}

	first, err := reg.LoadMedia(ctx, asset.ID)
	if err != nil {
		t.Fatalf("first LoadMedia() error = %v", err)
	}
	gets := store.gets

	second, err := reg.LoadMedia(ctx, asset.ID)
	if err != nil {
		t.Fatalf("second LoadMedia() error = %v", err)
	}
	if store.gets != gets {
		t.Fatalf("second load should be a cache hit (%d -> %d)", gets, store.gets)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cache hit = %+v, first load = %+v", second, first)
	}
	if first == second {
		t.Error("loads should return distinct copies")
	}
}
