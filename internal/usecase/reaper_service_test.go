package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

func seedOrphan(t *testing.T, store *mockContentStore, assetID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	for _, key := range []string{
		model.HLSPlaylistKey(assetID, "480p"),
		model.HLSObjectKey(assetID, "480p/segment_000.ts"),
		model.HLSPlaylistKey(assetID, "720p"),
	} {
		if err := store.Put(ctx, "videos", key, strings.NewReader("x"), 1, contentTypeDefault); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := store.Put(ctx, "thumbnails", model.ThumbnailKey(assetID), strings.NewReader("x"), 1, contentTypeJPEG); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func failedAttempt(t *testing.T, repo *mockAttemptRepository, assetID uuid.UUID) *model.IngestAttempt {
	t.Helper()
	attempt := model.NewIngestAttempt(assetID, model.FamilyVideo)
	if err := attempt.Fail("publish failed"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	_ = repo.Create(context.Background(), attempt)
	return attempt
}

func TestReaperService_Reap_DeletesOrphans(t *testing.T) {
	store := newMockContentStore()
	reg := newMockRegistry()
	attempts := newMockAttemptRepository()
	svc := NewReaperService(store, reg, attempts, repository.DefaultBuckets())

	orphan := uuid.New()
	neighbour := uuid.New()
	seedOrphan(t, store, orphan)
	seedOrphan(t, store, neighbour)
	attempt := failedAttempt(t, attempts, orphan)

	err := svc.Reap(context.Background(), repository.CleanupTask{
		AttemptID: attempt.ID,
		AssetID:   orphan,
		Family:    model.FamilyVideo,
	})
	if err != nil {
		t.Fatalf("Reap() error = %v", err)
	}

	if n := store.count("videos", model.AssetPrefix(orphan)); n != 0 {
		t.Errorf("videos objects left: %d", n)
	}
	if n := store.count("thumbnails", model.AssetPrefix(orphan)); n != 0 {
		t.Errorf("thumbnail objects left: %d", n)
	}
	if n := store.count("videos", model.AssetPrefix(neighbour)); n != 3 {
		t.Errorf("neighbour objects: got %d, expected 3", n)
	}

	got, _ := attempts.GetByID(context.Background(), attempt.ID)
	if got.Status != model.AttemptReaped {
		t.Errorf("attempt status: got %s, expected REAPED", got.Status)
	}
}

func TestReaperService_Reap_SkipsPublishedAsset(t *testing.T) {
	store := newMockContentStore()
	reg := newMockRegistry()
	svc := NewReaperService(store, reg, nil, repository.DefaultBuckets())

	asset := seedAsset(t, reg, model.KindMovie, model.AccessStandard, []string{"480p", "720p"})
	seedOrphan(t, store, asset.ID)

	if err := svc.Reap(context.Background(), repository.CleanupTask{AssetID: asset.ID, Family: model.FamilyVideo}); err != nil {
		t.Fatalf("Reap() error = %v", err)
	}
	if n := store.count("videos", model.AssetPrefix(asset.ID)); n != 3 {
		t.Errorf("published objects must stay, got %d", n)
	}
}

func TestReaperService_Reap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(store *mockContentStore, reg *mockRegistry)
		wantErr bool
	}{
		{
			name: "registry unavailable",
			setup: func(store *mockContentStore, reg *mockRegistry) {
				reg.loadMediaFn = func(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error) {
					return nil, errors.New("timeout")
				}
			},
			wantErr: true,
		},
		{
			name: "delete fails",
			setup: func(store *mockContentStore, reg *mockRegistry) {
				store.deleteFn = func(ctx context.Context, bucket, key string) error {
					return errors.New("access denied")
				}
			},
			wantErr: true,
		},
		{
			name: "missing bucket is nothing to reap",
			setup: func(store *mockContentStore, reg *mockRegistry) {
				store.listKeysFn = func(ctx context.Context, bucket, prefix string) ([]string, error) {
					return nil, repository.ErrBucketNotFound
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockContentStore()
			reg := newMockRegistry()
			tt.setup(store, reg)
			svc := NewReaperService(store, reg, nil, repository.DefaultBuckets())

			assetID := uuid.New()
			seedOrphan(t, store, assetID)

			err := svc.Reap(context.Background(), repository.CleanupTask{AssetID: assetID, Family: model.FamilyVideo})
			if (err != nil) != tt.wantErr {
				t.Errorf("Reap() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReaperService_Reap_NilAsset(t *testing.T) {
	svc := NewReaperService(newMockContentStore(), newMockRegistry(), nil, repository.DefaultBuckets())

	if err := svc.Reap(context.Background(), repository.CleanupTask{}); err != nil {
		t.Errorf("Reap() error = %v, expected malformed task to be dropped", err)
	}
}

func TestReaperService_Sweep(t *testing.T) {
	store := newMockContentStore()
	reg := newMockRegistry()
	attempts := newMockAttemptRepository()
	svc := NewReaperService(store, reg, attempts, repository.DefaultBuckets())

	first, second := uuid.New(), uuid.New()
	seedOrphan(t, store, first)
	seedOrphan(t, store, second)
	failedAttempt(t, attempts, first)
	failedAttempt(t, attempts, second)

	published := model.NewIngestAttempt(uuid.New(), model.FamilyVideo)
	_ = published.TransitionTo(model.AttemptPublished)
	_ = attempts.Create(context.Background(), published)

	n, err := svc.Sweep(context.Background(), 10)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 2 {
		t.Errorf("reaped: got %d, expected 2", n)
	}
	if store.count("videos", "") != 0 || store.count("thumbnails", "") != 0 {
		t.Error("all orphaned objects should be gone")
	}

	left, _ := attempts.ListByStatus(context.Background(), model.AttemptFailed, 10)
	if len(left) != 0 {
		t.Errorf("FAILED attempts left: %d", len(left))
	}

	if n, err := NewReaperService(store, reg, nil, repository.DefaultBuckets()).Sweep(context.Background(), 10); err != nil || n != 0 {
		t.Errorf("Sweep() without ledger = %d, %v", n, err)
	}
}
