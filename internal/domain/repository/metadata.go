package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// Collection names a kind of metadata document.
type Collection string

const (
	CollectionUser             Collection = "user"
	CollectionMedia            Collection = "media"
	CollectionCourse           Collection = "course"
	CollectionSubscriptionPlan Collection = "subscription"
)

func (c Collection) IsValid() bool {
	switch c {
	case CollectionUser, CollectionMedia, CollectionCourse, CollectionSubscriptionPlan:
		return true
	default:
		return false
	}
}

// MetadataRegistry is a typed layer over JSON documents in the content store.
// Load methods return ErrDocumentNotFound when a document does not exist and
// a wrapped store error on any other failure.
type MetadataRegistry interface {
	// SaveMedia writes the asset document into its family's bucket.
	// This write is the publication point of an asset.
	SaveMedia(ctx context.Context, asset *model.MediaAsset) error

	// LoadMedia finds an asset document in whichever media bucket holds it.
	LoadMedia(ctx context.Context, id uuid.UUID) (*model.MediaAsset, error)

	SaveUser(ctx context.Context, user *model.UserAccount) error
	LoadUser(ctx context.Context, id string) (*model.UserAccount, error)

	SaveCourse(ctx context.Context, course *model.Course) error
	LoadCourse(ctx context.Context, id string) (*model.Course, error)

	SavePlan(ctx context.Context, plan *model.SubscriptionPlan) error
	LoadPlan(ctx context.Context, id string) (*model.SubscriptionPlan, error)

	// LoadDocument returns the stored bytes of a document unchanged.
	LoadDocument(ctx context.Context, collection Collection, id string) ([]byte, error)

	// ListIDs enumerates the ids of a collection. For media it covers every
	// media bucket.
	ListIDs(ctx context.Context, collection Collection) ([]string, error)
}
