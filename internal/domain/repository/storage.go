package repository

import (
	"context"
	"io"
	"time"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// MaxSignedURLExpiry is the longest lifetime a signed URL may have.
const MaxSignedURLExpiry = 7 * 24 * time.Hour

// ContentStore defines the interface for the bucketed object store.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
// Every call is atomic for a single object only.
type ContentStore interface {
	// Put stores an object read from reader. size may be -1 when unknown.
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error

	// PutFile stores the file at filePath as an object.
	PutFile(ctx context.Context, bucket, key, filePath, contentType string) error

	// Get returns the full object body.
	// Returns ErrObjectNotFound if the object does not exist.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// ListKeys returns every key in bucket that starts with prefix, at any depth.
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// SignedURL creates a time-limited read URL for an object.
	// It never changes store state and the result must not be persisted.
	SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// Buckets names the fixed set of buckets the pipeline uses.
type Buckets struct {
	Users         string
	Videos        string
	Audio         string
	Courses       string
	Subscriptions string
	Thumbnails    string
}

// DefaultBuckets returns the default bucket names.
func DefaultBuckets() Buckets {
	return Buckets{
		Users:         "users",
		Videos:        "videos",
		Audio:         "audio",
		Courses:       "courses",
		Subscriptions: "subscriptions",
		Thumbnails:    "thumbnails",
	}
}

// ForFamily returns the bucket holding renditions and metadata of a family.
func (b Buckets) ForFamily(f model.Family) string {
	if f == model.FamilyAudio {
		return b.Audio
	}
	return b.Videos
}

// Media returns the media buckets in lookup order.
func (b Buckets) Media() []string {
	return []string{b.Videos, b.Audio}
}

// All returns every bucket, used to create them at startup.
func (b Buckets) All() []string {
	return []string{b.Users, b.Videos, b.Audio, b.Courses, b.Subscriptions, b.Thumbnails}
}
