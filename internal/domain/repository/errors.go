package repository

import "errors"

var (
	// ErrObjectNotFound is returned when an object does not exist in the content store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when a configured bucket is missing.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrDocumentNotFound is returned when a metadata document does not exist.
	// It is an expected outcome and never wraps a store failure.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAttemptNotFound is returned when an ingest attempt cannot be found.
	ErrAttemptNotFound = errors.New("ingest attempt not found")

	// ErrInvalidURLExpiry is returned for signed URL lifetimes outside (0, MaxSignedURLExpiry].
	ErrInvalidURLExpiry = errors.New("invalid signed URL expiry")
)

// ErrInvalidDocumentID is returned for document ids that cannot form a single key segment.
var ErrInvalidDocumentID = errors.New("invalid document id")
