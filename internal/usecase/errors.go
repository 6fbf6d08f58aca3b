package usecase

import "errors"

var (
	// ErrMissingFile is returned when an ingest request carries no upload.
	ErrMissingFile = errors.New("no file uploaded")

	// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")

	// ErrPublishFailed is returned when renditions or metadata could not be
	// written to the content store.
	ErrPublishFailed = errors.New("publish failed")

	// ErrRenditionNotFound is returned when a requested quality was not produced.
	ErrRenditionNotFound = errors.New("rendition not found")
)
