package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// AttemptRepository defines persistence for the ingest attempt ledger.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type AttemptRepository interface {
	// Create persists a new attempt.
	Create(ctx context.Context, attempt *model.IngestAttempt) error

	// GetByID retrieves an attempt.
	// Returns ErrAttemptNotFound if the attempt does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.IngestAttempt, error)

	// Update persists status and failure reason changes.
	// Returns ErrAttemptNotFound if the attempt does not exist.
	Update(ctx context.Context, attempt *model.IngestAttempt) error

	// ListByStatus returns up to limit attempts in the given status, oldest first.
	ListByStatus(ctx context.Context, status model.AttemptStatus, limit int) ([]*model.IngestAttempt, error)
}
