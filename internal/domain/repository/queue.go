package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// CleanupTask asks the reaper to remove objects a failed ingest left behind.
type CleanupTask struct {
	AttemptID  uuid.UUID    `json:"attempt_id"`
	AssetID    uuid.UUID    `json:"asset_id"`
	Family     model.Family `json:"family"`
	RetryCount int          `json:"retry_count"`
}

// CleanupQueue defines the interface for cleanup task delivery.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type CleanupQueue interface {
	// PublishCleanupTask sends a cleanup task to the queue.
	// Used by the ingest path after a failure that may have written objects.
	PublishCleanupTask(ctx context.Context, task CleanupTask) error

	// ConsumeCleanupTasks calls handler for each received task until ctx is done.
	// Used by the reaper.
	ConsumeCleanupTasks(ctx context.Context, handler func(task CleanupTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
