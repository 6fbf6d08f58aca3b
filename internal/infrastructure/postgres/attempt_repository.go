package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/mediagate/internal/domain/model"
	"github.com/hszk-dev/mediagate/internal/domain/repository"
	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrDuplicateAttempt is returned when an attempt id is inserted twice.
var ErrDuplicateAttempt = errors.New("ingest attempt already exists")

// AttemptRepository implements repository.AttemptRepository using PostgreSQL.
type AttemptRepository struct {
	db DBTX
}

// Compile-time verification that AttemptRepository implements repository.AttemptRepository.
var _ repository.AttemptRepository = (*AttemptRepository)(nil)

// NewAttemptRepository creates a new AttemptRepository instance.
func NewAttemptRepository(db DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create persists a new attempt.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.IngestAttempt) error {
	const query = `
		INSERT INTO ingest_attempts (id, asset_id, family, status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableIngestAttempts).Inc()
	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.AssetID,
		attempt.Family.String(),
		attempt.Status.String(),
		nullString(attempt.FailureReason),
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAttempt
		}
		return fmt.Errorf("failed to create ingest attempt: %w", err)
	}

	return nil
}

// GetByID retrieves an attempt by its unique identifier.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.IngestAttempt, error) {
	const query = `
		SELECT id, asset_id, family, status, failure_reason, created_at, updated_at
		FROM ingest_attempts
		WHERE id = $1
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableIngestAttempts).Inc()
	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get ingest attempt by ID: %w", err)
	}

	return attempt, nil
}

// Update persists status and failure reason changes.
func (r *AttemptRepository) Update(ctx context.Context, attempt *model.IngestAttempt) error {
	const query = `
		UPDATE ingest_attempts
		SET status = $2, failure_reason = $3, updated_at = $4
		WHERE id = $1
	`

	attempt.UpdatedAt = time.Now()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableIngestAttempts).Inc()
	tag, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.Status.String(),
		nullString(attempt.FailureReason),
		attempt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ingest attempt: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrAttemptNotFound
	}

	return nil
}

// ListByStatus returns up to limit attempts in status, oldest first.
func (r *AttemptRepository) ListByStatus(ctx context.Context, status model.AttemptStatus, limit int) ([]*model.IngestAttempt, error) {
	const query = `
		SELECT id, asset_id, family, status, failure_reason, created_at, updated_at
		FROM ingest_attempts
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableIngestAttempts).Inc()
	rows, err := r.db.Query(ctx, query, status.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest attempts by status: %w", err)
	}
	defer rows.Close()

	var attempts []*model.IngestAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingest attempts: %w", err)
	}

	return attempts, nil
}

// scanAttempt scans a single row into an IngestAttempt.
// pgx.Rows satisfies pgx.Row, so this serves both QueryRow and Query.
func scanAttempt(row pgx.Row) (*model.IngestAttempt, error) {
	var (
		attempt model.IngestAttempt
		family  string
		status  string
		reason  *string
	)

	err := row.Scan(
		&attempt.ID,
		&attempt.AssetID,
		&family,
		&status,
		&reason,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	attempt.Family = model.Family(family)
	attempt.Status = model.AttemptStatus(status)
	if reason != nil {
		attempt.FailureReason = *reason
	}

	return &attempt, nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
