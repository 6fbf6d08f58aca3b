package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus represents the state of one ingestion attempt in the ledger.
type AttemptStatus string

const (
	AttemptStarted   AttemptStatus = "STARTED"
	AttemptPublished AttemptStatus = "PUBLISHED"
	AttemptFailed    AttemptStatus = "FAILED"
	AttemptReaped    AttemptStatus = "REAPED"
)

// Valid status transitions:
// STARTED -> PUBLISHED
//         \-> FAILED -> REAPED
var validAttemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptStarted:   {AttemptPublished, AttemptFailed},
	AttemptPublished: {},
	AttemptFailed:    {AttemptReaped},
	AttemptReaped:    {},
}

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStarted, AttemptPublished, AttemptFailed, AttemptReaped:
		return true
	default:
		return false
	}
}

func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	allowed, exists := validAttemptTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s AttemptStatus) String() string {
	return string(s)
}

// IngestAttempt records the outcome of one ingestion so that objects left
// behind by failed attempts can be found and removed later.
type IngestAttempt struct {
	ID            uuid.UUID
	AssetID       uuid.UUID
	Family        Family
	Status        AttemptStatus
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var ErrInvalidTransition = errors.New("invalid status transition")

const maxFailureReasonLength = 1024

// NewIngestAttempt creates an attempt in STARTED status.
func NewIngestAttempt(assetID uuid.UUID, family Family) *IngestAttempt {
	now := time.Now()
	return &IngestAttempt{
		ID:        uuid.New(),
		AssetID:   assetID,
		Family:    family,
		Status:    AttemptStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the attempt status.
func (a *IngestAttempt) TransitionTo(next AttemptStatus) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !a.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	a.Status = next
	a.UpdatedAt = time.Now()
	return nil
}

// Fail moves the attempt to FAILED and records why.
func (a *IngestAttempt) Fail(reason string) error {
	if err := a.TransitionTo(AttemptFailed); err != nil {
		return err
	}
	if len(reason) > maxFailureReasonLength {
		reason = reason[:maxFailureReasonLength]
	}
	a.FailureReason = reason
	return nil
}
