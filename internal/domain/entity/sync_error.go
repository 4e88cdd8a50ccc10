package entity

import (
	"time"

	"vectorsync/internal/domain/valueobject"

	"github.com/google/uuid"
)

// SyncError records one record-level or batch-level failure inside a sync job.
// Rows are append-only; only a retry workflow flips the resolved flag.
type SyncError struct {
	id         uuid.UUID
	jobID      uuid.UUID
	recordID   *string
	category   valueobject.ErrorCategory
	message    string
	rawRecord  map[string]any
	retryCount int
	resolved   bool
	createdAt  time.Time
}

// NewSyncError creates a new unresolved SyncError for a job.
func NewSyncError(
	jobID uuid.UUID,
	recordID *string,
	category valueobject.ErrorCategory,
	message string,
	rawRecord map[string]any,
) *SyncError {
	return &SyncError{
		id:        uuid.New(),
		jobID:     jobID,
		recordID:  recordID,
		category:  category,
		message:   message,
		rawRecord: rawRecord,
		createdAt: time.Now(),
	}
}

// RestoreSyncError creates a SyncError entity from stored data.
func RestoreSyncError(
	id uuid.UUID,
	jobID uuid.UUID,
	recordID *string,
	category valueobject.ErrorCategory,
	message string,
	rawRecord map[string]any,
	retryCount int,
	resolved bool,
	createdAt time.Time,
) *SyncError {
	return &SyncError{
		id:         id,
		jobID:      jobID,
		recordID:   recordID,
		category:   category,
		message:    message,
		rawRecord:  rawRecord,
		retryCount: retryCount,
		resolved:   resolved,
		createdAt:  createdAt,
	}
}

// ID returns the error ID.
func (e *SyncError) ID() uuid.UUID {
	return e.id
}

// JobID returns the owning job ID.
func (e *SyncError) JobID() uuid.UUID {
	return e.jobID
}

// RecordID returns the source record identifier, if the failure is record-scoped.
func (e *SyncError) RecordID() *string {
	return e.recordID
}

// Category returns the error category.
func (e *SyncError) Category() valueobject.ErrorCategory {
	return e.category
}

// Message returns the error message.
func (e *SyncError) Message() string {
	return e.message
}

// RawRecord returns the failing record snapshot, if captured.
func (e *SyncError) RawRecord() map[string]any {
	return e.rawRecord
}

// RetryCount returns how many times this record has been re-driven.
func (e *SyncError) RetryCount() int {
	return e.retryCount
}

// Resolved returns true once a retry workflow has cleared the error.
func (e *SyncError) Resolved() bool {
	return e.resolved
}

// CreatedAt returns the creation timestamp.
func (e *SyncError) CreatedAt() time.Time {
	return e.createdAt
}

// Resolve marks the error as resolved and bumps the retry count.
func (e *SyncError) Resolve() {
	e.resolved = true
	e.retryCount++
}
