package entity

import (
	"time"

	"vectorsync/internal/domain/valueobject"

	"github.com/google/uuid"
)

// SyncJob represents one execution instance of a sync mode against a datasource.
//
// Progress counters hold the invariant successful+failed == processed at every
// observation point; RecordBatch is the only mutator and enforces it.
type SyncJob struct {
	id                uuid.UUID
	datasourceID      uuid.UUID
	mode              valueobject.SyncMode
	status            valueobject.JobStatus
	totalRecords      *int
	processedRecords  int
	successfulRecords int
	failedRecords     int
	errorMessage      *string
	metadata          map[string]any
	startedAt         *time.Time
	completedAt       *time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// NewSyncJob creates a new pending SyncJob for a datasource.
func NewSyncJob(datasourceID uuid.UUID, mode valueobject.SyncMode) *SyncJob {
	now := time.Now()
	return &SyncJob{
		id:           uuid.New(),
		datasourceID: datasourceID,
		mode:         mode,
		status:       valueobject.JobStatusPending,
		metadata:     map[string]any{},
		createdAt:    now,
		updatedAt:    now,
	}
}

// RestoreSyncJob creates a SyncJob entity from stored data.
func RestoreSyncJob(
	id uuid.UUID,
	datasourceID uuid.UUID,
	mode valueobject.SyncMode,
	status valueobject.JobStatus,
	totalRecords *int,
	processedRecords int,
	successfulRecords int,
	failedRecords int,
	errorMessage *string,
	metadata map[string]any,
	startedAt *time.Time,
	completedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *SyncJob {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &SyncJob{
		id:                id,
		datasourceID:      datasourceID,
		mode:              mode,
		status:            status,
		totalRecords:      totalRecords,
		processedRecords:  processedRecords,
		successfulRecords: successfulRecords,
		failedRecords:     failedRecords,
		errorMessage:      errorMessage,
		metadata:          metadata,
		startedAt:         startedAt,
		completedAt:       completedAt,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ID returns the job ID.
func (j *SyncJob) ID() uuid.UUID {
	return j.id
}

// DatasourceID returns the owning datasource ID.
func (j *SyncJob) DatasourceID() uuid.UUID {
	return j.datasourceID
}

// Mode returns the sync mode.
func (j *SyncJob) Mode() valueobject.SyncMode {
	return j.mode
}

// Status returns the current job status.
func (j *SyncJob) Status() valueobject.JobStatus {
	return j.status
}

// TotalRecords returns the expected record count, nil until counted.
func (j *SyncJob) TotalRecords() *int {
	return j.totalRecords
}

// ProcessedRecords returns the number of records processed so far.
func (j *SyncJob) ProcessedRecords() int {
	return j.processedRecords
}

// SuccessfulRecords returns the number of records synced successfully.
func (j *SyncJob) SuccessfulRecords() int {
	return j.successfulRecords
}

// FailedRecords returns the number of records that failed.
func (j *SyncJob) FailedRecords() int {
	return j.failedRecords
}

// ErrorMessage returns the failure message if the job failed.
func (j *SyncJob) ErrorMessage() *string {
	return j.errorMessage
}

// Metadata returns the free-form job metadata (e.g. webhook code list).
func (j *SyncJob) Metadata() map[string]any {
	return j.metadata
}

// StartedAt returns the job start timestamp.
func (j *SyncJob) StartedAt() *time.Time {
	return j.startedAt
}

// CompletedAt returns the job completion timestamp.
func (j *SyncJob) CompletedAt() *time.Time {
	return j.completedAt
}

// CreatedAt returns the creation timestamp.
func (j *SyncJob) CreatedAt() time.Time {
	return j.createdAt
}

// UpdatedAt returns the last update timestamp.
func (j *SyncJob) UpdatedAt() time.Time {
	return j.updatedAt
}

// IsTerminal returns true if the job is in a terminal state.
func (j *SyncJob) IsTerminal() bool {
	return j.status.IsTerminal()
}

// Duration returns the job duration if completed.
func (j *SyncJob) Duration() *time.Duration {
	if j.startedAt == nil || j.completedAt == nil {
		return nil
	}
	duration := j.completedAt.Sub(*j.startedAt)
	return &duration
}

// SetTotalRecords records the expected total once it is known.
func (j *SyncJob) SetTotalRecords(total int) {
	j.totalRecords = &total
	j.updatedAt = time.Now()
}

// SetMetadata stores a metadata value under the given key.
func (j *SyncJob) SetMetadata(key string, value any) {
	j.metadata[key] = value
	j.updatedAt = time.Now()
}

// Start marks the job as started.
func (j *SyncJob) Start() error {
	if !j.status.CanTransitionTo(valueobject.JobStatusRunning) {
		return NewDomainError("cannot start job in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	j.status = valueobject.JobStatusRunning
	j.startedAt = &now
	j.updatedAt = now
	return nil
}

// Complete marks the job as completed successfully.
func (j *SyncJob) Complete() error {
	if !j.status.CanTransitionTo(valueobject.JobStatusCompleted) {
		return NewDomainError("cannot complete job in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	j.status = valueobject.JobStatusCompleted
	j.completedAt = &now
	j.errorMessage = nil
	j.updatedAt = now
	return nil
}

// Fail marks the job as failed with an error message.
func (j *SyncJob) Fail(errorMessage string) error {
	if !j.status.CanTransitionTo(valueobject.JobStatusFailed) {
		return NewDomainError("cannot fail job in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	j.status = valueobject.JobStatusFailed
	j.completedAt = &now
	j.errorMessage = &errorMessage
	j.updatedAt = now
	return nil
}

// Cancel marks the job as cancelled. Cancellation is cooperative: a processor
// observes the persisted status at the next batch boundary, so an in-flight
// batch always runs to completion.
func (j *SyncJob) Cancel() error {
	if !j.status.CanTransitionTo(valueobject.JobStatusCancelled) {
		return NewDomainError("cannot cancel job in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	j.status = valueobject.JobStatusCancelled
	j.completedAt = &now
	j.updatedAt = now
	return nil
}

// RecordBatch folds one batch result into the progress counters.
func (j *SyncJob) RecordBatch(successful, failed int) error {
	if successful < 0 || failed < 0 {
		return NewDomainError("batch counters cannot be negative", "INVALID_BATCH_COUNTERS")
	}

	j.processedRecords += successful + failed
	j.successfulRecords += successful
	j.failedRecords += failed
	j.updatedAt = time.Now()
	return nil
}

// Equal compares two SyncJob entities.
func (j *SyncJob) Equal(other *SyncJob) bool {
	if other == nil {
		return false
	}
	return j.id == other.id
}
