package outbound

import (
	"context"
	"time"

	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"

	"github.com/google/uuid"
)

// SyncJobFilters defines paging for job listings.
type SyncJobFilters struct {
	Limit  int
	Offset int
}

// SyncJobRepository persists sync jobs.
//
// UpdateStatus and IncrementProgress are the only writers of job state after
// creation. IncrementProgress must be an additive storage-level operation so
// concurrent writers (processor and reaper) cannot lose updates.
type SyncJobRepository interface {
	Save(ctx context.Context, job *entity.SyncJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error)
	FindByDatasourceID(ctx context.Context, datasourceID uuid.UUID, filters SyncJobFilters) ([]*entity.SyncJob, int, error)

	// UpdateStatus transitions the job's persisted status. Setting running
	// stamps started_at; any terminal status stamps completed_at.
	UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.JobStatus, errorMessage *string) error

	// IncrementProgress adds the batch counters atomically
	// (SET processed_records = processed_records + n, never read-modify-write).
	IncrementProgress(ctx context.Context, id uuid.UUID, successful, failed int) error

	// SetTotalRecords records the expected total once counted.
	SetTotalRecords(ctx context.Context, id uuid.UUID, total int) error

	// FindStale returns running jobs whose start time is older than the cutoff.
	FindStale(ctx context.Context, startedBefore time.Time) ([]*entity.SyncJob, error)

	// DeleteTerminalBefore removes completed/cancelled jobs older than the cutoff
	// and returns the number of rows deleted.
	DeleteTerminalBefore(ctx context.Context, completedBefore time.Time) (int64, error)
}
