package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncJobRepository implements outbound.SyncJobRepository using PostgreSQL.
type SyncJobRepository struct {
	pool *pgxpool.Pool
}

// NewSyncJobRepository creates a new PostgreSQL sync job repository.
func NewSyncJobRepository(pool *pgxpool.Pool) *SyncJobRepository {
	return &SyncJobRepository{pool: pool}
}

const syncJobColumns = `id, datasource_id, mode, status, total_records, processed_records,
	successful_records, failed_records, error_message, metadata, started_at, completed_at,
	created_at, updated_at`

// Save inserts a new sync job or updates an existing one.
func (r *SyncJobRepository) Save(ctx context.Context, job *entity.SyncJob) error {
	if job == nil {
		return fmt.Errorf("save sync job: %w", ErrInvalidArgument)
	}

	metadataJSON, err := json.Marshal(job.Metadata())
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	query := `
		INSERT INTO sync_jobs (
			id, datasource_id, mode, status, total_records, processed_records,
			successful_records, failed_records, error_message, metadata,
			started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total_records = EXCLUDED.total_records,
			processed_records = EXCLUDED.processed_records,
			successful_records = EXCLUDED.successful_records,
			failed_records = EXCLUDED.failed_records,
			error_message = EXCLUDED.error_message,
			metadata = EXCLUDED.metadata,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at`

	qi := GetQueryInterface(ctx, r.pool)
	_, err = qi.Exec(ctx, query,
		job.ID(), job.DatasourceID(), string(job.Mode()), string(job.Status()),
		job.TotalRecords(), job.ProcessedRecords(), job.SuccessfulRecords(), job.FailedRecords(),
		job.ErrorMessage(), metadataJSON, job.StartedAt(), job.CompletedAt(),
		job.CreatedAt(), job.UpdatedAt(),
	)
	if err != nil {
		return WrapError(err, "save sync job")
	}

	return nil
}

// FindByID retrieves a sync job by its ID.
func (r *SyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	query := fmt.Sprintf("SELECT %s FROM sync_jobs WHERE id = $1", syncJobColumns)

	qi := GetQueryInterface(ctx, r.pool)
	job, err := scanSyncJob(qi.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, entity.ErrJobNotFound
		}
		return nil, WrapError(err, "find sync job")
	}

	return job, nil
}

// FindByDatasourceID lists a datasource's jobs, newest first, with a total count.
func (r *SyncJobRepository) FindByDatasourceID(
	ctx context.Context,
	datasourceID uuid.UUID,
	filters outbound.SyncJobFilters,
) ([]*entity.SyncJob, int, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	qi := GetQueryInterface(ctx, r.pool)

	var total int
	countQuery := "SELECT COUNT(*) FROM sync_jobs WHERE datasource_id = $1"
	if err := qi.QueryRow(ctx, countQuery, datasourceID).Scan(&total); err != nil {
		return nil, 0, WrapError(err, "count sync jobs")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM sync_jobs WHERE datasource_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		syncJobColumns,
	)

	rows, err := qi.Query(ctx, query, datasourceID, limit, offset)
	if err != nil {
		return nil, 0, WrapError(err, "list sync jobs")
	}
	defer rows.Close()

	jobs := make([]*entity.SyncJob, 0)
	for rows.Next() {
		job, scanErr := scanSyncJob(rows)
		if scanErr != nil {
			return nil, 0, WrapError(scanErr, "scan sync job")
		}
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, 0, WrapError(rows.Err(), "iterate sync jobs")
	}

	return jobs, total, nil
}

// UpdateStatus transitions the persisted job status. Moving to running stamps
// started_at; any terminal status stamps completed_at.
func (r *SyncJobRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status valueobject.JobStatus,
	errorMessage *string,
) error {
	var query string
	switch {
	case status == valueobject.JobStatusRunning:
		query = `
			UPDATE sync_jobs
			SET status = $2, error_message = $3, started_at = NOW(), updated_at = NOW()
			WHERE id = $1`
	case status.IsTerminal():
		query = `
			UPDATE sync_jobs
			SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
			WHERE id = $1`
	default:
		query = `
			UPDATE sync_jobs
			SET status = $2, error_message = $3, updated_at = NOW()
			WHERE id = $1`
	}

	qi := GetQueryInterface(ctx, r.pool)
	tag, err := qi.Exec(ctx, query, id, string(status), errorMessage)
	if err != nil {
		return WrapError(err, "update sync job status")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrJobNotFound
	}

	return nil
}

// IncrementProgress adds batch counters to the job row. The increments are
// additive at the storage level so concurrent writers cannot lose updates.
func (r *SyncJobRepository) IncrementProgress(ctx context.Context, id uuid.UUID, successful, failed int) error {
	if successful < 0 || failed < 0 {
		return fmt.Errorf("increment progress: %w", ErrInvalidArgument)
	}

	query := `
		UPDATE sync_jobs
		SET processed_records = processed_records + $2,
			successful_records = successful_records + $3,
			failed_records = failed_records + $4,
			updated_at = NOW()
		WHERE id = $1`

	qi := GetQueryInterface(ctx, r.pool)
	tag, err := qi.Exec(ctx, query, id, successful+failed, successful, failed)
	if err != nil {
		return WrapError(err, "increment sync job progress")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrJobNotFound
	}

	return nil
}

// SetTotalRecords records the expected total once counted.
func (r *SyncJobRepository) SetTotalRecords(ctx context.Context, id uuid.UUID, total int) error {
	query := `UPDATE sync_jobs SET total_records = $2, updated_at = NOW() WHERE id = $1`

	qi := GetQueryInterface(ctx, r.pool)
	tag, err := qi.Exec(ctx, query, id, total)
	if err != nil {
		return WrapError(err, "set sync job total")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrJobNotFound
	}

	return nil
}

// FindStale returns running jobs whose start time is older than the cutoff
// and that have made no progress since; updated_at advances on every counter
// increment, so a slow but live job is not reaped.
func (r *SyncJobRepository) FindStale(ctx context.Context, startedBefore time.Time) ([]*entity.SyncJob, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM sync_jobs WHERE status = $1 AND started_at < $2 AND updated_at < $2 ORDER BY started_at",
		syncJobColumns,
	)

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, string(valueobject.JobStatusRunning), startedBefore)
	if err != nil {
		return nil, WrapError(err, "find stale sync jobs")
	}
	defer rows.Close()

	jobs := make([]*entity.SyncJob, 0)
	for rows.Next() {
		job, scanErr := scanSyncJob(rows)
		if scanErr != nil {
			return nil, WrapError(scanErr, "scan stale sync job")
		}
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, WrapError(rows.Err(), "iterate stale sync jobs")
	}

	return jobs, nil
}

// DeleteTerminalBefore removes completed and cancelled jobs older than the
// cutoff. Failed jobs are kept for inspection.
func (r *SyncJobRepository) DeleteTerminalBefore(ctx context.Context, completedBefore time.Time) (int64, error) {
	query := `
		DELETE FROM sync_jobs
		WHERE status IN ($1, $2) AND completed_at < $3`

	qi := GetQueryInterface(ctx, r.pool)
	tag, err := qi.Exec(ctx, query,
		string(valueobject.JobStatusCompleted), string(valueobject.JobStatusCancelled), completedBefore)
	if err != nil {
		return 0, WrapError(err, "delete terminal sync jobs")
	}

	return tag.RowsAffected(), nil
}

func scanSyncJob(row pgx.Row) (*entity.SyncJob, error) {
	var (
		id, datasourceID  uuid.UUID
		mode, status      string
		totalRecords      *int
		processedRecords  int
		successfulRecords int
		failedRecords     int
		errorMessage      *string
		metadataJSON      []byte
		startedAt         *time.Time
		completedAt       *time.Time
		createdAt         time.Time
		updatedAt         time.Time
	)

	err := row.Scan(
		&id, &datasourceID, &mode, &status, &totalRecords, &processedRecords,
		&successfulRecords, &failedRecords, &errorMessage, &metadataJSON,
		&startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	syncMode, err := valueobject.NewSyncMode(mode)
	if err != nil {
		return nil, fmt.Errorf("invalid stored sync mode %q: %w", mode, err)
	}

	jobStatus, err := valueobject.NewJobStatus(status)
	if err != nil {
		return nil, fmt.Errorf("invalid stored job status %q: %w", status, err)
	}

	var metadata map[string]any
	if len(metadataJSON) > 0 {
		if unmarshalErr := json.Unmarshal(metadataJSON, &metadata); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to unmarshal job metadata: %w", unmarshalErr)
		}
	}

	return entity.RestoreSyncJob(
		id, datasourceID, syncMode, jobStatus,
		totalRecords, processedRecords, successfulRecords, failedRecords,
		errorMessage, metadata, startedAt, completedAt, createdAt, updatedAt,
	), nil
}
