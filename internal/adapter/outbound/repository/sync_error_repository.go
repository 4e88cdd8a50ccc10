package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncErrorRepository implements outbound.SyncErrorRepository using PostgreSQL.
type SyncErrorRepository struct {
	pool *pgxpool.Pool
}

// NewSyncErrorRepository creates a new PostgreSQL sync error repository.
func NewSyncErrorRepository(pool *pgxpool.Pool) *SyncErrorRepository {
	return &SyncErrorRepository{pool: pool}
}

// Save inserts a sync error row. Rows are append-only.
func (r *SyncErrorRepository) Save(ctx context.Context, syncError *entity.SyncError) error {
	if syncError == nil {
		return fmt.Errorf("save sync error: %w", ErrInvalidArgument)
	}

	var rawRecordJSON []byte
	if syncError.RawRecord() != nil {
		var err error
		rawRecordJSON, err = json.Marshal(syncError.RawRecord())
		if err != nil {
			return fmt.Errorf("failed to marshal raw record: %w", err)
		}
	}

	query := `
		INSERT INTO sync_errors (
			id, job_id, record_id, category, message, raw_record,
			retry_count, resolved, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	qi := GetQueryInterface(ctx, r.pool)
	_, err := qi.Exec(ctx, query,
		syncError.ID(), syncError.JobID(), syncError.RecordID(),
		string(syncError.Category()), syncError.Message(), rawRecordJSON,
		syncError.RetryCount(), syncError.Resolved(), syncError.CreatedAt(),
	)
	if err != nil {
		return WrapError(err, "save sync error")
	}

	return nil
}

// FindByJobID returns all errors recorded for a job, oldest first.
func (r *SyncErrorRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.SyncError, error) {
	query := `
		SELECT id, job_id, record_id, category, message, raw_record,
			retry_count, resolved, created_at
		FROM sync_errors
		WHERE job_id = $1
		ORDER BY created_at`

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, jobID)
	if err != nil {
		return nil, WrapError(err, "find sync errors")
	}
	defer rows.Close()

	syncErrors := make([]*entity.SyncError, 0)
	for rows.Next() {
		var (
			id            uuid.UUID
			rowJobID      uuid.UUID
			recordID      *string
			category      string
			message       string
			rawRecordJSON []byte
			retryCount    int
			resolved      bool
			createdAt     time.Time
		)

		scanErr := rows.Scan(&id, &rowJobID, &recordID, &category, &message,
			&rawRecordJSON, &retryCount, &resolved, &createdAt)
		if scanErr != nil {
			return nil, WrapError(scanErr, "scan sync error")
		}

		errorCategory, categoryErr := valueobject.NewErrorCategory(category)
		if categoryErr != nil {
			return nil, fmt.Errorf("invalid stored error category %q: %w", category, categoryErr)
		}

		var rawRecord map[string]any
		if len(rawRecordJSON) > 0 {
			if unmarshalErr := json.Unmarshal(rawRecordJSON, &rawRecord); unmarshalErr != nil {
				return nil, fmt.Errorf("failed to unmarshal raw record: %w", unmarshalErr)
			}
		}

		syncErrors = append(syncErrors, entity.RestoreSyncError(
			id, rowJobID, recordID, errorCategory, message, rawRecord,
			retryCount, resolved, createdAt,
		))
	}

	if rows.Err() != nil {
		return nil, WrapError(rows.Err(), "iterate sync errors")
	}

	return syncErrors, nil
}

// DistinctRecordIDs returns the unique record identifiers of a job's
// unresolved errors.
func (r *SyncErrorRepository) DistinctRecordIDs(ctx context.Context, jobID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT record_id
		FROM sync_errors
		WHERE job_id = $1 AND resolved = false AND record_id IS NOT NULL
		ORDER BY record_id`

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query, jobID)
	if err != nil {
		return nil, WrapError(err, "find distinct error record ids")
	}
	defer rows.Close()

	recordIDs := make([]string, 0)
	for rows.Next() {
		var recordID string
		if scanErr := rows.Scan(&recordID); scanErr != nil {
			return nil, WrapError(scanErr, "scan error record id")
		}
		recordIDs = append(recordIDs, recordID)
	}

	if rows.Err() != nil {
		return nil, WrapError(rows.Err(), "iterate error record ids")
	}

	return recordIDs, nil
}

// MarkResolved flags a job's unresolved errors as resolved and bumps their
// retry counts.
func (r *SyncErrorRepository) MarkResolved(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE sync_errors
		SET resolved = true, retry_count = retry_count + 1
		WHERE job_id = $1 AND resolved = false`

	qi := GetQueryInterface(ctx, r.pool)
	if _, err := qi.Exec(ctx, query, jobID); err != nil {
		return WrapError(err, "mark sync errors resolved")
	}

	return nil
}
