package outbound

import (
	"context"

	"vectorsync/internal/domain/entity"

	"github.com/google/uuid"
)

// SyncErrorRepository persists record- and batch-level sync failures.
type SyncErrorRepository interface {
	Save(ctx context.Context, syncError *entity.SyncError) error
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.SyncError, error)

	// DistinctRecordIDs returns the unique record identifiers of a job's
	// unresolved errors, for the manual retry workflow.
	DistinctRecordIDs(ctx context.Context, jobID uuid.UUID) ([]string, error)

	// MarkResolved flags a job's unresolved errors as resolved once their
	// records have been re-driven.
	MarkResolved(ctx context.Context, jobID uuid.UUID) error
}
