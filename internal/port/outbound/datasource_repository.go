package outbound

import (
	"context"
	"time"

	"vectorsync/internal/domain/entity"

	"github.com/google/uuid"
)

// DatasourceRepository reads datasource configuration. The sync engine never
// writes datasource rows except to advance the incremental watermark.
type DatasourceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Datasource, error)

	// FindScheduled returns enabled datasources carrying a cron expression.
	FindScheduled(ctx context.Context) ([]*entity.Datasource, error)

	// UpdateLastSyncedAt advances the incremental watermark.
	UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, lastSyncedAt time.Time) error
}
