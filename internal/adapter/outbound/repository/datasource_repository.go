package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vectorsync/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatasourceRepository implements outbound.DatasourceRepository using PostgreSQL.
type DatasourceRepository struct {
	pool *pgxpool.Pool
}

// NewDatasourceRepository creates a new PostgreSQL datasource repository.
func NewDatasourceRepository(pool *pgxpool.Pool) *DatasourceRepository {
	return &DatasourceRepository{pool: pool}
}

const datasourceColumns = `id, name, source_type, host, port, database_name, username, password,
	query_template, field_mapping, key_field, embedding_fields, collection, batch_size,
	batch_delay_ms, cron_schedule, webhook_secret, last_synced_at, enabled, created_at, updated_at`

// FindByID retrieves a datasource by its ID.
func (r *DatasourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Datasource, error) {
	query := fmt.Sprintf("SELECT %s FROM datasources WHERE id = $1", datasourceColumns)

	qi := GetQueryInterface(ctx, r.pool)
	datasource, err := scanDatasource(qi.QueryRow(ctx, query, id))
	if err != nil {
		if IsNotFoundError(err) {
			return nil, entity.ErrDatasourceNotFound
		}
		return nil, WrapError(err, "find datasource")
	}

	return datasource, nil
}

// FindScheduled returns enabled datasources carrying a cron expression.
func (r *DatasourceRepository) FindScheduled(ctx context.Context) ([]*entity.Datasource, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM datasources WHERE enabled = true AND cron_schedule <> '' ORDER BY name",
		datasourceColumns,
	)

	qi := GetQueryInterface(ctx, r.pool)
	rows, err := qi.Query(ctx, query)
	if err != nil {
		return nil, WrapError(err, "find scheduled datasources")
	}
	defer rows.Close()

	datasources := make([]*entity.Datasource, 0)
	for rows.Next() {
		datasource, scanErr := scanDatasource(rows)
		if scanErr != nil {
			return nil, WrapError(scanErr, "scan datasource")
		}
		datasources = append(datasources, datasource)
	}

	if rows.Err() != nil {
		return nil, WrapError(rows.Err(), "iterate datasources")
	}

	return datasources, nil
}

// UpdateLastSyncedAt advances the incremental watermark. The update is guarded
// in SQL so an older timestamp never rolls a newer watermark back.
func (r *DatasourceRepository) UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, lastSyncedAt time.Time) error {
	query := `
		UPDATE datasources
		SET last_synced_at = $2, updated_at = NOW()
		WHERE id = $1 AND (last_synced_at IS NULL OR last_synced_at < $2)`

	qi := GetQueryInterface(ctx, r.pool)
	if _, err := qi.Exec(ctx, query, id, lastSyncedAt); err != nil {
		return WrapError(err, "update datasource watermark")
	}

	return nil
}

func scanDatasource(row pgx.Row) (*entity.Datasource, error) {
	var (
		id                  uuid.UUID
		name                string
		sourceType          string
		host                string
		port                int
		database            string
		username            string
		password            string
		queryTemplate       string
		fieldMappingJSON    []byte
		keyField            string
		embeddingFieldsJSON []byte
		collection          string
		batchSize           int
		batchDelayMs        int
		cronSchedule        string
		webhookSecret       string
		lastSyncedAt        *time.Time
		enabled             bool
		createdAt           time.Time
		updatedAt           time.Time
	)

	err := row.Scan(
		&id, &name, &sourceType, &host, &port, &database, &username, &password,
		&queryTemplate, &fieldMappingJSON, &keyField, &embeddingFieldsJSON,
		&collection, &batchSize, &batchDelayMs, &cronSchedule, &webhookSecret,
		&lastSyncedAt, &enabled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var fieldMapping map[string]string
	if len(fieldMappingJSON) > 0 {
		if unmarshalErr := json.Unmarshal(fieldMappingJSON, &fieldMapping); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to unmarshal field mapping: %w", unmarshalErr)
		}
	}

	var embeddingFields []string
	if len(embeddingFieldsJSON) > 0 {
		if unmarshalErr := json.Unmarshal(embeddingFieldsJSON, &embeddingFields); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding fields: %w", unmarshalErr)
		}
	}

	return entity.RestoreDatasource(
		id, name, sourceType, host, port, database, username, password,
		queryTemplate, fieldMapping, keyField, embeddingFields, collection,
		batchSize, time.Duration(batchDelayMs)*time.Millisecond, cronSchedule,
		webhookSecret, lastSyncedAt, enabled, createdAt, updatedAt,
	), nil
}
