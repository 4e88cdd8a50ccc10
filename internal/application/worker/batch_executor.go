package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/identity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
)

// BatchResult is the outcome of one batch execution.
type BatchResult struct {
	Successful int
	Failed     int
}

// BatchExecutor runs the shared per-batch pipeline: embedding text assembly,
// batch embedding, identity mapping, vector store upsert and progress
// accounting.
//
// A failure inside one batch marks that batch's rows failed and lets the job
// continue; only a progress-persistence failure is returned to the caller,
// because losing counter writes would break resume planning.
type BatchExecutor struct {
	embeddings     outbound.EmbeddingService
	vectorStore    outbound.VectorStore
	jobs           outbound.SyncJobRepository
	syncErrors     outbound.SyncErrorRepository
	distanceMetric string
	metrics        *syncMetrics
}

// NewBatchExecutor creates a batch executor.
func NewBatchExecutor(
	embeddings outbound.EmbeddingService,
	vectorStore outbound.VectorStore,
	jobs outbound.SyncJobRepository,
	syncErrors outbound.SyncErrorRepository,
	distanceMetric string,
) (*BatchExecutor, error) {
	if embeddings == nil || vectorStore == nil || jobs == nil || syncErrors == nil {
		return nil, errors.New("batch executor dependencies cannot be nil")
	}

	metrics, err := newSyncMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	return &BatchExecutor{
		embeddings:     embeddings,
		vectorStore:    vectorStore,
		jobs:           jobs,
		syncErrors:     syncErrors,
		distanceMetric: distanceMetric,
		metrics:        metrics,
	}, nil
}

// ExecuteBatch processes one page of source rows for a job.
func (e *BatchExecutor) ExecuteBatch(
	ctx context.Context,
	jobID uuid.UUID,
	ds *entity.Datasource,
	rows []map[string]any,
	batchIndex int,
) (BatchResult, error) {
	if len(rows) == 0 {
		return BatchResult{}, nil
	}

	start := time.Now()
	mode := "batch"

	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = BuildEmbeddingText(row, ds.EmbeddingFields())
	}

	vectors, err := e.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		e.failBatch(ctx, jobID, ds, rows, valueobject.ErrorCategoryEmbedding,
			fmt.Sprintf("batch %d embedding failed: %v", batchIndex, err))
		result := BatchResult{Failed: len(rows)}
		e.metrics.recordBatch(ctx, mode, 0, result.Failed, time.Since(start))
		return result, e.jobs.IncrementProgress(ctx, jobID, 0, result.Failed)
	}

	points, err := e.buildPoints(ctx, ds, rows, vectors, batchIndex)
	if err != nil {
		e.failBatch(ctx, jobID, ds, rows, valueobject.ErrorCategoryIdentity,
			fmt.Sprintf("batch %d rejected: %v", batchIndex, err))
		result := BatchResult{Failed: len(rows)}
		e.metrics.recordBatch(ctx, mode, 0, result.Failed, time.Since(start))
		return result, e.jobs.IncrementProgress(ctx, jobID, 0, result.Failed)
	}

	if err := e.upsert(ctx, ds, points); err != nil {
		e.failBatch(ctx, jobID, ds, rows, valueobject.ErrorCategoryVectorStore,
			fmt.Sprintf("batch %d upsert failed: %v", batchIndex, err))
		result := BatchResult{Failed: len(rows)}
		e.metrics.recordBatch(ctx, mode, 0, result.Failed, time.Since(start))
		return result, e.jobs.IncrementProgress(ctx, jobID, 0, result.Failed)
	}

	result := BatchResult{Successful: len(rows)}
	e.metrics.recordBatch(ctx, mode, result.Successful, 0, time.Since(start))
	return result, e.jobs.IncrementProgress(ctx, jobID, result.Successful, 0)
}

// buildPoints maps rows to destination points. Every derived id must pass
// format validation; a single non-conforming id rejects the whole batch so a
// malformed identifier never reaches the store.
func (e *BatchExecutor) buildPoints(
	ctx context.Context,
	ds *entity.Datasource,
	rows []map[string]any,
	vectors [][]float32,
	batchIndex int,
) ([]outbound.Point, error) {
	if len(vectors) != len(rows) {
		return nil, fmt.Errorf("embedding count %d does not match row count %d", len(vectors), len(rows))
	}

	now := time.Now()
	points := make([]outbound.Point, 0, len(rows))

	for i, row := range rows {
		key := stringifyKey(row[ds.KeyField()])

		pointID, err := identity.PointID(key)
		if err != nil {
			if !errors.Is(err, identity.ErrEmptyKey) {
				return nil, err
			}
			pointID = identity.FallbackPointID(now, batchIndex, i)
			slogger.Warn(ctx, "Source key is empty, using non-idempotent fallback point id", slogger.Fields{
				"datasource_id": ds.ID().String(),
				"key_field":     ds.KeyField(),
				"batch_index":   batchIndex,
				"position":      i,
				"point_id":      pointID,
			})
		}

		if err := identity.Validate(pointID); err != nil {
			return nil, err
		}

		points = append(points, outbound.Point{
			ID:      pointID,
			Vector:  vectors[i],
			Payload: MapPayload(row, ds.FieldMapping()),
		})
	}

	return points, nil
}

// upsert writes the batch to the vector store, provisioning the collection and
// retrying once when the store reports it missing.
func (e *BatchExecutor) upsert(ctx context.Context, ds *entity.Datasource, points []outbound.Point) error {
	err := e.vectorStore.Upsert(ctx, ds.Collection(), points)
	if err == nil {
		return nil
	}
	if !errors.Is(err, outbound.ErrCollectionNotFound) {
		return err
	}

	vectorSize := 0
	if len(points) > 0 {
		vectorSize = len(points[0].Vector)
	}

	slogger.Info(ctx, "Collection missing, provisioning before retry", slogger.Fields{
		"collection":  ds.Collection(),
		"vector_size": vectorSize,
	})

	if ensureErr := e.vectorStore.EnsureCollection(ctx, ds.Collection(), vectorSize, e.distanceMetric); ensureErr != nil {
		return fmt.Errorf("failed to provision collection: %w", ensureErr)
	}

	return e.vectorStore.Upsert(ctx, ds.Collection(), points)
}

// failBatch records one sync error per row, carrying each row's source key as
// the record id so the failed rows stay reachable for manual retry. A row
// without a usable key gets a nil record id. Error rows are advisory;
// persistence failures here are logged and swallowed so they cannot mask the
// original batch failure.
func (e *BatchExecutor) failBatch(
	ctx context.Context,
	jobID uuid.UUID,
	ds *entity.Datasource,
	rows []map[string]any,
	category valueobject.ErrorCategory,
	message string,
) {
	slogger.Error(ctx, "Batch failed, continuing with next batch", slogger.Fields{
		"job_id":        jobID.String(),
		"datasource_id": ds.ID().String(),
		"category":      string(category),
		"rows":          len(rows),
		"error":         message,
	})

	for _, row := range rows {
		var recordID *string
		if key := stringifyKey(row[ds.KeyField()]); key != "" {
			recordID = &key
		}

		syncError := entity.NewSyncError(jobID, recordID, category, message, row)
		if err := e.syncErrors.Save(ctx, syncError); err != nil {
			slogger.Error(ctx, "Failed to persist sync error", slogger.Fields{
				"job_id": jobID.String(),
				"error":  err.Error(),
			})
			return
		}
	}
}

// BuildEmbeddingText concatenates the configured embedding fields of a row,
// trimming each value and skipping empties.
func BuildEmbeddingText(row map[string]any, embeddingFields []string) string {
	parts := make([]string, 0, len(embeddingFields))
	for _, field := range embeddingFields {
		value, ok := row[field]
		if !ok || value == nil {
			continue
		}
		text := strings.TrimSpace(fmt.Sprintf("%v", value))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// MapPayload projects a source row through the field mapping. An empty mapping
// passes all columns through under their source names.
func MapPayload(row map[string]any, fieldMapping map[string]string) map[string]any {
	if len(fieldMapping) == 0 {
		payload := make(map[string]any, len(row))
		for column, value := range row {
			payload[column] = value
		}
		return payload
	}

	payload := make(map[string]any, len(fieldMapping))
	for column, key := range fieldMapping {
		if value, ok := row[column]; ok {
			payload[key] = value
		}
	}
	return payload
}

func stringifyKey(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
