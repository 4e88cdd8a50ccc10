package worker

import (
	"context"
	"fmt"
	"time"

	"vectorsync/internal/adapter/outbound/source"
	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"
)

// IncrementalSyncProcessor syncs only rows changed since the datasource's
// watermark.
type IncrementalSyncProcessor struct {
	connector         outbound.SourceConnector
	executor          *BatchExecutor
	jobs              outbound.SyncJobRepository
	datasources       outbound.DatasourceRepository
	defaultBatchSize  int
	defaultBatchDelay time.Duration
}

// NewIncrementalSyncProcessor creates an incremental sync processor.
func NewIncrementalSyncProcessor(
	connector outbound.SourceConnector,
	executor *BatchExecutor,
	jobs outbound.SyncJobRepository,
	datasources outbound.DatasourceRepository,
	defaultBatchSize int,
	defaultBatchDelay time.Duration,
) *IncrementalSyncProcessor {
	if defaultBatchDelay <= 0 {
		defaultBatchDelay = time.Second
	}
	return &IncrementalSyncProcessor{
		connector:         connector,
		executor:          executor,
		jobs:              jobs,
		datasources:       datasources,
		defaultBatchSize:  defaultBatchSize,
		defaultBatchDelay: defaultBatchDelay,
	}
}

// Run executes an incremental sync for the job. The watermark is advanced to
// the run's start time only after every batch completed, so rows changing
// while the run is in flight are picked up again by the next run.
func (p *IncrementalSyncProcessor) Run(ctx context.Context, job *entity.SyncJob, ds *entity.Datasource) error {
	runStart := time.Now()

	batchSize := effectiveBatchSize(ds, p.defaultBatchSize)
	resumeOffset := PlanResumeOffset(job.ProcessedRecords(), batchSize, job.TotalRecords())

	query := ds.QueryTemplate()
	if ds.LastSyncedAt() != nil {
		query = source.AppendWatermark(query, *ds.LastSyncedAt())
	}

	delay := ds.BatchDelay()
	if delay <= 0 {
		delay = p.defaultBatchDelay
	}

	for offset := resumeOffset; ; offset += batchSize {
		batchIndex := offset / batchSize

		if err := checkCancelled(ctx, p.jobs, job.ID()); err != nil {
			return err
		}

		pageQuery := source.AppendPagination(ds.SourceType(), query, batchSize, offset)
		page, err := p.connector.ExecuteQuery(ctx, ds, pageQuery, nil)
		if err != nil {
			return Categorize(valueobject.ErrorCategoryQuery, fmt.Errorf("batch %d fetch failed: %w", batchIndex, err))
		}

		if len(page.Rows) == 0 {
			break
		}

		if _, err := p.executor.ExecuteBatch(ctx, job.ID(), ds, page.Rows, batchIndex); err != nil {
			return Categorize(valueobject.ErrorCategoryJob, err)
		}

		if len(page.Rows) < batchSize {
			break
		}

		// Explicit backpressure between batches against the embedding
		// provider's rate limits, skipped after the final batch.
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Categorize(valueobject.ErrorCategoryJob, ctx.Err())
		}
	}

	if err := p.datasources.UpdateLastSyncedAt(ctx, ds.ID(), runStart); err != nil {
		return Categorize(valueobject.ErrorCategoryJob, fmt.Errorf("failed to advance watermark: %w", err))
	}

	slogger.Info(ctx, "Advanced incremental watermark", slogger.Fields{
		"datasource_id": ds.ID().String(),
		"watermark":     runStart.UTC().Format(time.RFC3339),
	})

	return nil
}
