package worker

import (
	"context"
	"fmt"
	"strconv"

	"vectorsync/internal/adapter/outbound/source"
	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
)

// fallbackTotal bounds the batch loop when the row count query fails; the
// empty-page check is the real termination signal in that case.
const fallbackTotal = 1 << 30

// FullSyncProcessor re-syncs every row the configured query yields.
type FullSyncProcessor struct {
	connector        outbound.SourceConnector
	executor         *BatchExecutor
	jobs             outbound.SyncJobRepository
	defaultBatchSize int
}

// NewFullSyncProcessor creates a full sync processor.
func NewFullSyncProcessor(
	connector outbound.SourceConnector,
	executor *BatchExecutor,
	jobs outbound.SyncJobRepository,
	defaultBatchSize int,
) *FullSyncProcessor {
	return &FullSyncProcessor{
		connector:        connector,
		executor:         executor,
		jobs:             jobs,
		defaultBatchSize: defaultBatchSize,
	}
}

// Run executes a full sync for the job.
func (p *FullSyncProcessor) Run(ctx context.Context, job *entity.SyncJob, ds *entity.Datasource) error {
	batchSize := effectiveBatchSize(ds, p.defaultBatchSize)
	resumeOffset := PlanResumeOffset(job.ProcessedRecords(), batchSize, job.TotalRecords())

	if resumeOffset > 0 {
		slogger.Info(ctx, "Resuming sync from persisted progress", slogger.Fields{
			"job_id": job.ID().String(),
			"offset": resumeOffset,
		})
	}

	total, counted := p.countRecords(ctx, ds)
	if counted {
		if err := p.jobs.SetTotalRecords(ctx, job.ID(), total); err != nil {
			return Categorize(valueobject.ErrorCategoryJob, err)
		}
	} else {
		total = fallbackTotal
	}

	totalBatches := (total + batchSize - 1) / batchSize

	for offset := resumeOffset; offset < total; offset += batchSize {
		batchIndex := offset / batchSize

		if err := checkCancelled(ctx, p.jobs, job.ID()); err != nil {
			return err
		}

		pageQuery := source.AppendPagination(ds.SourceType(), ds.QueryTemplate(), batchSize, offset)
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

		if counted {
			slogger.Info(ctx, "Full sync progress", slogger.Fields{
				"job_id":  job.ID().String(),
				"batch":   batchIndex + 1,
				"batches": totalBatches,
				"percent": fmt.Sprintf("%.0f", float64(batchIndex+1)/float64(totalBatches)*100),
			})
		}

		if len(page.Rows) < batchSize {
			break
		}
	}

	return nil
}

// countRecords derives and runs a count query from the configured template.
// A count failure is not fatal; the batch loop then terminates on the first
// empty page instead.
func (p *FullSyncProcessor) countRecords(ctx context.Context, ds *entity.Datasource) (int, bool) {
	countQuery := source.BuildCountQuery(ds.QueryTemplate())

	result, err := p.connector.ExecuteQuery(ctx, ds, countQuery, nil)
	if err != nil || len(result.Rows) == 0 {
		slogger.Warn(ctx, "Row count query failed, relying on empty-page termination", slogger.Fields{
			"datasource_id": ds.ID().String(),
			"error":         errString(err),
		})
		return 0, false
	}

	for _, value := range result.Rows[0] {
		if total, ok := parseCount(value); ok {
			return total, true
		}
	}

	return 0, false
}

func parseCount(value any) (int, bool) {
	switch v := value.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	case []byte:
		if n, err := strconv.Atoi(string(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func errString(err error) string {
	if err == nil {
		return "count query returned no rows"
	}
	return err.Error()
}

func effectiveBatchSize(ds *entity.Datasource, fallback int) int {
	if ds.BatchSize() > 0 {
		return ds.BatchSize()
	}
	if fallback > 0 {
		return fallback
	}
	return 100
}

// checkCancelled re-reads the persisted job status at a batch boundary.
// Cancellation is cooperative: an in-flight batch always runs to completion
// and only future batches are prevented.
func checkCancelled(ctx context.Context, jobs outbound.SyncJobRepository, jobID uuid.UUID) error {
	job, err := jobs.FindByID(ctx, jobID)
	if err != nil {
		return Categorize(valueobject.ErrorCategoryJob, fmt.Errorf("cancellation check failed: %w", err))
	}
	if job.Status() == valueobject.JobStatusCancelled {
		return ErrJobCancelled
	}
	return nil
}
