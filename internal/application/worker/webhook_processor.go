package worker

import (
	"context"
	"fmt"

	"vectorsync/internal/adapter/outbound/source"
	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/identity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"
)

// WebhookSyncProcessor syncs an explicit list of source keys. A key whose row
// no longer exists at the source has its destination point deleted; that is
// the deletion path for removed records. Each key is isolated: one key's
// failure never affects the others.
type WebhookSyncProcessor struct {
	connector   outbound.SourceConnector
	executor    *BatchExecutor
	vectorStore outbound.VectorStore
	jobs        outbound.SyncJobRepository
	syncErrors  outbound.SyncErrorRepository
}

// NewWebhookSyncProcessor creates a webhook sync processor.
func NewWebhookSyncProcessor(
	connector outbound.SourceConnector,
	executor *BatchExecutor,
	vectorStore outbound.VectorStore,
	jobs outbound.SyncJobRepository,
	syncErrors outbound.SyncErrorRepository,
) *WebhookSyncProcessor {
	return &WebhookSyncProcessor{
		connector:   connector,
		executor:    executor,
		vectorStore: vectorStore,
		jobs:        jobs,
		syncErrors:  syncErrors,
	}
}

// Run executes a targeted sync over the given source keys.
func (p *WebhookSyncProcessor) Run(ctx context.Context, job *entity.SyncJob, ds *entity.Datasource, codes []string) error {
	if err := p.jobs.SetTotalRecords(ctx, job.ID(), len(codes)); err != nil {
		return Categorize(valueobject.ErrorCategoryJob, err)
	}

	deleted := 0

	for i, code := range codes {
		if i%50 == 0 {
			if err := checkCancelled(ctx, p.jobs, job.ID()); err != nil {
				return err
			}
		}

		if err := p.syncKey(ctx, job, ds, code, i, &deleted); err != nil {
			return err
		}
	}

	if deleted > 0 {
		slogger.Info(ctx, "Webhook sync deleted points for removed source rows", slogger.Fields{
			"job_id":  job.ID().String(),
			"deleted": deleted,
		})
	}

	return nil
}

// syncKey processes one requested key. Only progress-persistence failures are
// returned; everything else is recorded as a per-key sync error.
func (p *WebhookSyncProcessor) syncKey(
	ctx context.Context,
	job *entity.SyncJob,
	ds *entity.Datasource,
	code string,
	position int,
	deleted *int,
) error {
	lookup := source.BuildKeyLookup(ds.QueryTemplate(), ds.KeyField(), code)

	page, err := p.connector.ExecuteQuery(ctx, ds, lookup, nil)
	if err != nil {
		p.failKey(ctx, job, code, valueobject.ErrorCategoryQuery,
			fmt.Sprintf("key lookup failed: %v", err))
		return p.jobs.IncrementProgress(ctx, job.ID(), 0, 1)
	}

	if len(page.Rows) == 0 {
		return p.deletePoint(ctx, job, ds, code, deleted)
	}

	// Present row: embed and upsert individually through the shared batch
	// pipeline, which also maintains the progress counters.
	if _, err := p.executor.ExecuteBatch(ctx, job.ID(), ds, page.Rows[:1], position); err != nil {
		return Categorize(valueobject.ErrorCategoryJob, err)
	}

	return nil
}

// deletePoint removes the destination point of a source row that no longer
// exists. Deletions are intentionally not counted as processed records: the
// progress counters track synced rows, and a removed row is not one.
func (p *WebhookSyncProcessor) deletePoint(
	ctx context.Context,
	job *entity.SyncJob,
	ds *entity.Datasource,
	code string,
	deleted *int,
) error {
	pointID, err := identity.PointID(code)
	if err != nil {
		p.failKey(ctx, job, code, valueobject.ErrorCategoryIdentity,
			fmt.Sprintf("cannot derive point id for deletion: %v", err))
		return p.jobs.IncrementProgress(ctx, job.ID(), 0, 1)
	}

	if err := p.vectorStore.Delete(ctx, ds.Collection(), []string{pointID}); err != nil {
		p.failKey(ctx, job, code, valueobject.ErrorCategoryVectorStore,
			fmt.Sprintf("point deletion failed: %v", err))
		return p.jobs.IncrementProgress(ctx, job.ID(), 0, 1)
	}

	*deleted++
	slogger.Debug(ctx, "Deleted destination point for removed source row", slogger.Fields{
		"job_id":   job.ID().String(),
		"code":     code,
		"point_id": pointID,
	})

	return nil
}

func (p *WebhookSyncProcessor) failKey(
	ctx context.Context,
	job *entity.SyncJob,
	code string,
	category valueobject.ErrorCategory,
	message string,
) {
	slogger.Error(ctx, "Webhook key failed, continuing with remaining keys", slogger.Fields{
		"job_id":   job.ID().String(),
		"code":     code,
		"category": string(category),
		"error":    message,
	})

	syncError := entity.NewSyncError(job.ID(), &code, category, message, nil)
	if err := p.syncErrors.Save(ctx, syncError); err != nil {
		slogger.Error(ctx, "Failed to persist sync error", slogger.Fields{
			"job_id": job.ID().String(),
			"error":  err.Error(),
		})
	}
}
