package worker

import (
	"context"
	"errors"
	"fmt"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/messaging"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"
)

// JobProcessor routes dispatched sync jobs to the processor for their mode.
//
// It returns an error only when the dispatch could not be handled at all (the
// job or datasource row was unreadable); the queue then redelivers. A job that
// ran and failed is persisted as failed and the dispatch is acknowledged.
type JobProcessor struct {
	jobs        outbound.SyncJobRepository
	datasources outbound.DatasourceRepository
	syncErrors  outbound.SyncErrorRepository
	full        *FullSyncProcessor
	incremental *IncrementalSyncProcessor
	webhook     *WebhookSyncProcessor
}

// NewJobProcessor creates a job processor.
func NewJobProcessor(
	jobs outbound.SyncJobRepository,
	datasources outbound.DatasourceRepository,
	syncErrors outbound.SyncErrorRepository,
	full *FullSyncProcessor,
	incremental *IncrementalSyncProcessor,
	webhook *WebhookSyncProcessor,
) (*JobProcessor, error) {
	if jobs == nil || datasources == nil || syncErrors == nil {
		return nil, errors.New("job processor repositories cannot be nil")
	}
	if full == nil || incremental == nil || webhook == nil {
		return nil, errors.New("job processor requires all three mode processors")
	}
	return &JobProcessor{
		jobs:        jobs,
		datasources: datasources,
		syncErrors:  syncErrors,
		full:        full,
		incremental: incremental,
		webhook:     webhook,
	}, nil
}

// ProcessJob executes one dispatched sync job.
func (p *JobProcessor) ProcessJob(ctx context.Context, message messaging.SyncJobMessage) error {
	job, err := p.jobs.FindByID(ctx, message.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", message.JobID, err)
	}

	// Redelivered dispatch for a job that already finished (or was
	// cancelled while queued): acknowledge without running again.
	if job.Status().IsTerminal() {
		slogger.Info(ctx, "Skipping dispatch for finished job", slogger.Fields{
			"job_id": job.ID().String(),
			"status": job.Status().String(),
		})
		return nil
	}

	ds, err := p.datasources.FindByID(ctx, job.DatasourceID())
	if err != nil {
		return fmt.Errorf("failed to load datasource %s: %w", job.DatasourceID(), err)
	}

	if !ds.Enabled() {
		return p.failJob(ctx, job, valueobject.ErrorCategoryJob, "datasource is disabled")
	}

	if job.Status() == valueobject.JobStatusRunning {
		// A redelivered dispatch for a running job means the worker that
		// held it died mid-run: the queue's ack window outlives any live
		// run. Resume from the persisted progress counters.
		slogger.Info(ctx, "Resuming sync job from interrupted run", slogger.Fields{
			"job_id":    job.ID().String(),
			"processed": job.ProcessedRecords(),
		})
	} else if err := p.jobs.UpdateStatus(ctx, job.ID(), valueobject.JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	slogger.Info(ctx, "Sync job started", slogger.Fields{
		"job_id":        job.ID().String(),
		"datasource_id": ds.ID().String(),
		"mode":          job.Mode().String(),
	})

	runErr := p.runProcessor(ctx, job, ds, message)

	switch {
	case runErr == nil:
		return p.completeJob(ctx, job)
	case errors.Is(runErr, ErrJobCancelled):
		slogger.Info(ctx, "Sync job stopped at cancellation boundary", slogger.Fields{
			"job_id": job.ID().String(),
		})
		return nil
	default:
		return p.failJob(ctx, job, CategoryOf(runErr), runErr.Error())
	}
}

func (p *JobProcessor) runProcessor(
	ctx context.Context,
	job *entity.SyncJob,
	ds *entity.Datasource,
	message messaging.SyncJobMessage,
) error {
	switch job.Mode() {
	case valueobject.SyncModeFull:
		return p.full.Run(ctx, job, ds)
	case valueobject.SyncModeIncremental:
		return p.incremental.Run(ctx, job, ds)
	case valueobject.SyncModeWebhook:
		return p.webhook.Run(ctx, job, ds, message.Codes)
	default:
		return Categorize(valueobject.ErrorCategoryJob, fmt.Errorf("unknown sync mode: %s", job.Mode()))
	}
}

// completeJob marks the job completed unless it was cancelled during the final
// batch.
func (p *JobProcessor) completeJob(ctx context.Context, job *entity.SyncJob) error {
	current, err := p.jobs.FindByID(ctx, job.ID())
	if err == nil && current.Status() == valueobject.JobStatusCancelled {
		return nil
	}

	if err := p.jobs.UpdateStatus(ctx, job.ID(), valueobject.JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	slogger.Info(ctx, "Sync job completed", slogger.Fields{
		"job_id": job.ID().String(),
	})
	return nil
}

// failJob persists the failure and acknowledges the dispatch; the job-level
// outcome lives in the job row, not in queue redelivery.
func (p *JobProcessor) failJob(
	ctx context.Context,
	job *entity.SyncJob,
	category valueobject.ErrorCategory,
	message string,
) error {
	slogger.Error(ctx, "Sync job failed", slogger.Fields{
		"job_id":   job.ID().String(),
		"category": string(category),
		"error":    message,
	})

	syncError := entity.NewSyncError(job.ID(), nil, category, message, nil)
	if err := p.syncErrors.Save(ctx, syncError); err != nil {
		slogger.Error(ctx, "Failed to persist sync error", slogger.Fields{
			"job_id": job.ID().String(),
			"error":  err.Error(),
		})
	}

	if err := p.jobs.UpdateStatus(ctx, job.ID(), valueobject.JobStatusFailed, &message); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}
