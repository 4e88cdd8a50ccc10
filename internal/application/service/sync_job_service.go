package service

import (
	"context"
	"errors"
	"fmt"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/messaging"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
)

// ErrDatasourceDisabled rejects triggers against a disabled datasource.
var ErrDatasourceDisabled = entity.NewDomainError("datasource is disabled", "DATASOURCE_DISABLED")

// SyncJobService creates sync jobs and dispatches them to the work queue.
type SyncJobService struct {
	jobs        outbound.SyncJobRepository
	datasources outbound.DatasourceRepository
	syncErrors  outbound.SyncErrorRepository
	publisher   outbound.MessagePublisher
}

// NewSyncJobService creates a sync job service.
func NewSyncJobService(
	jobs outbound.SyncJobRepository,
	datasources outbound.DatasourceRepository,
	syncErrors outbound.SyncErrorRepository,
	publisher outbound.MessagePublisher,
) (*SyncJobService, error) {
	if jobs == nil || datasources == nil || syncErrors == nil || publisher == nil {
		return nil, errors.New("sync job service dependencies cannot be nil")
	}
	return &SyncJobService{
		jobs:        jobs,
		datasources: datasources,
		syncErrors:  syncErrors,
		publisher:   publisher,
	}, nil
}

// TriggerFullSync creates and dispatches a full sync job.
func (s *SyncJobService) TriggerFullSync(ctx context.Context, datasourceID uuid.UUID) (*entity.SyncJob, error) {
	return s.trigger(ctx, datasourceID, valueobject.SyncModeFull, nil)
}

// TriggerIncrementalSync creates and dispatches an incremental sync job.
func (s *SyncJobService) TriggerIncrementalSync(ctx context.Context, datasourceID uuid.UUID) (*entity.SyncJob, error) {
	return s.trigger(ctx, datasourceID, valueobject.SyncModeIncremental, nil)
}

// TriggerWebhookSync creates and dispatches a targeted sync job for an
// explicit list of source keys (1..500).
func (s *SyncJobService) TriggerWebhookSync(
	ctx context.Context,
	datasourceID uuid.UUID,
	codes []string,
) (*entity.SyncJob, error) {
	if len(codes) == 0 {
		return nil, entity.NewDomainError("webhook sync requires at least one code", "EMPTY_CODE_LIST")
	}
	if len(codes) > messaging.MaxWebhookCodes {
		return nil, entity.NewDomainError(
			fmt.Sprintf("webhook sync accepts at most %d codes", messaging.MaxWebhookCodes),
			"TOO_MANY_CODES",
		)
	}
	return s.trigger(ctx, datasourceID, valueobject.SyncModeWebhook, codes)
}

func (s *SyncJobService) trigger(
	ctx context.Context,
	datasourceID uuid.UUID,
	mode valueobject.SyncMode,
	codes []string,
) (*entity.SyncJob, error) {
	ds, err := s.datasources.FindByID(ctx, datasourceID)
	if err != nil {
		return nil, err
	}
	if !ds.Enabled() {
		return nil, ErrDatasourceDisabled
	}

	job := entity.NewSyncJob(ds.ID(), mode)
	if len(codes) > 0 {
		job.SetMetadata("codes", codes)
		// A webhook job's total is the code list length and is known before
		// the job ever runs.
		job.SetTotalRecords(len(codes))
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist sync job: %w", err)
	}

	message := messaging.NewSyncJobMessage(job.ID(), ds.ID(), mode, codes)
	if err := s.publisher.PublishSyncJob(ctx, message); err != nil {
		// The job row exists but no dispatch will arrive; fail it so it does
		// not sit pending forever.
		failure := fmt.Sprintf("dispatch failed: %v", err)
		if updateErr := s.jobs.UpdateStatus(ctx, job.ID(), valueobject.JobStatusFailed, &failure); updateErr != nil {
			slogger.Error(ctx, "Failed to mark undispatched job failed", slogger.Fields{
				"job_id": job.ID().String(),
				"error":  updateErr.Error(),
			})
		}
		return nil, fmt.Errorf("failed to dispatch sync job: %w", err)
	}

	slogger.Info(ctx, "Sync job dispatched", slogger.Fields{
		"job_id":        job.ID().String(),
		"datasource_id": ds.ID().String(),
		"mode":          mode.String(),
	})

	return job, nil
}

// GetJob returns a sync job by id.
func (s *SyncJobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	return s.jobs.FindByID(ctx, id)
}

// ListJobs lists a datasource's jobs with a total count.
func (s *SyncJobService) ListJobs(
	ctx context.Context,
	datasourceID uuid.UUID,
	filters outbound.SyncJobFilters,
) ([]*entity.SyncJob, int, error) {
	if _, err := s.datasources.FindByID(ctx, datasourceID); err != nil {
		return nil, 0, err
	}
	return s.jobs.FindByDatasourceID(ctx, datasourceID, filters)
}

// ListErrors lists a job's recorded sync errors.
func (s *SyncJobService) ListErrors(ctx context.Context, jobID uuid.UUID) ([]*entity.SyncError, error) {
	if _, err := s.jobs.FindByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.syncErrors.FindByJobID(ctx, jobID)
}

// CancelJob requests cooperative cancellation of a pending or running job.
// The processor observes the persisted status at its next batch boundary; an
// in-flight batch runs to completion.
func (s *SyncJobService) CancelJob(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := job.Cancel(); err != nil {
		return nil, err
	}

	if err := s.jobs.UpdateStatus(ctx, job.ID(), valueobject.JobStatusCancelled, nil); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}

	slogger.Info(ctx, "Sync job cancellation requested", slogger.Fields{
		"job_id": job.ID().String(),
	})

	return job, nil
}

// RetryErrors re-drives the distinct failed record ids of a job as new webhook
// sync jobs and marks the source errors resolved. Lists above the webhook code
// limit are split across multiple jobs.
func (s *SyncJobService) RetryErrors(ctx context.Context, jobID uuid.UUID) ([]*entity.SyncJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	recordIDs, err := s.syncErrors.DistinctRecordIDs(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(recordIDs) == 0 {
		return nil, entity.ErrNoRetryableErrors
	}

	retryJobs := make([]*entity.SyncJob, 0)
	for start := 0; start < len(recordIDs); start += messaging.MaxWebhookCodes {
		end := min(start+messaging.MaxWebhookCodes, len(recordIDs))

		retryJob, triggerErr := s.trigger(ctx, job.DatasourceID(), valueobject.SyncModeWebhook, recordIDs[start:end])
		if triggerErr != nil {
			return retryJobs, triggerErr
		}
		retryJobs = append(retryJobs, retryJob)
	}

	if err := s.syncErrors.MarkResolved(ctx, jobID); err != nil {
		return retryJobs, fmt.Errorf("retry jobs dispatched but errors not marked resolved: %w", err)
	}

	return retryJobs, nil
}
