package api

import (
	"context"
	"sync"
	"time"

	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/messaging"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
)

type stubJobs struct {
	mu       sync.Mutex
	saved    map[uuid.UUID]*entity.SyncJob
	statuses map[uuid.UUID]valueobject.JobStatus
}

func newStubJobs() *stubJobs {
	return &stubJobs{
		saved:    make(map[uuid.UUID]*entity.SyncJob),
		statuses: make(map[uuid.UUID]valueobject.JobStatus),
	}
}

func (s *stubJobs) Save(_ context.Context, job *entity.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[job.ID()] = job
	return nil
}

func (s *stubJobs) FindByID(_ context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.saved[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return job, nil
}

func (s *stubJobs) FindByDatasourceID(
	_ context.Context,
	datasourceID uuid.UUID,
	_ outbound.SyncJobFilters,
) ([]*entity.SyncJob, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*entity.SyncJob, 0)
	for _, job := range s.saved {
		if job.DatasourceID() == datasourceID {
			jobs = append(jobs, job)
		}
	}
	return jobs, len(jobs), nil
}

func (s *stubJobs) UpdateStatus(_ context.Context, id uuid.UUID, status valueobject.JobStatus, _ *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

func (s *stubJobs) IncrementProgress(_ context.Context, _ uuid.UUID, _, _ int) error { return nil }
func (s *stubJobs) SetTotalRecords(_ context.Context, _ uuid.UUID, _ int) error     { return nil }

func (s *stubJobs) FindStale(_ context.Context, _ time.Time) ([]*entity.SyncJob, error) {
	return nil, nil
}

func (s *stubJobs) DeleteTerminalBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type stubDatasources struct {
	byID map[uuid.UUID]*entity.Datasource
}

func (s *stubDatasources) FindByID(_ context.Context, id uuid.UUID) (*entity.Datasource, error) {
	ds, ok := s.byID[id]
	if !ok {
		return nil, entity.ErrDatasourceNotFound
	}
	return ds, nil
}

func (s *stubDatasources) FindScheduled(_ context.Context) ([]*entity.Datasource, error) {
	return nil, nil
}

func (s *stubDatasources) UpdateLastSyncedAt(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type stubSyncErrors struct {
	mu    sync.Mutex
	saved []*entity.SyncError
}

func (s *stubSyncErrors) Save(_ context.Context, syncError *entity.SyncError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, syncError)
	return nil
}

func (s *stubSyncErrors) FindByJobID(_ context.Context, jobID uuid.UUID) ([]*entity.SyncError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*entity.SyncError, 0)
	for _, syncError := range s.saved {
		if syncError.JobID() == jobID {
			result = append(result, syncError)
		}
	}
	return result, nil
}

func (s *stubSyncErrors) DistinctRecordIDs(_ context.Context, _ uuid.UUID) ([]string, error) {
	return nil, nil
}

func (s *stubSyncErrors) MarkResolved(_ context.Context, _ uuid.UUID) error { return nil }

type stubPublisher struct {
	mu        sync.Mutex
	published []messaging.SyncJobMessage
}

func (s *stubPublisher) PublishSyncJob(_ context.Context, message messaging.SyncJobMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, message)
	return nil
}

func webhookDatasource(secret string) *entity.Datasource {
	now := time.Now()
	return entity.RestoreDatasource(
		uuid.New(), "docs", entity.DatasourceTypePostgres,
		"localhost", 5432, "app", "reader", "dbpass",
		"SELECT id, title FROM docs ORDER BY id",
		nil, "id", []string{"title"}, "documents",
		100, 0, "", secret, nil, true, now, now,
	)
}
