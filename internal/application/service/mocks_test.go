package service

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

type fakeJobs struct {
	mu            sync.Mutex
	saved         map[uuid.UUID]*entity.SyncJob
	statuses      map[uuid.UUID]valueobject.JobStatus
	errorMessages map[uuid.UUID]*string
	stale         []*entity.SyncJob
	staleCalls    int
	deleteCount   int64
	deleteCutoffs []time.Time
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		saved:         make(map[uuid.UUID]*entity.SyncJob),
		statuses:      make(map[uuid.UUID]valueobject.JobStatus),
		errorMessages: make(map[uuid.UUID]*string),
	}
}

func (f *fakeJobs) Save(_ context.Context, job *entity.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[job.ID()] = job
	return nil
}

func (f *fakeJobs) FindByID(_ context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.saved[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobs) FindByDatasourceID(
	_ context.Context,
	datasourceID uuid.UUID,
	_ outbound.SyncJobFilters,
) ([]*entity.SyncJob, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := make([]*entity.SyncJob, 0)
	for _, job := range f.saved {
		if job.DatasourceID() == datasourceID {
			jobs = append(jobs, job)
		}
	}
	return jobs, len(jobs), nil
}

func (f *fakeJobs) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status valueobject.JobStatus,
	errorMessage *string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	f.errorMessages[id] = errorMessage
	return nil
}

func (f *fakeJobs) IncrementProgress(_ context.Context, _ uuid.UUID, _, _ int) error {
	return nil
}

func (f *fakeJobs) SetTotalRecords(_ context.Context, _ uuid.UUID, _ int) error {
	return nil
}

func (f *fakeJobs) FindStale(_ context.Context, _ time.Time) ([]*entity.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleCalls++
	return f.stale, nil
}

func (f *fakeJobs) findStaleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staleCalls
}

func (f *fakeJobs) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCutoffs = append(f.deleteCutoffs, cutoff)
	return f.deleteCount, nil
}

func (f *fakeJobs) statusOf(id uuid.UUID) valueobject.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type fakeDatasources struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*entity.Datasource
	scheduled []*entity.Datasource
}

func newFakeDatasources(datasources ...*entity.Datasource) *fakeDatasources {
	f := &fakeDatasources{byID: make(map[uuid.UUID]*entity.Datasource)}
	for _, ds := range datasources {
		f.byID[ds.ID()] = ds
	}
	return f
}

func (f *fakeDatasources) FindByID(_ context.Context, id uuid.UUID) (*entity.Datasource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.byID[id]
	if !ok {
		return nil, entity.ErrDatasourceNotFound
	}
	return ds, nil
}

func (f *fakeDatasources) FindScheduled(_ context.Context) ([]*entity.Datasource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled, nil
}

func (f *fakeDatasources) UpdateLastSyncedAt(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type fakeSyncErrors struct {
	mu        sync.Mutex
	saved     []*entity.SyncError
	recordIDs []string
	resolved  int
}

func (f *fakeSyncErrors) Save(_ context.Context, syncError *entity.SyncError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, syncError)
	return nil
}

func (f *fakeSyncErrors) FindByJobID(_ context.Context, jobID uuid.UUID) ([]*entity.SyncError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*entity.SyncError, 0)
	for _, syncError := range f.saved {
		if syncError.JobID() == jobID {
			result = append(result, syncError)
		}
	}
	return result, nil
}

func (f *fakeSyncErrors) DistinctRecordIDs(_ context.Context, _ uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recordIDs, nil
}

func (f *fakeSyncErrors) MarkResolved(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved++
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []messaging.SyncJobMessage
	err       error
}

func (f *fakePublisher) PublishSyncJob(_ context.Context, message messaging.SyncJobMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, message)
	return nil
}

func (f *fakePublisher) messages() []messaging.SyncJobMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]messaging.SyncJobMessage(nil), f.published...)
}

func enabledDatasource(cronSchedule string) *entity.Datasource {
	now := time.Now()
	return entity.RestoreDatasource(
		uuid.New(), "orders", entity.DatasourceTypePostgres,
		"localhost", 5432, "app", "reader", "secret",
		"SELECT id, status FROM orders ORDER BY id",
		nil, "id", []string{"status"}, "orders",
		100, 0, cronSchedule, "hook-secret", nil, true, now, now,
	)
}

func disabledDatasource() *entity.Datasource {
	now := time.Now()
	return entity.RestoreDatasource(
		uuid.New(), "orders", entity.DatasourceTypePostgres,
		"localhost", 5432, "app", "reader", "secret",
		"SELECT id FROM orders", nil, "id", []string{"status"}, "orders",
		100, 0, "", "", nil, false, now, now,
	)
}
