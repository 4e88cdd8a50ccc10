package service

import (
	"context"
	"testing"
	"time"

	"vectorsync/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, datasources *fakeDatasources) *Scheduler {
	t.Helper()
	svc, err := NewSyncJobService(newFakeJobs(), datasources, &fakeSyncErrors{}, &fakePublisher{})
	require.NoError(t, err)

	scheduler, err := NewScheduler(datasources, svc, time.Minute)
	require.NoError(t, err)
	return scheduler
}

func TestScheduler_RegistersScheduledDatasources(t *testing.T) {
	ds := enabledDatasource("@every 1h")
	datasources := newFakeDatasources(ds)
	datasources.scheduled = append(datasources.scheduled, ds)
	scheduler := newTestScheduler(t, datasources)

	require.NoError(t, scheduler.refresh(context.Background()))

	entries := scheduler.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "@every 1h", entries[ds.ID()])
}

func TestScheduler_UnregistersRemovedSchedules(t *testing.T) {
	ds := enabledDatasource("@every 1h")
	datasources := newFakeDatasources(ds)
	datasources.scheduled = append(datasources.scheduled, ds)
	scheduler := newTestScheduler(t, datasources)

	require.NoError(t, scheduler.refresh(context.Background()))
	require.Len(t, scheduler.Entries(), 1)

	datasources.scheduled = nil
	require.NoError(t, scheduler.refresh(context.Background()))
	assert.Empty(t, scheduler.Entries())
}

func TestScheduler_ReplacesChangedSchedule(t *testing.T) {
	ds := enabledDatasource("@every 1h")
	datasources := newFakeDatasources(ds)
	datasources.scheduled = append(datasources.scheduled, ds)
	scheduler := newTestScheduler(t, datasources)

	require.NoError(t, scheduler.refresh(context.Background()))

	// Same datasource id, new spec: the registry must re-register, not add.
	changed := entity.RestoreDatasource(
		ds.ID(), ds.Name(), ds.SourceType(),
		ds.Host(), ds.Port(), ds.Database(), ds.Username(), ds.Password(),
		ds.QueryTemplate(), ds.FieldMapping(), ds.KeyField(), ds.EmbeddingFields(), ds.Collection(),
		ds.BatchSize(), ds.BatchDelay(), "@every 30m", ds.WebhookSecret(),
		ds.LastSyncedAt(), ds.Enabled(), ds.CreatedAt(), time.Now(),
	)
	datasources.byID[ds.ID()] = changed
	datasources.scheduled = []*entity.Datasource{changed}

	require.NoError(t, scheduler.refresh(context.Background()))

	entries := scheduler.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "@every 30m", entries[ds.ID()])
}

func TestScheduler_SkipsInvalidCronExpression(t *testing.T) {
	ds := enabledDatasource("not a cron spec")
	datasources := newFakeDatasources(ds)
	datasources.scheduled = append(datasources.scheduled, ds)
	scheduler := newTestScheduler(t, datasources)

	require.NoError(t, scheduler.refresh(context.Background()))
	assert.Empty(t, scheduler.Entries())
}

func TestScheduler_StartStop(t *testing.T) {
	ds := enabledDatasource("@every 1h")
	datasources := newFakeDatasources(ds)
	datasources.scheduled = append(datasources.scheduled, ds)
	scheduler := newTestScheduler(t, datasources)

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))
	assert.Error(t, scheduler.Start(ctx))
	assert.Len(t, scheduler.Entries(), 1)

	require.NoError(t, scheduler.Stop(ctx))
	assert.NoError(t, scheduler.Stop(ctx))
}
