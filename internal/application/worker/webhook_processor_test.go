package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"vectorsync/internal/domain/identity"
	"vectorsync/internal/domain/valueobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookHarness(t *testing.T, rows []map[string]any) (
	*WebhookSyncProcessor,
	*stubConnector,
	*memoryJobStore,
	*memoryErrorStore,
	*memoryVectorStore,
) {
	t.Helper()
	connector := &stubConnector{rows: rows}
	jobStore := newMemoryJobStore()
	errorStore := newMemoryErrorStore()
	vectorStore := newMemoryVectorStore()
	executor := newTestExecutor(t, &stubEmbedder{}, vectorStore, jobStore, errorStore)
	processor := NewWebhookSyncProcessor(connector, executor, vectorStore, jobStore, errorStore)
	return processor, connector, jobStore, errorStore, vectorStore
}

func TestWebhookSync_SyncsPresentRows(t *testing.T) {
	ds := testDatasource(100)
	processor, _, jobStore, errorStore, vectorStore := newWebhookHarness(t, makeRows(3, time.Now()))
	job := pendingJob(t, jobStore, ds, valueobject.SyncModeWebhook)

	require.NoError(t, processor.Run(context.Background(), job, ds, []string{"doc-0", "doc-2"}))

	record := jobStore.record(job.ID())
	require.NotNil(t, record.total)
	assert.Equal(t, 2, *record.total)
	assert.Equal(t, 2, record.processed)
	assert.Equal(t, 2, record.successful)
	assert.Equal(t, 2, vectorStore.pointCount(ds.Collection()))
	assert.Empty(t, errorStore.categories())
}

func TestWebhookSync_DeletesRemovedRows(t *testing.T) {
	ds := testDatasource(100)
	processor, _, jobStore, errorStore, vectorStore := newWebhookHarness(t, makeRows(1, time.Now()))
	job := pendingJob(t, jobStore, ds, valueobject.SyncModeWebhook)

	// One key still exists at the source, one was removed.
	require.NoError(t, processor.Run(context.Background(), job, ds, []string{"doc-0", "doc-999"}))

	record := jobStore.record(job.ID())
	require.NotNil(t, record.total)
	assert.Equal(t, 2, *record.total)

	// Deletions are not synced rows, so they stay out of the counters.
	assert.Equal(t, 1, record.processed)
	assert.Equal(t, 1, record.successful)
	assert.Zero(t, record.failed)
	assert.Empty(t, errorStore.categories())

	removedID, err := identity.PointID("doc-999")
	require.NoError(t, err)
	assert.Contains(t, vectorStore.deleted, removedID)
	assert.Equal(t, 1, vectorStore.pointCount(ds.Collection()))
}

func TestWebhookSync_KeyFailureIsolated(t *testing.T) {
	ds := testDatasource(100)
	processor, connector, jobStore, errorStore, _ := newWebhookHarness(t, makeRows(2, time.Now()))
	connector.keyErr = map[string]error{"doc-0": errors.New("lock timeout")}
	job := pendingJob(t, jobStore, ds, valueobject.SyncModeWebhook)

	require.NoError(t, processor.Run(context.Background(), job, ds, []string{"doc-0", "doc-1"}))

	record := jobStore.record(job.ID())
	assert.Equal(t, 2, record.processed)
	assert.Equal(t, 1, record.successful)
	assert.Equal(t, 1, record.failed)

	saved := errorStore.saved
	require.Len(t, saved, 1)
	assert.Equal(t, valueobject.ErrorCategoryQuery, saved[0].Category())
	require.NotNil(t, saved[0].RecordID())
	assert.Equal(t, "doc-0", *saved[0].RecordID())
}

func TestWebhookSync_DeleteFailureRecordedPerKey(t *testing.T) {
	ds := testDatasource(100)
	connector := &stubConnector{rows: nil}
	jobStore := newMemoryJobStore()
	errorStore := newMemoryErrorStore()
	vectorStore := &failingDeleteStore{memoryVectorStore: newMemoryVectorStore()}
	executor := newTestExecutor(t, &stubEmbedder{}, vectorStore, jobStore, errorStore)
	processor := NewWebhookSyncProcessor(connector, executor, vectorStore, jobStore, errorStore)
	job := pendingJob(t, jobStore, ds, valueobject.SyncModeWebhook)

	require.NoError(t, processor.Run(context.Background(), job, ds, []string{"gone-1"}))

	record := jobStore.record(job.ID())
	assert.Equal(t, 1, record.failed)
	assert.Equal(t, []valueobject.ErrorCategory{valueobject.ErrorCategoryVectorStore}, errorStore.categories())
}

type failingDeleteStore struct {
	*memoryVectorStore
}

func (s *failingDeleteStore) Delete(context.Context, string, []string) error {
	return errors.New("delete rejected")
}

func TestWebhookSync_StopsAtCancellationBoundary(t *testing.T) {
	ds := testDatasource(100)
	processor, connector, jobStore, _, _ := newWebhookHarness(t, makeRows(2, time.Now()))
	job := pendingJob(t, jobStore, ds, valueobject.SyncModeWebhook)
	require.NoError(t, jobStore.UpdateStatus(context.Background(), job.ID(), valueobject.JobStatusCancelled, nil))

	err := processor.Run(context.Background(), job, ds, []string{"doc-0", "doc-1"})
	assert.ErrorIs(t, err, ErrJobCancelled)
	assert.Empty(t, connector.queries)
}
