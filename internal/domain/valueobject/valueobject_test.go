package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncMode(t *testing.T) {
	for _, mode := range []string{"full", "incremental", "webhook"} {
		got, err := NewSyncMode(mode)
		require.NoError(t, err)
		assert.Equal(t, mode, got.String())
	}

	_, err := NewSyncMode("partial")
	assert.Error(t, err)

	_, err = NewSyncMode("")
	assert.Error(t, err)
}

func TestNewJobStatus(t *testing.T) {
	for _, status := range []string{"pending", "running", "completed", "failed", "cancelled"} {
		got, err := NewJobStatus(status)
		require.NoError(t, err)
		assert.Equal(t, status, got.String())
	}

	_, err := NewJobStatus("paused")
	assert.Error(t, err)
}

func TestJobStatus_Transitions(t *testing.T) {
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusRunning))
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusCancelled))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusCompleted))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusFailed))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusCancelled))

	assert.False(t, JobStatusPending.CanTransitionTo(JobStatusCompleted))
	assert.False(t, JobStatusCompleted.CanTransitionTo(JobStatusRunning))
	assert.False(t, JobStatusFailed.CanTransitionTo(JobStatusRunning))
	assert.False(t, JobStatusCancelled.CanTransitionTo(JobStatusRunning))
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}

func TestNewErrorCategory(t *testing.T) {
	categories := []string{
		"connection_error", "query_error", "embedding_error",
		"identity_error", "vector_store_error", "batch_error", "job_error",
	}
	for _, category := range categories {
		got, err := NewErrorCategory(category)
		require.NoError(t, err)
		assert.Equal(t, category, got.String())
	}

	_, err := NewErrorCategory("mystery_error")
	assert.Error(t, err)
}

func TestErrorCategory_AbortsJob(t *testing.T) {
	assert.True(t, ErrorCategoryConnection.AbortsJob())
	assert.True(t, ErrorCategoryQuery.AbortsJob())
	assert.True(t, ErrorCategoryJob.AbortsJob())

	assert.False(t, ErrorCategoryEmbedding.AbortsJob())
	assert.False(t, ErrorCategoryIdentity.AbortsJob())
	assert.False(t, ErrorCategoryVectorStore.AbortsJob())
	assert.False(t, ErrorCategoryBatch.AbortsJob())
}
