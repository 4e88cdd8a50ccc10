package api

import (
	"time"

	"vectorsync/internal/domain/entity"
)

// syncJobResponse is the wire form of a sync job.
type syncJobResponse struct {
	ID                string         `json:"id"`
	DatasourceID      string         `json:"datasource_id"`
	Mode              string         `json:"mode"`
	Status            string         `json:"status"`
	TotalRecords      *int           `json:"total_records"`
	ProcessedRecords  int            `json:"processed_records"`
	SuccessfulRecords int            `json:"successful_records"`
	FailedRecords     int            `json:"failed_records"`
	ErrorMessage      *string        `json:"error_message,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func toSyncJobResponse(job *entity.SyncJob) syncJobResponse {
	return syncJobResponse{
		ID:                job.ID().String(),
		DatasourceID:      job.DatasourceID().String(),
		Mode:              job.Mode().String(),
		Status:            job.Status().String(),
		TotalRecords:      job.TotalRecords(),
		ProcessedRecords:  job.ProcessedRecords(),
		SuccessfulRecords: job.SuccessfulRecords(),
		FailedRecords:     job.FailedRecords(),
		ErrorMessage:      job.ErrorMessage(),
		Metadata:          job.Metadata(),
		StartedAt:         job.StartedAt(),
		CompletedAt:       job.CompletedAt(),
		CreatedAt:         job.CreatedAt(),
		UpdatedAt:         job.UpdatedAt(),
	}
}

func toSyncJobResponses(jobs []*entity.SyncJob) []syncJobResponse {
	responses := make([]syncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toSyncJobResponse(job))
	}
	return responses
}

// syncErrorResponse is the wire form of a recorded sync error.
type syncErrorResponse struct {
	ID         string         `json:"id"`
	JobID      string         `json:"job_id"`
	RecordID   *string        `json:"record_id,omitempty"`
	Category   string         `json:"category"`
	Message    string         `json:"message"`
	RawRecord  map[string]any `json:"raw_record,omitempty"`
	RetryCount int            `json:"retry_count"`
	Resolved   bool           `json:"resolved"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toSyncErrorResponses(syncErrors []*entity.SyncError) []syncErrorResponse {
	responses := make([]syncErrorResponse, 0, len(syncErrors))
	for _, syncError := range syncErrors {
		responses = append(responses, syncErrorResponse{
			ID:         syncError.ID().String(),
			JobID:      syncError.JobID().String(),
			RecordID:   syncError.RecordID(),
			Category:   syncError.Category().String(),
			Message:    syncError.Message(),
			RawRecord:  syncError.RawRecord(),
			RetryCount: syncError.RetryCount(),
			Resolved:   syncError.Resolved(),
			CreatedAt:  syncError.CreatedAt(),
		})
	}
	return responses
}
