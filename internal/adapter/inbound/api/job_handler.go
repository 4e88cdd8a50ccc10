package api

import (
	"net/http"
	"strconv"

	"vectorsync/internal/application/service"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
)

// JobHandler serves sync job queries and lifecycle operations.
type JobHandler struct {
	syncJobs *service.SyncJobService
}

// NewJobHandler creates a job handler.
func NewJobHandler(syncJobs *service.SyncJobService) *JobHandler {
	return &JobHandler{syncJobs: syncJobs}
}

// GetJob handles GET /jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.syncJobs.GetJob(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSyncJobResponse(job))
}

// ListJobs handles GET /datasources/{datasourceId}/jobs.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	datasourceID, ok := pathUUID(w, r, "datasourceId")
	if !ok {
		return
	}

	filters := outbound.SyncJobFilters{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	jobs, total, err := h.syncJobs.ListJobs(r.Context(), datasourceID, filters)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":   toSyncJobResponses(jobs),
		"total":  total,
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}

// ListErrors handles GET /jobs/{id}/errors.
func (h *JobHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	syncErrors, err := h.syncJobs.ListErrors(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"errors": toSyncErrorResponses(syncErrors),
	})
}

// CancelJob handles POST /jobs/{id}/cancel.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.syncJobs.CancelJob(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSyncJobResponse(job))
}

// RetryErrors handles POST /jobs/{id}/retry.
func (h *JobHandler) RetryErrors(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	retryJobs, err := h.syncJobs.RetryErrors(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobs": toSyncJobResponses(retryJobs),
	})
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name, "INVALID_ID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
