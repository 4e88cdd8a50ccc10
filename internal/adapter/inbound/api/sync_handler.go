package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"vectorsync/internal/application/service"
	"vectorsync/internal/port/outbound"
)

// SyncHandler serves manual sync triggers and the webhook trigger endpoint.
type SyncHandler struct {
	syncJobs    *service.SyncJobService
	datasources outbound.DatasourceRepository
}

// NewSyncHandler creates a sync trigger handler.
func NewSyncHandler(syncJobs *service.SyncJobService, datasources outbound.DatasourceRepository) *SyncHandler {
	return &SyncHandler{
		syncJobs:    syncJobs,
		datasources: datasources,
	}
}

// TriggerSync handles POST /datasources/{datasourceId}/sync?mode=full|incremental.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	datasourceID, ok := pathUUID(w, r, "datasourceId")
	if !ok {
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "full"
	}

	var trigger func() error
	switch mode {
	case "full":
		trigger = func() error {
			job, err := h.syncJobs.TriggerFullSync(r.Context(), datasourceID)
			if err != nil {
				return err
			}
			writeJSON(w, http.StatusAccepted, toSyncJobResponse(job))
			return nil
		}
	case "incremental":
		trigger = func() error {
			job, err := h.syncJobs.TriggerIncrementalSync(r.Context(), datasourceID)
			if err != nil {
				return err
			}
			writeJSON(w, http.StatusAccepted, toSyncJobResponse(job))
			return nil
		}
	default:
		writeError(w, http.StatusBadRequest, "mode must be full or incremental", "INVALID_MODE")
		return
	}

	if err := trigger(); err != nil {
		writeDomainError(w, err)
	}
}

type webhookRequest struct {
	Codes []string `json:"codes"`
}

// Webhook handles POST /webhooks/{datasourceId}/sync. The caller authenticates
// with the datasource's shared secret as a bearer token.
func (h *SyncHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	datasourceID, ok := pathUUID(w, r, "datasourceId")
	if !ok {
		return
	}

	ds, err := h.datasources.FindByID(r.Context(), datasourceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !h.authorized(r, ds.WebhookSecret()) {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret", "UNAUTHORIZED")
		return
	}

	var request webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	job, err := h.syncJobs.TriggerWebhookSync(r.Context(), datasourceID, request.Codes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toSyncJobResponse(job))
}

// authorized compares the bearer token against the datasource secret in
// constant time.
func (h *SyncHandler) authorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}

	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
