package api

import "net/http"

// NewRouter wires the HTTP routes.
func NewRouter(health *HealthHandler, jobs *JobHandler, sync *SyncHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health.Health)

	mux.HandleFunc("GET /jobs/{id}", jobs.GetJob)
	mux.HandleFunc("GET /jobs/{id}/errors", jobs.ListErrors)
	mux.HandleFunc("POST /jobs/{id}/cancel", jobs.CancelJob)
	mux.HandleFunc("POST /jobs/{id}/retry", jobs.RetryErrors)

	mux.HandleFunc("GET /datasources/{datasourceId}/jobs", jobs.ListJobs)
	mux.HandleFunc("POST /datasources/{datasourceId}/sync", sync.TriggerSync)

	mux.HandleFunc("POST /webhooks/{datasourceId}/sync", sync.Webhook)

	return mux
}
