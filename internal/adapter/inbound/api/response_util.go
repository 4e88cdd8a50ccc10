package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"vectorsync/internal/adapter/outbound/repository"
	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slogger.ErrorNoCtx("Failed to encode response", slogger.Field("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeDomainError maps repository and domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *entity.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusUnprocessableEntity
		switch domainErr.Code() {
		case "DATASOURCE_NOT_FOUND", "JOB_NOT_FOUND":
			status = http.StatusNotFound
		case "EMPTY_CODE_LIST", "TOO_MANY_CODES":
			status = http.StatusBadRequest
		}
		writeError(w, status, domainErr.Message(), domainErr.Code())
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
		return
	}
	if errors.Is(err, repository.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, "invalid argument", "INVALID_ARGUMENT")
		return
	}

	slogger.ErrorNoCtx("Request failed", slogger.Field("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
}
