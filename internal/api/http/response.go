package http

import (
	"encoding/json"
	"net/http"

	"motorent-backend/internal/logger"
	"motorent-backend/internal/service"
)

type errorBody struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Kind: kind, Message: message})
}

// statusFor maps an engine outcome to an HTTP status.
func statusFor(o service.Outcome, success int) int {
	if o.Success {
		return success
	}
	switch o.Kind {
	case service.FailureValidation:
		return http.StatusBadRequest
	case service.FailureNotFound:
		return http.StatusNotFound
	case service.FailurePrecondition:
		return http.StatusUnprocessableEntity
	case service.FailureConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respond writes an engine result with the status derived from its embedded Outcome.
func respond(w http.ResponseWriter, o service.Outcome, success int, body interface{}) {
	writeJSON(w, statusFor(o, success), body)
}
