package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"mine-safety-bridge/internal/alert"
)

// TriggerRequest is the emergency trigger payload from a UI handler
type TriggerRequest struct {
	Severity  string `json:"severity"`
	Issue     string `json:"issue"`
	MediaPath string `json:"media_path,omitempty"`
}

// errorResponse is the JSON error envelope
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusResponse is the queue introspection payload
type statusResponse struct {
	PendingEmergencies int `json:"pending_emergencies"`
}

// handleTrigger runs the delivery orchestrator for one emergency.
// A QUEUED outcome is a 200: the alert is recorded and will be retried.
// Hard failures map to 4xx/5xx and mean nothing was recorded.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be valid JSON")
		return
	}

	outcome, err := s.alerts.TriggerEmergency(r.Context(), req.Severity, req.Issue, req.MediaPath)
	if err != nil {
		var validationErr *alert.ValidationError
		var authErr *alert.NotAuthenticatedError
		var storageErr *alert.StorageError

		switch {
		case errors.As(err, &validationErr):
			s.writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", validationErr.Error())
		case errors.As(err, &authErr):
			s.writeError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", authErr.Error())
		case errors.As(err, &storageErr):
			s.writeError(w, http.StatusInternalServerError, "STORAGE_FAILURE", storageErr.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		}
		return
	}

	s.writeJSON(w, http.StatusOK, outcome)
}

// handleSync runs one reconciliation sweep of the offline queue
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.reconciler.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "SYNC_FAILED", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleStatus reports offline queue depth
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	depth, err := s.alerts.PendingCount(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "STATUS_FAILED", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{PendingEmergencies: depth})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode API response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, Code: code})
}
