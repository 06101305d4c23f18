package intake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/cloud/queue"
	"mine-safety-bridge/internal/types"
)

// createResponse acknowledges a stored emergency
type createResponse struct {
	ID          string `json:"id"`
	EmergencyID int64  `json:"emergency_id"`
	Message     string `json:"message,omitempty"`
}

// uploadResponse returns the durable URL of an uploaded media object
type uploadResponse struct {
	URL string `json:"url"`
}

// handleCreateEmergency stores an emergency and fans it out to the
// dispatch queue and Kafka topic. Duplicate (user_id, emergency_id)
// submissions are acknowledged without re-dispatching.
func (s *Server) handleCreateEmergency(w http.ResponseWriter, r *http.Request) {
	var record types.EmergencyRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be a valid emergency record")
		return
	}

	if _, ok := types.NormalizeSeverity(string(record.Severity)); !ok {
		s.writeError(w, http.StatusBadRequest, "unknown severity")
		return
	}
	if strings.TrimSpace(record.Issue) == "" {
		s.writeError(w, http.StatusBadRequest, "issue must not be empty")
		return
	}
	if record.UserID == "" {
		record.UserID = callerID(r)
	}
	if record.UserID != callerID(r) {
		s.writeError(w, http.StatusForbidden, "user_id does not match token")
		return
	}

	id, created, err := s.db.InsertEmergency(record)
	if err != nil {
		s.logger.WithError(err).Error("Failed to store emergency")
		s.writeError(w, http.StatusInternalServerError, "failed to store emergency")
		return
	}

	if !created {
		s.logger.WithFields(logrus.Fields{
			"user_id":      record.UserID,
			"emergency_id": record.EmergencyID,
		}).Info("Duplicate emergency submission acknowledged")
		s.writeJSON(w, http.StatusOK, createResponse{
			ID:          id,
			EmergencyID: record.EmergencyID,
			Message:     "already recorded",
		})
		return
	}

	s.fanOut(r, record, id)

	s.logger.WithFields(logrus.Fields{
		"user_id":      record.UserID,
		"emergency_id": record.EmergencyID,
		"severity":     record.Severity,
	}).Info("Emergency recorded")

	s.writeJSON(w, http.StatusCreated, createResponse{ID: id, EmergencyID: record.EmergencyID})
}

// fanOut notifies downstream consumers of a newly stored emergency.
// Fan-out failures are logged, not surfaced: the record is durable in
// Postgres and the bridge must see success.
func (s *Server) fanOut(r *http.Request, record types.EmergencyRecord, id string) {
	if s.dispatch != nil {
		msg := &queue.DispatchMessage{
			Type: "emergency_created",
			Data: map[string]interface{}{
				"id":           id,
				"user_id":      record.UserID,
				"emergency_id": record.EmergencyID,
				"severity":     string(record.Severity),
				"latitude":     record.Latitude,
				"longitude":    record.Longitude,
			},
		}
		if err := s.dispatch.Publish(queue.DispatchQueueName, msg); err != nil {
			s.logger.WithError(err).Error("Failed to publish dispatch message")
		}
	}

	if s.producer != nil {
		payload, err := json.Marshal(record)
		if err == nil {
			err = s.producer.Publish(r.Context(), record.UserID, payload)
		}
		if err != nil {
			s.logger.WithError(err).Error("Failed to publish emergency to Kafka")
		}
	}
}

// handleListEmergencies returns the caller's emergencies, newest first
func (s *Server) handleListEmergencies(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	emergencies, err := s.db.GetEmergenciesByUser(callerID(r), limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list emergencies")
		s.writeError(w, http.StatusInternalServerError, "failed to list emergencies")
		return
	}

	s.writeJSON(w, http.StatusOK, emergencies)
}

// handleUploadMedia stores a multipart attachment and returns its durable
// URL.
func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Media.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	objectID := uuid.NewString()
	objectName := objectID + sanitizedExt(header.Filename)

	if err := os.MkdirAll(s.cfg.Media.StorageDir, 0755); err != nil {
		s.logger.WithError(err).Error("Failed to create media directory")
		s.writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	dest, err := os.Create(filepath.Join(s.cfg.Media.StorageDir, objectName))
	if err != nil {
		s.logger.WithError(err).Error("Failed to create media file")
		s.writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}
	defer dest.Close()

	size, err := io.Copy(dest, file)
	if err != nil {
		s.logger.WithError(err).Error("Failed to write media file")
		s.writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	url := fmt.Sprintf("%s/media/%s", strings.TrimSuffix(s.cfg.Media.PublicBaseURL, "/"), objectName)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(header.Filename)
	}

	if err := s.db.InsertMediaObject(objectID, callerID(r), objectName, contentType, size, url); err != nil {
		s.logger.WithError(err).Error("Failed to record media object")
		s.writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     callerID(r),
		"object_name": objectName,
		"size_bytes":  size,
	}).Info("Media uploaded")

	s.writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}

func sanitizedExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4", ".jpg", ".jpeg", ".png":
		return ext
	default:
		return ".bin"
	}
}

func contentTypeFor(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".mp4") {
		return "video/mp4"
	}
	return "image/jpeg"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode intake response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
