package types

import (
	"strings"
	"time"
)

// Severity classifies how urgent an emergency is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// NormalizeSeverity upper-cases the input and reports whether it names a
// known severity level.
func NormalizeSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, true
	default:
		return "", false
	}
}

// MediaStatus tracks the attachment lifecycle for an emergency record.
type MediaStatus string

const (
	MediaNotApplicable MediaStatus = "NOT_APPLICABLE"
	MediaPendingUpload MediaStatus = "PENDING_UPLOAD"
	MediaSynced        MediaStatus = "SYNCED"
	MediaUploadFailed  MediaStatus = "UPLOAD_FAILED"
)

// DeliveryMethod identifies which channel an emergency left the device on.
type DeliveryMethod string

const (
	MethodOnline      DeliveryMethod = "ONLINE"
	MethodRadioBridge DeliveryMethod = "RADIO_BRIDGE"
	MethodMesh        DeliveryMethod = "MESH"
	MethodQueued      DeliveryMethod = "QUEUED"
)

// Offline queue tags recording which fallback path produced an enqueue.
const (
	OfflineTagESP32  = "esp32"
	OfflineTagMesh   = "mesh"
	OfflineTagStored = "stored"
)

// EmergencyRecord is the unit of work for the delivery pipeline. The JSON
// field names match the cloud intake contract.
type EmergencyRecord struct {
	UserID       string      `json:"user_id"`
	EmergencyID  int64       `json:"emergency_id"`
	Severity     Severity    `json:"severity"`
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
	Issue        string      `json:"issue"`
	IncidentTime time.Time   `json:"incident_time"`
	MediaStatus  MediaStatus `json:"media_status"`
	MediaURL     string      `json:"media_url,omitempty"`
}

// StripMedia returns a copy of the record with attachment fields cleared.
// Offline channels never carry binary media.
func (r EmergencyRecord) StripMedia() EmergencyRecord {
	out := r
	out.MediaURL = ""
	out.MediaStatus = MediaNotApplicable
	return out
}

// OfflineEntry is an EmergencyRecord persisted in the offline queue,
// annotated with the fallback path that stored it.
type OfflineEntry struct {
	ID            int64           `json:"id"`
	Record        EmergencyRecord `json:"record"`
	OfflineMethod string          `json:"offline_method"`
	StoredAt      time.Time       `json:"stored_at"`
}

// DeliveryOutcome is what the orchestrator hands back to its caller once a
// trigger has run to completion.
type DeliveryOutcome struct {
	Delivered   bool           `json:"delivered"`
	Method      DeliveryMethod `json:"method"`
	EmergencyID int64          `json:"emergency_id"`
}

// Coordinates is a best-effort device position. The zero value is the
// "location unavailable" sentinel, not an error.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// User identifies the reporting party, as resolved by the session provider.
type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}
