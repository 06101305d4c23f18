package database

import (
	"time"
)

// Persisted state keys in the device_state table. The counter key matches
// the layout the companion apps have always used.
const (
	KeyEmergencyCounter = "emergencyCounter"
)

// OfflineEmergency represents a queued emergency row in the database
type OfflineEmergency struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	EmergencyID   int64     `json:"emergency_id"`
	OfflineMethod string    `json:"offline_method"`
	Payload       string    `json:"payload"` // Encrypted JSON
	StoredAt      time.Time `json:"stored_at"`
}
