package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mine-safety-bridge/internal/types"
)

// StoredEmergency is an intake-side emergency row
type StoredEmergency struct {
	ID         string                `json:"id"`
	Record     types.EmergencyRecord `json:"record"`
	ReceivedAt time.Time             `json:"received_at"`
}

// InsertEmergency persists an emergency record. Duplicate submissions of
// the same (user_id, emergency_id), which happen when a bridge resyncs an
// entry it delivered but failed to dequeue, are reported as not created,
// without error.
func (c *Connection) InsertEmergency(record types.EmergencyRecord) (id string, created bool, err error) {
	id = uuid.NewString()

	var mediaURL sql.NullString
	if record.MediaURL != "" {
		mediaURL = sql.NullString{String: record.MediaURL, Valid: true}
	}

	result, err := c.DB.Exec(`
		INSERT INTO emergencies
			(id, user_id, emergency_id, severity, latitude, longitude, issue, incident_time, media_status, media_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, emergency_id) DO NOTHING
	`,
		id,
		record.UserID,
		record.EmergencyID,
		record.Severity,
		record.Latitude,
		record.Longitude,
		record.Issue,
		record.IncidentTime,
		record.MediaStatus,
		mediaURL,
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert emergency: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		// Already stored by an earlier submission; look up its id
		var existing string
		err := c.DB.QueryRow(
			"SELECT id FROM emergencies WHERE user_id = $1 AND emergency_id = $2",
			record.UserID, record.EmergencyID,
		).Scan(&existing)
		if err != nil {
			return "", false, fmt.Errorf("failed to look up duplicate emergency: %w", err)
		}
		return existing, false, nil
	}

	return id, true, nil
}

// InsertMediaObject records an uploaded media object
func (c *Connection) InsertMediaObject(id, userID, objectName, contentType string, sizeBytes int64, url string) error {
	_, err := c.DB.Exec(`
		INSERT INTO media_objects (id, user_id, object_name, content_type, size_bytes, url)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, objectName, contentType, sizeBytes, url)
	if err != nil {
		return fmt.Errorf("failed to insert media object: %w", err)
	}
	return nil
}

// GetEmergenciesByUser returns a user's emergencies, newest first
func (c *Connection) GetEmergenciesByUser(userID string, limit int) ([]StoredEmergency, error) {
	rows, err := c.DB.Query(`
		SELECT id, user_id, emergency_id, severity, latitude, longitude, issue, incident_time, media_status, media_url, received_at
		FROM emergencies
		WHERE user_id = $1
		ORDER BY incident_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query emergencies: %w", err)
	}
	defer rows.Close()

	var out []StoredEmergency
	for rows.Next() {
		var stored StoredEmergency
		var mediaURL sql.NullString

		err := rows.Scan(
			&stored.ID,
			&stored.Record.UserID,
			&stored.Record.EmergencyID,
			&stored.Record.Severity,
			&stored.Record.Latitude,
			&stored.Record.Longitude,
			&stored.Record.Issue,
			&stored.Record.IncidentTime,
			&stored.Record.MediaStatus,
			&mediaURL,
			&stored.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency row: %w", err)
		}
		if mediaURL.Valid {
			stored.Record.MediaURL = mediaURL.String
		}

		out = append(out, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emergency rows: %w", err)
	}

	return out, nil
}
