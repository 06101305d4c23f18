package database

import (
	"fmt"
)

// migrate creates the intake schema. The unique constraint on
// (user_id, emergency_id) is what makes bridge resyncs idempotent.
func (c *Connection) migrate() error {
	migrations := []string{
		createEmergenciesTable,
		createMediaObjectsTable,
		createEmergencyIndexes,
	}

	for i, migration := range migrations {
		if _, err := c.DB.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	return nil
}

const createEmergenciesTable = `
CREATE TABLE IF NOT EXISTS emergencies (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    emergency_id BIGINT NOT NULL,
    severity TEXT NOT NULL CHECK (severity IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
    latitude DOUBLE PRECISION NOT NULL,
    longitude DOUBLE PRECISION NOT NULL,
    issue TEXT NOT NULL,
    incident_time TIMESTAMPTZ NOT NULL,
    media_status TEXT NOT NULL,
    media_url TEXT,
    received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, emergency_id)
);`

const createMediaObjectsTable = `
CREATE TABLE IF NOT EXISTS media_objects (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    object_name TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size_bytes BIGINT NOT NULL,
    url TEXT NOT NULL,
    uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createEmergencyIndexes = `
CREATE INDEX IF NOT EXISTS idx_emergencies_user_id ON emergencies(user_id);
CREATE INDEX IF NOT EXISTS idx_emergencies_incident_time ON emergencies(incident_time);
CREATE INDEX IF NOT EXISTS idx_media_objects_user_id ON media_objects(user_id);
`
