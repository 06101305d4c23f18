package database

import (
	"fmt"
)

// migrate runs database migrations to create the required schema
func (db *DB) migrate() error {
	migrations := []string{
		createDeviceStateTable,
		createOfflineEmergenciesTable,
		createIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	return nil
}

const createDeviceStateTable = `
CREATE TABLE IF NOT EXISTS device_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const createOfflineEmergenciesTable = `
CREATE TABLE IF NOT EXISTS offline_emergencies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    emergency_id INTEGER NOT NULL,
    offline_method TEXT NOT NULL CHECK (offline_method IN ('esp32', 'mesh', 'stored')),
    payload TEXT NOT NULL, -- Encrypted record JSON
    stored_at DATETIME NOT NULL
);`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_offline_emergencies_stored_at ON offline_emergencies(stored_at);
CREATE INDEX IF NOT EXISTS idx_offline_emergencies_emergency_id ON offline_emergencies(user_id, emergency_id);
`
