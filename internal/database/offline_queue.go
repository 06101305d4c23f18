package database

import (
	"fmt"
)

// InsertOfflineEmergency appends a queued emergency to the offline queue.
// The payload is encrypted before it touches disk.
func (db *DB) InsertOfflineEmergency(entry *OfflineEmergency) error {
	encrypted, err := db.Encrypt([]byte(entry.Payload))
	if err != nil {
		return fmt.Errorf("failed to encrypt emergency payload: %w", err)
	}

	query := `
		INSERT INTO offline_emergencies (user_id, emergency_id, offline_method, payload, stored_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		entry.UserID,
		entry.EmergencyID,
		entry.OfflineMethod,
		encrypted,
		entry.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert offline emergency: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetOfflineEmergencies retrieves queued emergencies in enqueue order
func (db *DB) GetOfflineEmergencies() ([]*OfflineEmergency, error) {
	query := `
		SELECT id, user_id, emergency_id, offline_method, payload, stored_at
		FROM offline_emergencies
		ORDER BY id ASC
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query offline emergencies: %w", err)
	}
	defer rows.Close()

	var entries []*OfflineEmergency
	for rows.Next() {
		entry := &OfflineEmergency{}
		var encrypted string

		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.EmergencyID,
			&entry.OfflineMethod,
			&encrypted,
			&entry.StoredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offline emergency row: %w", err)
		}

		decrypted, err := db.Decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt payload for emergency %d: %w", entry.EmergencyID, err)
		}
		entry.Payload = string(decrypted)

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offline emergency rows: %w", err)
	}

	return entries, nil
}

// DeleteOfflineEmergency removes a single queued emergency by row id
func (db *DB) DeleteOfflineEmergency(id int64) error {
	result, err := db.conn.Exec("DELETE FROM offline_emergencies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete offline emergency %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("offline emergency %d not found", id)
	}

	return nil
}

// GetOfflineQueueDepth returns the number of queued emergencies
func (db *DB) GetOfflineQueueDepth() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM offline_emergencies").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get offline queue depth: %w", err)
	}
	return count, nil
}
