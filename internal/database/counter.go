package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// GetCounter returns the current value of a persisted counter, or 0 if the
// key has never been written.
func (db *DB) GetCounter(key string) (int64, error) {
	var raw string
	err := db.conn.QueryRow("SELECT value FROM device_state WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter value for %s: %w", key, err)
	}

	return value, nil
}

// IncrementCounter atomically increments a persisted counter by one and
// returns the new value. The read-modify-write runs inside a single
// transaction so the new value is durable before it is handed out.
func (db *DB) IncrementCounter(key string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin counter transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	var current int64
	err = tx.QueryRow("SELECT value FROM device_state WHERE key = ?", key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	default:
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt counter value for %s: %w", key, err)
		}
	}

	next := current + 1

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO device_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, key, strconv.FormatInt(next, 10))
	if err != nil {
		return 0, fmt.Errorf("failed to persist counter %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit counter %s: %w", key, err)
	}

	return next, nil
}
