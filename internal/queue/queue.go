package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mine-safety-bridge/internal/database"
	"mine-safety-bridge/internal/types"
)

// Manager defines the interface for the durable offline emergency queue.
// The queue is append-only FIFO: the orchestrator enqueues, the sync
// reconciler removes confirmed-delivered entries, nothing is mutated in
// place.
type Manager interface {
	// Enqueue appends an emergency with the fallback tag that produced it
	Enqueue(ctx context.Context, record types.EmergencyRecord, offlineMethod string) (*types.OfflineEntry, error)

	// Pending returns all queued entries in enqueue order
	Pending(ctx context.Context) ([]types.OfflineEntry, error)

	// Remove deletes a single entry after its delivery is confirmed
	Remove(ctx context.Context, entryID int64) error

	// Depth returns the current number of queued entries
	Depth(ctx context.Context) (int, error)
}

// sqliteManager implements Manager using the device SQLite store. A
// single mutex serializes appends against drains so a reconcile sweep
// can never lose a racing enqueue or double-remove an entry.
type sqliteManager struct {
	db    *database.DB
	mutex sync.Mutex
}

// NewSQLiteManager creates a SQLite-backed offline queue manager
func NewSQLiteManager(db *database.DB) Manager {
	return &sqliteManager{db: db}
}

// Enqueue appends a new emergency to the queue
func (q *sqliteManager) Enqueue(ctx context.Context, record types.EmergencyRecord, offlineMethod string) (*types.OfflineEntry, error) {
	switch offlineMethod {
	case types.OfflineTagESP32, types.OfflineTagMesh, types.OfflineTagStored:
	default:
		return nil, fmt.Errorf("unknown offline method %q", offlineMethod)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal emergency record: %w", err)
	}

	dbEntry := &database.OfflineEmergency{
		UserID:        record.UserID,
		EmergencyID:   record.EmergencyID,
		OfflineMethod: offlineMethod,
		Payload:       string(payload),
		StoredAt:      time.Now().UTC(),
	}

	q.mutex.Lock()
	defer q.mutex.Unlock()

	if err := q.db.InsertOfflineEmergency(dbEntry); err != nil {
		return nil, fmt.Errorf("failed to enqueue emergency: %w", err)
	}

	return &types.OfflineEntry{
		ID:            dbEntry.ID,
		Record:        record,
		OfflineMethod: dbEntry.OfflineMethod,
		StoredAt:      dbEntry.StoredAt,
	}, nil
}

// Pending returns all queued entries in enqueue order
func (q *sqliteManager) Pending(ctx context.Context) ([]types.OfflineEntry, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	dbEntries, err := q.db.GetOfflineEmergencies()
	if err != nil {
		return nil, fmt.Errorf("failed to load offline queue: %w", err)
	}

	entries := make([]types.OfflineEntry, 0, len(dbEntries))
	for _, dbEntry := range dbEntries {
		var record types.EmergencyRecord
		if err := json.Unmarshal([]byte(dbEntry.Payload), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queued emergency %d: %w", dbEntry.EmergencyID, err)
		}

		entries = append(entries, types.OfflineEntry{
			ID:            dbEntry.ID,
			Record:        record,
			OfflineMethod: dbEntry.OfflineMethod,
			StoredAt:      dbEntry.StoredAt,
		})
	}

	return entries, nil
}

// Remove deletes a single entry by id
func (q *sqliteManager) Remove(ctx context.Context, entryID int64) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if err := q.db.DeleteOfflineEmergency(entryID); err != nil {
		return fmt.Errorf("failed to remove queue entry %d: %w", entryID, err)
	}
	return nil
}

// Depth returns the current queue depth
func (q *sqliteManager) Depth(ctx context.Context) (int, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	depth, err := q.db.GetOfflineQueueDepth()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return depth, nil
}
