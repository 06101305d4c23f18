package alert

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/queue"
	"mine-safety-bridge/internal/transport"
)

// SyncResult summarizes one reconciliation sweep
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Reconciler drains the offline queue against the online transport. Every
// invocation is a full best-effort sweep with no per-entry retry budget:
// entries that fail stay queued, in order, for the next pass.
type Reconciler struct {
	offlineQueue queue.Manager
	online       transport.Transport
	mutex        sync.Mutex
	logger       *logrus.Entry
}

// NewReconciler creates a reconciler over the given queue and transport
func NewReconciler(offlineQueue queue.Manager, online transport.Transport, logger *logrus.Entry) *Reconciler {
	return &Reconciler{
		offlineQueue: offlineQueue,
		online:       online,
		logger:       logger,
	}
}

// Reconcile attempts to deliver every queued emergency in enqueue order.
// Each entry is removed immediately after its send is confirmed, so a
// crash mid-sweep never resends an already-synced record. Safe to invoke
// repeatedly and concurrently with new enqueues.
func (r *Reconciler) Reconcile(ctx context.Context) (SyncResult, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	result := SyncResult{}

	entries, err := r.offlineQueue.Pending(ctx)
	if err != nil {
		return result, &StorageError{Op: "offline queue read", Err: err}
	}

	if len(entries) == 0 {
		return result, nil
	}

	r.logger.WithField("count", len(entries)).Info("Reconciling offline emergencies")

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record := entry.Record
		if err := r.online.Send(ctx, &record); err != nil {
			r.logger.WithError(err).WithField("emergency_id", record.EmergencyID).
				Warn("Resync failed, keeping entry for next pass")
			result.Failed++
			continue
		}

		if err := r.offlineQueue.Remove(ctx, entry.ID); err != nil {
			// Delivered but not removed; the intake dedupes on resend
			r.logger.WithError(err).WithField("emergency_id", record.EmergencyID).
				Error("Failed to remove synced entry")
			result.Failed++
			continue
		}

		r.logger.WithField("emergency_id", record.EmergencyID).Info("Synced offline emergency")
		result.Synced++
	}

	r.logger.WithFields(logrus.Fields{
		"synced": result.Synced,
		"failed": result.Failed,
	}).Info("Reconciliation complete")

	return result, nil
}
