package alert

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/connectivity"
	"mine-safety-bridge/internal/idgen"
	"mine-safety-bridge/internal/location"
	"mine-safety-bridge/internal/media"
	"mine-safety-bridge/internal/queue"
	"mine-safety-bridge/internal/session"
	"mine-safety-bridge/internal/transport"
	"mine-safety-bridge/internal/types"
)

// OutcomeListener is notified after every trigger runs to completion,
// regardless of which channel carried the alert.
type OutcomeListener func(record types.EmergencyRecord, outcome types.DeliveryOutcome)

// Options tunes orchestrator behavior
type Options struct {
	// QueueDeliveredOffline keeps an offline queue entry even when a
	// radio or mesh send reports success. Those channels cannot confirm
	// end-to-end delivery, so the entry serves as an audit record until
	// the reconciler re-delivers it online.
	QueueDeliveredOffline bool
}

// Service is the delivery orchestrator. A trigger, once accepted, always
// runs to a final outcome: delivered via some channel, or queued for the
// sync reconciler. Validated and numbered emergencies are never dropped.
type Service struct {
	sessions     session.Provider
	locations    *location.Resolver
	ids          *idgen.Allocator
	oracle       connectivity.Oracle
	online       transport.Transport
	offlineChain []transport.Transport
	offlineQueue queue.Manager
	uploader     *media.Uploader
	opts         Options
	listeners    []OutcomeListener
	logger       *logrus.Entry
}

// NewService wires the delivery orchestrator. offlineChain is tried in
// order after the online transport fails or the device is offline.
func NewService(
	sessions session.Provider,
	locations *location.Resolver,
	ids *idgen.Allocator,
	oracle connectivity.Oracle,
	online transport.Transport,
	offlineChain []transport.Transport,
	offlineQueue queue.Manager,
	uploader *media.Uploader,
	opts Options,
	logger *logrus.Entry,
) *Service {
	return &Service{
		sessions:     sessions,
		locations:    locations,
		ids:          ids,
		oracle:       oracle,
		online:       online,
		offlineChain: offlineChain,
		offlineQueue: offlineQueue,
		uploader:     uploader,
		opts:         opts,
		logger:       logger,
	}
}

// AddOutcomeListener registers a listener for delivery outcomes. Not safe
// to call concurrently with TriggerEmergency; register during wiring.
func (s *Service) AddOutcomeListener(l OutcomeListener) {
	s.listeners = append(s.listeners, l)
}

// TriggerEmergency builds an emergency record for the current user and
// drives it through the transport fallback chain. mediaPath may be empty.
//
// Hard failures (validation, no session, id allocation) mean nothing was
// recorded and the whole call is safe to retry. A Delivered=false outcome
// with Method=QUEUED is not an error: the record is persisted locally and
// the reconciler will keep trying.
func (s *Service) TriggerEmergency(ctx context.Context, severity, issue, mediaPath string) (types.DeliveryOutcome, error) {
	sev, ok := types.NormalizeSeverity(severity)
	if !ok {
		return types.DeliveryOutcome{}, &ValidationError{Field: "severity", Reason: "must be LOW, MEDIUM, HIGH or CRITICAL"}
	}
	if strings.TrimSpace(issue) == "" {
		return types.DeliveryOutcome{}, &ValidationError{Field: "issue", Reason: "must not be empty"}
	}

	user, err := s.sessions.CurrentUser()
	if err != nil {
		return types.DeliveryOutcome{}, &NotAuthenticatedError{}
	}
	if user == nil {
		return types.DeliveryOutcome{}, &NotAuthenticatedError{}
	}

	coords := s.locations.Current(ctx)

	emergencyID, err := s.ids.Next()
	if err != nil {
		// An un-numbered emergency must not be sent
		return types.DeliveryOutcome{}, &StorageError{Op: "id allocation", Err: err}
	}

	record := types.EmergencyRecord{
		UserID:       user.UserID,
		EmergencyID:  emergencyID,
		Severity:     sev,
		Latitude:     coords.Latitude,
		Longitude:    coords.Longitude,
		Issue:        issue,
		IncidentTime: time.Now().UTC(),
		MediaStatus:  types.MediaNotApplicable,
	}
	if mediaPath != "" {
		record.MediaStatus = types.MediaPendingUpload
	}

	s.logger.WithFields(logrus.Fields{
		"emergency_id": record.EmergencyID,
		"severity":     record.Severity,
		"user_id":      record.UserID,
	}).Info("Emergency triggered")

	var outcome types.DeliveryOutcome
	if s.oracle.IsOnline() {
		outcome, err = s.sendOnline(ctx, record, mediaPath)
	} else {
		s.logger.WithField("emergency_id", record.EmergencyID).Info("Device offline, skipping online transport")
		outcome, err = s.sendOffline(ctx, record.StripMedia())
	}
	if err != nil {
		return types.DeliveryOutcome{}, err
	}

	for _, l := range s.listeners {
		l(record, outcome)
	}
	return outcome, nil
}

// sendOnline uploads media if present, then attempts the online
// transport. Any failure falls through to the offline chain with media
// fields stripped.
func (s *Service) sendOnline(ctx context.Context, record types.EmergencyRecord, mediaPath string) (types.DeliveryOutcome, error) {
	if mediaPath != "" {
		record = s.attachMedia(ctx, record, mediaPath)
	}

	if err := s.online.Send(ctx, &record); err != nil {
		s.logger.WithError(err).WithField("emergency_id", record.EmergencyID).
			Warn("Online send failed, falling back to offline transports")
		return s.sendOffline(ctx, record.StripMedia())
	}

	return types.DeliveryOutcome{
		Delivered:   true,
		Method:      types.MethodOnline,
		EmergencyID: record.EmergencyID,
	}, nil
}

// attachMedia runs the best-effort upload pipeline. Upload failure marks
// the record and moves on; it never delays or drops the alert.
func (s *Service) attachMedia(ctx context.Context, record types.EmergencyRecord, mediaPath string) types.EmergencyRecord {
	token, err := s.sessions.Token()
	if err != nil || token == "" {
		s.logger.WithError(err).Warn("No token for media upload")
		record.MediaStatus = types.MediaUploadFailed
		return record
	}

	url, err := s.uploader.Upload(ctx, mediaPath, token)
	if err != nil {
		s.logger.WithError(err).WithField("emergency_id", record.EmergencyID).
			Warn("Media upload failed, sending alert without attachment")
		record.MediaStatus = types.MediaUploadFailed
		return record
	}

	record.MediaURL = url
	record.MediaStatus = types.MediaSynced
	return record
}

// sendOffline walks the offline transport chain in order. A transport
// success still persists the record as an audit entry when configured;
// total failure persists it tagged "stored" and reports the QUEUED
// outcome.
func (s *Service) sendOffline(ctx context.Context, record types.EmergencyRecord) (types.DeliveryOutcome, error) {
	for _, t := range s.offlineChain {
		if err := t.Send(ctx, &record); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"emergency_id": record.EmergencyID,
				"transport":    t.Name(),
			}).Warn("Offline transport failed")
			continue
		}

		if s.opts.QueueDeliveredOffline {
			tag := offlineTagFor(t.Method())
			if _, err := s.offlineQueue.Enqueue(ctx, record, tag); err != nil {
				// Delivery already happened; the audit entry is best effort
				s.logger.WithError(err).WithField("emergency_id", record.EmergencyID).
					Error("Failed to persist audit entry for offline delivery")
			}
		}

		return types.DeliveryOutcome{
			Delivered:   true,
			Method:      t.Method(),
			EmergencyID: record.EmergencyID,
		}, nil
	}

	if _, err := s.offlineQueue.Enqueue(ctx, record, types.OfflineTagStored); err != nil {
		return types.DeliveryOutcome{}, &StorageError{Op: "offline queue enqueue", Err: err}
	}

	s.logger.WithField("emergency_id", record.EmergencyID).
		Info("All transports failed, emergency stored for later sync")

	return types.DeliveryOutcome{
		Delivered:   false,
		Method:      types.MethodQueued,
		EmergencyID: record.EmergencyID,
	}, nil
}

// PendingCount returns the offline queue depth
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.offlineQueue.Depth(ctx)
}

func offlineTagFor(method types.DeliveryMethod) string {
	switch method {
	case types.MethodRadioBridge:
		return types.OfflineTagESP32
	case types.MethodMesh:
		return types.OfflineTagMesh
	default:
		return types.OfflineTagStored
	}
}
