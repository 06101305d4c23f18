package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mine-safety-bridge/internal/session"
	"mine-safety-bridge/internal/types"
)

// ErrMeshUnavailable is returned when no mesh device is wired in.
var ErrMeshUnavailable = errors.New("mesh device not available")

// MeshDevice is the device-local BLE mesh API. A session must be started
// with the reporting user's id before a broadcast is accepted.
type MeshDevice interface {
	StartMesh(ctx context.Context, userID string) error
	Broadcast(ctx context.Context, payload []byte) error
}

// MeshTransport broadcasts emergency records over the BLE mesh so nearby
// devices can relay them. Session start and broadcast failures are a
// single combined failure result.
type MeshTransport struct {
	device   MeshDevice
	sessions session.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMeshTransport creates the BLE mesh transport
func NewMeshTransport(device MeshDevice, sessions session.Provider, timeout time.Duration, logger *slog.Logger) *MeshTransport {
	return &MeshTransport{
		device:   device,
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

// Name returns the transport name
func (t *MeshTransport) Name() string {
	return "mesh"
}

// Method returns the delivery method this transport reports
func (t *MeshTransport) Method() types.DeliveryMethod {
	return types.MethodMesh
}

// Send starts a mesh session for the current user and broadcasts the
// record as JSON.
func (t *MeshTransport) Send(ctx context.Context, record *types.EmergencyRecord) error {
	if t.device == nil {
		return ErrMeshUnavailable
	}

	user, err := t.sessions.CurrentUser()
	if err != nil {
		return fmt.Errorf("failed to resolve mesh user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("no active session for mesh broadcast")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.device.StartMesh(ctx, user.UserID); err != nil {
		return fmt.Errorf("failed to start mesh session: %w", err)
	}

	if err := t.device.Broadcast(ctx, payload); err != nil {
		return fmt.Errorf("failed to broadcast over mesh: %w", err)
	}

	t.logger.Info("Emergency broadcast over mesh",
		"emergency_id", record.EmergencyID,
		"user_id", user.UserID)

	return nil
}
