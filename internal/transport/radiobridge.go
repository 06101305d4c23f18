package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"mine-safety-bridge/internal/types"
)

// ErrBridgeUnavailable is returned when no ESP32 radio bridge is
// configured. The fallback chain treats it like any other send failure.
var ErrBridgeUnavailable = errors.New("radio bridge not available")

const bridgeAckByte = 0x06

// RadioBridgeTransport attempts delivery through a local ESP32/LoRa
// bridge reachable over the device network. Deployments without bridge
// hardware leave the address empty and every send reports unavailable.
type RadioBridgeTransport struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRadioBridgeTransport creates the ESP32/LoRa bridge transport
func NewRadioBridgeTransport(addr string, timeout time.Duration, logger *slog.Logger) *RadioBridgeTransport {
	return &RadioBridgeTransport{
		addr:    addr,
		timeout: timeout,
		logger:  logger,
	}
}

// Name returns the transport name
func (t *RadioBridgeTransport) Name() string {
	return "radio-bridge"
}

// Method returns the delivery method this transport reports
func (t *RadioBridgeTransport) Method() types.DeliveryMethod {
	return types.MethodRadioBridge
}

// Send frames the record as length-prefixed JSON and waits for the
// bridge ACK. Success means the bridge accepted the frame for LoRa
// relay, not that a responder received it.
func (t *RadioBridgeTransport) Send(ctx context.Context, record *types.EmergencyRecord) error {
	if t.addr == "" {
		return ErrBridgeUnavailable
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency record: %w", err)
	}

	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to reach radio bridge at %s: %w", t.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set bridge deadline: %w", err)
	}

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame to radio bridge: %w", err)
	}

	ack := make([]byte, 1)
	if _, err := conn.Read(ack); err != nil {
		return fmt.Errorf("radio bridge did not acknowledge: %w", err)
	}
	if ack[0] != bridgeAckByte {
		return fmt.Errorf("radio bridge rejected frame: 0x%02x", ack[0])
	}

	t.logger.Info("Emergency handed to radio bridge",
		"emergency_id", record.EmergencyID,
		"bridge_addr", t.addr)

	return nil
}
