package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"mine-safety-bridge/internal/session"
	"mine-safety-bridge/internal/types"
)

// intakeResponse is the machine-readable record the intake endpoint
// returns on successful creation.
type intakeResponse struct {
	ID          string `json:"id"`
	EmergencyID int64  `json:"emergency_id"`
	Message     string `json:"message,omitempty"`
}

// OnlineTransport submits emergency records to the remote alert-intake
// endpoint over HTTPS with bearer auth.
type OnlineTransport struct {
	httpClient *http.Client
	sessions   session.Provider
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewOnlineTransport creates the primary HTTPS transport
func NewOnlineTransport(baseURL string, sessions session.Provider, timeout time.Duration, logger *slog.Logger) *OnlineTransport {
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	return &OnlineTransport{
		httpClient: httpClient,
		sessions:   sessions,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    timeout,
		logger:     logger,
	}
}

// Name returns the transport name
func (t *OnlineTransport) Name() string {
	return "online"
}

// Method returns the delivery method this transport reports
func (t *OnlineTransport) Method() types.DeliveryMethod {
	return types.MethodOnline
}

// Send submits the record to the intake endpoint. Success means the
// server acknowledged creation; any non-2xx status or network error is a
// failure.
func (t *OnlineTransport) Send(ctx context.Context, record *types.EmergencyRecord) error {
	token, err := t.sessions.Token()
	if err != nil {
		return fmt.Errorf("failed to get session token: %w", err)
	}
	if token == "" {
		return fmt.Errorf("no session token available")
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/emergencies", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create intake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	t.logger.Debug("Submitting emergency to intake endpoint",
		"emergency_id", record.EmergencyID,
		"severity", record.Severity)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("intake request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read intake response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("intake rejected emergency: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var ack intakeResponse
	if err := json.Unmarshal(respBody, &ack); err != nil {
		// A 2xx with an unparseable body still counts as delivered
		t.logger.Warn("Intake acknowledged with unparseable body", "error", err)
		return nil
	}

	t.logger.Info("Emergency delivered online",
		"emergency_id", record.EmergencyID,
		"intake_id", ack.ID)

	return nil
}
