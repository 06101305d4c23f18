package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-safety-bridge/internal/session"
	"mine-safety-bridge/internal/types"
)

func testSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSessions() *session.StaticProvider {
	return &session.StaticProvider{
		User: &types.User{UserID: "user-1"},
		Raw:  "test-token",
	}
}

func TestOnlineSendDeliversRecord(t *testing.T) {
	var gotPath, gotAuth string
	var got types.EmergencyRecord

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           "b2f6c9e0",
			"emergency_id": got.EmergencyID,
		})
	}))
	defer server.Close()

	tr := NewOnlineTransport(server.URL, testSessions(), 5*time.Second, testSlog())

	record := types.EmergencyRecord{
		UserID:      "user-1",
		EmergencyID: 3,
		Severity:    types.SeverityHigh,
		Issue:       "fall detected",
	}
	require.NoError(t, tr.Send(context.Background(), &record))

	assert.Equal(t, "/v1/emergencies", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, int64(3), got.EmergencyID)
	assert.Equal(t, types.SeverityHigh, got.Severity)
}

func TestOnlineSendRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewOnlineTransport(server.URL, testSessions(), 5*time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1, Severity: types.SeverityHigh, Issue: "x"}
	err := tr.Send(context.Background(), &record)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestOnlineSendUnparseableAckStillSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	tr := NewOnlineTransport(server.URL, testSessions(), 5*time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1, Severity: types.SeverityHigh, Issue: "x"}
	assert.NoError(t, tr.Send(context.Background(), &record))
}

func TestOnlineSendNoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server without a token")
	}))
	defer server.Close()

	sessions := &session.StaticProvider{Raw: ""}
	tr := NewOnlineTransport(server.URL, sessions, 5*time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1, Severity: types.SeverityHigh, Issue: "x"}
	assert.Error(t, tr.Send(context.Background(), &record))
}

func TestOnlineSendServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	tr := NewOnlineTransport(server.URL, testSessions(), time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1, Severity: types.SeverityHigh, Issue: "x"}
	assert.Error(t, tr.Send(context.Background(), &record))
}

func TestOnlineTransportIdentity(t *testing.T) {
	tr := NewOnlineTransport("https://intake.example.com", testSessions(), time.Second, testSlog())
	assert.Equal(t, "online", tr.Name())
	assert.Equal(t, types.MethodOnline, tr.Method())
}
