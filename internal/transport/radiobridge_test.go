package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mine-safety-bridge/internal/types"
)

// fakeBridge accepts one framed payload and replies with the given byte
func fakeBridge(t *testing.T, reply byte) (addr string, payloads <-chan []byte) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	ch := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		payload := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		ch <- payload
		conn.Write([]byte{reply})
	}()

	return listener.Addr().String(), ch
}

func TestRadioBridgeSendNoAddressConfigured(t *testing.T) {
	tr := NewRadioBridgeTransport("", time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1}
	err := tr.Send(context.Background(), &record)
	assert.ErrorIs(t, err, ErrBridgeUnavailable)
}

func TestRadioBridgeSendAcknowledged(t *testing.T) {
	addr, payloads := fakeBridge(t, bridgeAckByte)
	tr := NewRadioBridgeTransport(addr, 2*time.Second, testSlog())

	record := types.EmergencyRecord{
		UserID:      "user-1",
		EmergencyID: 5,
		Severity:    types.SeverityCritical,
		Issue:       "trapped after collapse",
	}
	require.NoError(t, tr.Send(context.Background(), &record))

	select {
	case payload := <-payloads:
		var got types.EmergencyRecord
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, int64(5), got.EmergencyID)
		assert.Equal(t, types.SeverityCritical, got.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never received the frame")
	}
}

func TestRadioBridgeSendRejectedFrame(t *testing.T) {
	addr, _ := fakeBridge(t, 0x15)
	tr := NewRadioBridgeTransport(addr, 2*time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1}
	err := tr.Send(context.Background(), &record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestRadioBridgeSendConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	tr := NewRadioBridgeTransport(addr, time.Second, testSlog())

	record := types.EmergencyRecord{EmergencyID: 1}
	assert.Error(t, tr.Send(context.Background(), &record))
}

func TestRadioBridgeTransportIdentity(t *testing.T) {
	tr := NewRadioBridgeTransport("", time.Second, testSlog())
	assert.Equal(t, "radio-bridge", tr.Name())
	assert.Equal(t, types.MethodRadioBridge, tr.Method())
}
