package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/types"
)

// OutcomeMessage is pushed to connected UI clients after each delivery
type OutcomeMessage struct {
	Type      string                `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
	Record    types.EmergencyRecord `json:"record"`
	Outcome   types.DeliveryOutcome `json:"outcome"`
}

// OutcomeHub fans delivery outcomes out to websocket clients so the UI
// can show alert state without polling. Slow clients are dropped rather
// than allowed to block delivery notification.
type OutcomeHub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mutex   sync.Mutex
	clients map[string]*websocket.Conn
	closed  bool
}

// NewOutcomeHub creates an empty hub
func NewOutcomeHub(logger *logrus.Logger) *OutcomeHub {
	return &OutcomeHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local loopback API only
				return true
			},
		},
		logger:  logger,
		clients: make(map[string]*websocket.Conn),
	}
}

// HandleUpgrade upgrades an HTTP request to a websocket subscription
func (h *OutcomeHub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	id := uuid.NewString()

	h.mutex.Lock()
	if h.closed {
		h.mutex.Unlock()
		conn.Close()
		return
	}
	h.clients[id] = conn
	h.mutex.Unlock()

	h.logger.WithField("client_id", id).Debug("Websocket client connected")

	// Reader loop only exists to detect disconnects
	go func() {
		defer h.drop(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Notify pushes a delivery outcome to every connected client
func (h *OutcomeHub) Notify(record types.EmergencyRecord, outcome types.DeliveryOutcome) {
	msg := OutcomeMessage{
		Type:      "delivery_outcome",
		Timestamp: time.Now().UTC(),
		Record:    record,
		Outcome:   outcome,
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.WithError(err).WithField("client_id", id).Debug("Dropping slow websocket client")
			conn.Close()
			delete(h.clients, id)
		}
	}
}

// Close disconnects all clients
func (h *OutcomeHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}

func (h *OutcomeHub) drop(id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conn, ok := h.clients[id]; ok {
		conn.Close()
		delete(h.clients, id)
	}
}
