// README: Websocket relay. Authenticated connections subscribe to drivers and
// receive scoped driver_location frames; nothing is broadcast to everyone.
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"tamtom/internal/logger"
	"tamtom/internal/metrics"
	"tamtom/internal/types"
)

// Frame is the wire envelope for every relay message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type authPayload struct {
	UserID string `json:"user_id"`
}

type subscribePayload struct {
	DriverID string `json:"driver_id"`
}

// LocationPayload doubles as the inbound location_update and the outbound
// driver_location payload.
type LocationPayload struct {
	DriverID  string  `json:"driver_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Ts        int64   `json:"ts,omitempty"`
}

// Hub owns all live connections and the driver→subscribers index.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*client]struct{}
	byUser      map[types.ID]*client
	subscribers map[types.ID]map[*client]struct{} // driver id → interested clients

	sendBuffer   int
	writeTimeout time.Duration
}

func NewHub(sendBuffer int, writeTimeout time.Duration) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		clients:      make(map[*client]struct{}),
		byUser:       make(map[types.ID]*client),
		subscribers:  make(map[types.ID]map[*client]struct{}),
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
	}
}

// PublishDriverLocation delivers a position to that driver's subscribers
// only. Satisfies location.Publisher.
func (h *Hub) PublishDriverLocation(driverID types.ID, pos types.Point) {
	payload, err := json.Marshal(LocationPayload{
		DriverID:  string(driverID),
		Latitude:  pos.Lat,
		Longitude: pos.Lng,
		Ts:        time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	msg, err := json.Marshal(Frame{Type: "driver_location", Payload: payload})
	if err != nil {
		return
	}

	// Sends stay under the read lock: trySend never blocks, and unregister
	// closes the send channel only while holding the write lock.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subscribers[driverID] {
		c.trySend(msg)
	}
}

// SendToUser delivers a frame to one authenticated connection, reporting
// whether the user was connected.
func (h *Hub) SendToUser(userID types.ID, frameType string, payload any) bool {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	msg, err := json.Marshal(Frame{Type: frameType, Payload: raw})
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byUser[userID]
	if !ok {
		return false
	}
	c.trySend(msg)
	return true
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.RelayConnectionsGauge.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if c.userID != "" && h.byUser[c.userID] == c {
		delete(h.byUser, c.userID)
	}
	for driverID, subs := range h.subscribers {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.subscribers, driverID)
		}
	}
	close(c.send)
	metrics.RelayConnectionsGauge.Dec()
}

func (h *Hub) handleFrame(c *client, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.L().Debug("relay: dropping malformed frame", zap.Error(err))
		return
	}
	switch f.Type {
	case "auth":
		var p authPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.UserID == "" {
			return
		}
		h.mu.Lock()
		// Last connection wins for a user id.
		c.userID = types.ID(p.UserID)
		h.byUser[c.userID] = c
		h.mu.Unlock()
	case "subscribe":
		var p subscribePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.DriverID == "" {
			return
		}
		h.mu.Lock()
		id := types.ID(p.DriverID)
		if h.subscribers[id] == nil {
			h.subscribers[id] = make(map[*client]struct{})
		}
		h.subscribers[id][c] = struct{}{}
		h.mu.Unlock()
	case "unsubscribe":
		var p subscribePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.DriverID == "" {
			return
		}
		h.mu.Lock()
		id := types.ID(p.DriverID)
		delete(h.subscribers[id], c)
		if len(h.subscribers[id]) == 0 {
			delete(h.subscribers, id)
		}
		h.mu.Unlock()
	case "location_update":
		var p LocationPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.DriverID == "" {
			return
		}
		h.PublishDriverLocation(types.ID(p.DriverID), types.Point{Lat: p.Latitude, Lng: p.Longitude})
	default:
		logger.L().Debug("relay: unknown frame type", zap.String("type", f.Type))
	}
}
