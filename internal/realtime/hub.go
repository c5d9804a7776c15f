package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/metrics"
	"go.uber.org/zap"
)

// Publisher forwards local broadcasts to other instances.
type Publisher interface {
	Publish(ctx context.Context, eventID uint64, frame []byte) error
}

// Hub keeps the room membership of every connection and fans frames out to
// rooms named after event IDs.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[uint64]map[*client]struct{}

	publisher Publisher
	metrics   *metrics.RealtimeMetrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.RealtimeMetrics) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		rooms:   make(map[uint64]map[*client]struct{}),
		metrics: m,
	}
}

// SetPublisher enables cross-instance fan-out.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.publisher = p
	h.mu.Unlock()
}

// Notify implements services.Notifier. Delivery is best effort: encoding or
// publish failures are logged and never reported to the caller.
func (h *Hub) Notify(eventID uint64, name string, payload interface{}) {
	data, err := json.Marshal(Frame{Type: name, EventID: eventID, Data: payload})
	if err != nil {
		logging.L().Warn("failed to encode realtime frame", zap.String("event", name), zap.Error(err))
		return
	}

	h.Broadcast(eventID, data)
	if h.metrics != nil {
		h.metrics.Broadcasts.WithLabelValues(name).Inc()
	}

	h.mu.RLock()
	publisher := h.publisher
	h.mu.RUnlock()
	if publisher != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeDeadline)
			defer cancel()
			if err := publisher.Publish(ctx, eventID, data); err != nil {
				logging.L().Warn("failed to publish realtime frame", zap.Uint64("event_id", eventID), zap.Error(err))
			}
		}()
	}
}

// Broadcast delivers an encoded frame to local clients in the event room.
// Clients whose buffer is full are disconnected.
func (h *Hub) Broadcast(eventID uint64, data []byte) {
	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[eventID] {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logging.L().Info("disconnecting slow realtime client", zap.Uint64("user_id", c.actor.ID))
		if h.metrics != nil {
			h.metrics.DroppedClients.Inc()
		}
		h.unregister(c)
	}
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Rooms returns the number of rooms with at least one member.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomSize returns the number of connections in an event room.
func (h *Hub) RoomSize(eventID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		for eventID := range c.rooms {
			h.removeFromRoom(c, eventID)
		}
	}
	h.mu.Unlock()

	if ok {
		c.stop()
		if h.metrics != nil {
			h.metrics.ActiveConnections.Dec()
		}
	}
}

func (h *Hub) join(c *client, eventID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	room, ok := h.rooms[eventID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[eventID] = room
	}
	room[c] = struct{}{}
	c.rooms[eventID] = struct{}{}
}

func (h *Hub) leave(c *client, eventID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, eventID)
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(c *client, eventID uint64) {
	delete(c.rooms, eventID)
	room, ok := h.rooms[eventID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, eventID)
	}
}
