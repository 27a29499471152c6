// Package realtime pushes lifecycle events to the websocket connections of
// the loop owner.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/logger"
)

// Hub keeps the active clients grouped by user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	logger  *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger.WithComponent("realtime"),
	}
}

// Register adds a client to its user's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Publish delivers the event to every connection of its owner.
func (h *Hub) Publish(_ context.Context, event entities.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorw("Failed to marshal event", "type", event.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[event.OwnerID] {
		select {
		case c.send <- data:
		default:
			// slow reader, drop
			h.logger.Warnw("Dropping event for slow client", "user_id", c.userID, "type", event.Type)
		}
	}
}

// ClientCount returns the number of connections of a user.
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close unregisters every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}
