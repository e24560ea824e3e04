package websocket

import (
	"log/slog"
	"sync"

	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

// Hub maintains the set of connected dashboard clients and fans
// engine events out to all of them. Every client sees every event;
// the connection itself is already restricted to admins.
type Hub struct {
	// clients holds the active connections. An admin can be connected
	// from multiple tabs/devices at once.
	clients map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients map
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast sends an event to the hub's internal broadcast channel.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client registered",
		"actor_id", client.ActorID,
		"total_connections", len(h.clients),
	)
}

// unregisterClient removes a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client]; exists {
		delete(h.clients, client)
		client.CloseSend()
	}

	h.logger.Info("client unregistered",
		"actor_id", client.ActorID,
	)
}

// broadcastEvent fans an event out to every connected client
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"actor_id", client.ActorID,
			)
			h.Unregister <- client
		}
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
