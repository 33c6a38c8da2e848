// Package websocket pushes backup and cleanup progress events to connected
// admin dashboards, scoped per workspace.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is one progress notification.
type Event struct {
	Action     string         `json:"action"`
	CustomerID int64          `json:"customer_id,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Hub tracks connected clients per workspace and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	ws := h.clients[c.workspaceID]
	if ws == nil {
		ws = make(map[*Client]struct{})
		h.clients[c.workspaceID] = ws
	}
	ws[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if ws, ok := h.clients[c.workspaceID]; ok {
		if _, ok := ws[c]; ok {
			delete(ws, c)
			close(c.send)
		}
		if len(ws) == 0 {
			delete(h.clients, c.workspaceID)
		}
	}
	h.mu.Unlock()
}

// Publish sends an event to every client watching the given workspace. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) Publish(workspaceID int64, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[workspaceID] {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of clients watching a workspace.
func (h *Hub) ClientCount(workspaceID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}
