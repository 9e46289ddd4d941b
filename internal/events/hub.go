package events

import (
	"log/slog"
	"sync"
)

// Hub fans event frames out to every connected client of the embedding
// application (webview, dev console, paired phone).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	h.logger.Debug("events register", "client", c.ID, "clients", len(h.clients))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
	h.logger.Debug("events unregister", "client", c.ID)
}

func (h *Hub) Broadcast(data []byte) {
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.Send <- data:
			sent++
		default:
			h.logger.Warn("events dropped frame", "client", c.ID)
		}
	}

	h.logger.Debug("events broadcast", "recipients", sent)
}
