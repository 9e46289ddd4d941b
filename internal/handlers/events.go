package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lumo-cam/lumo/internal/events"
	"github.com/lumo-cam/lumo/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The server binds to loopback; origin checks add nothing.
		return true
	},
}

// HandleEvents upgrades to the one-way named-event channel.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	client := events.NewClient(middleware.GetClientID(r.Context()), conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	go client.WritePump()
	client.ReadPump()
}
