package events

import (
	"encoding/json"
	"log/slog"
)

// Envelope is the wire shape of one named event.
type Envelope struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// Dispatcher turns named events into hub broadcasts. It is the
// foreground boundary: everything behind it may run on worker
// goroutines.
type Dispatcher struct {
	hub    *Hub
	logger *slog.Logger
}

func NewDispatcher(hub *Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, logger: logger}
}

func (d *Dispatcher) Dispatch(event string, payload map[string]any) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		d.logger.Error("event marshal failed", "event", event, "err", err)
		return
	}
	d.logger.Info("dispatch", "event", event)
	d.hub.Broadcast(data)
}
