package handlers

import (
	_ "embed"
	"net/http"
)

//go:embed console.html
var consoleHTML []byte

// HandleConsole serves the dev console used to exercise the camera
// flows end to end against the simulator or a paired device.
func (h *Handler) HandleConsole(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(consoleHTML)
}
