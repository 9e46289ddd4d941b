package handlers

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

// HandleQR renders the server address as a QR code so a phone on the
// same network can open the console.
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(h.addr, qrcode.Medium, 256)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
