package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lumo-cam/lumo/internal/events"
	"github.com/lumo-cam/lumo/internal/service"
)

type Handler struct {
	svc      *service.CameraService
	hub      *events.Hub
	cacheDir string
	// addr is the externally reachable base URL, used by the pairing QR.
	addr   string
	logger *slog.Logger
}

func New(svc *service.CameraService, hub *events.Hub, cacheDir, addr string, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		hub:      hub,
		cacheDir: cacheDir,
		addr:     addr,
		logger:   logger,
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("handler error", "path", r.URL.Path, "err", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
