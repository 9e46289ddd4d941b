package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumo-cam/lumo/internal/handlers"
	"github.com/lumo-cam/lumo/internal/middleware"
)

func New(h *handlers.Handler, channelSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientID(channelSecret))

	r.Get("/", h.HandleConsole)
	r.Get("/events", h.HandleEvents)
	r.Get("/api/qr.png", h.HandleQR)

	r.Post("/api/camera/photo", h.HandleGetPhoto)
	r.Post("/api/camera/video", h.HandleRecordVideo)
	r.Post("/api/camera/pick", h.HandlePickMedia)

	r.Get("/api/results/{token}", h.HandleResult)
	r.Get("/media/*", h.HandleMedia)

	return r
}
