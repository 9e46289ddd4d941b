package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumo-cam/lumo/internal/capture"
	"github.com/lumo-cam/lumo/internal/middleware"
)

type photoRequest struct {
	ID    string `json:"id"`
	Event string `json:"event"`
}

type videoRequest struct {
	MaxDuration int    `json:"maxDuration"`
	ID          string `json:"id"`
	Event       string `json:"event"`
}

type pickRequest struct {
	MediaType string `json:"mediaType"`
	Multiple  bool   `json:"multiple"`
	MaxItems  int    `json:"maxItems"`
	ID        string `json:"id"`
	Event     string `json:"event"`
}

// All three camera endpoints acknowledge with 204 immediately; results
// arrive over the event channel only. A duplicate same-kind launch is
// also a 204: the in-flight operation's event satisfies the caller.

func (h *Handler) HandleGetPhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ack(w, r, h.svc.GetPhoto(r.Context(), req.ID, req.Event))
}

func (h *Handler) HandleRecordVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ack(w, r, h.svc.RecordVideo(r.Context(), req.MaxDuration, req.ID, req.Event))
}

func (h *Handler) HandlePickMedia(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ack(w, r, h.svc.PickMedia(r.Context(), req.MediaType, req.Multiple, req.MaxItems, req.ID, req.Event))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) ack(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, capture.ErrDuplicateRequest):
		h.logger.Debug("duplicate camera request",
			"client", middleware.GetClientID(r.Context()),
		)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, capture.ErrClosed):
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
	default:
		// Parameter validation failures are the only other errors
		// Launch returns.
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
