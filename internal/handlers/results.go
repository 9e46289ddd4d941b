package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandleResult replays a retained result by correlation token, for
// clients whose event channel was down when the event fired.
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	res, ok := h.svc.Result(token)
	if !ok {
		http.Error(w, "no result for token", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.logger.Error("result encode failed", "err", err)
	}
}
