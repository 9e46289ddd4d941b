package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lumo-cam/lumo/internal/media"
)

// HandleMedia serves a materialized cache file to the embedding
// webview. Paths are confined to the cache directory.
func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}

	full := filepath.Join(h.cacheDir, filepath.FromSlash(rel))
	clean := filepath.Clean(full)
	if clean != full || !strings.HasPrefix(clean, filepath.Clean(h.cacheDir)+string(filepath.Separator)) {
		http.Error(w, "forbidden path", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", media.MimeByExtension(filepath.Ext(clean)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, clean)
}
