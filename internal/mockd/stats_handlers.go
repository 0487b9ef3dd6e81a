package mockd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type statsHandler struct {
	db *DB
}

func (h *statsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *statsHandler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.UserStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
