package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/skyscope/skyscope/internal/models"
	"github.com/skyscope/skyscope/internal/sky"
)

func (h *Handler) HandleVisible(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	at := h.now()
	if raw := q.Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, r, "Invalid at: expected RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	observer, err := models.ParseObserverPosition(q.Get("lat"), q.Get("lon"), at)
	if err != nil {
		h.writeError(w, r, err.Error(), statusFor(err))
		return
	}

	result := h.visible.Run(r.Context(), observer)
	h.writeJSON(w, h.visible.Response(observer, result))
}

func (h *Handler) HandleLore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/constellations/"), "/")
	if name == "" {
		h.writeError(w, r, "Constellation not specified", http.StatusBadRequest)
		return
	}

	entry, ok := h.lore.Get(sky.ToClassToken(name))
	if !ok {
		h.writeError(w, r, "Constellation not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, entry)
}
