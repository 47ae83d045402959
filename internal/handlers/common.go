package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/skyscope/skyscope/internal/lore"
	"github.com/skyscope/skyscope/internal/models"
	"github.com/skyscope/skyscope/internal/sky"
)

// APIVersionHeader is set on every detection response
const (
	APIVersionHeader = "X-Skyscope-API-Version"
	APIVersion       = "1"
)

// DetectService runs uploads through the detection gateway
type DetectService interface {
	Detect(ctx context.Context, data []byte, requested []models.ClassToken) ([]models.Detection, error)
	Labels() []string
	Backend() string
}

// VisibleService computes the visible constellations for an observer
type VisibleService interface {
	Run(ctx context.Context, observer models.ObserverPosition) sky.Result
	Response(observer models.ObserverPosition, result sky.Result) models.VisibleResponse
}

// LoreService looks up constellation background notes
type LoreService interface {
	Get(token models.ClassToken) (lore.Entry, bool)
}

type Handler struct {
	detect         DetectService
	visible        VisibleService
	lore           LoreService
	maxUploadBytes int64
	now            func() time.Time
}

func New(detect DetectService, visible VisibleService, lore LoreService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{
		detect:         detect,
		visible:        visible,
		lore:           lore,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Routes wires every API endpoint behind the instrumentation middleware.
func (h *Handler) Routes(rec HTTPRecorder) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/detect", Instrument("/detect", rec, http.HandlerFunc(h.HandleDetect)))
	mux.Handle("/v1/detect", Instrument("/v1/detect", rec, http.HandlerFunc(h.HandleDetect)))
	mux.Handle("/labels", Instrument("/labels", rec, http.HandlerFunc(h.HandleLabels)))
	mux.Handle("/api/visible", Instrument("/api/visible", rec, http.HandlerFunc(h.HandleVisible)))
	mux.Handle("/api/constellations/", Instrument("/api/constellations", rec, http.HandlerFunc(h.HandleLore)))
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), message, "status", code, "path", r.URL.Path)
	} else {
		slog.WarnContext(r.Context(), message, "status", code, "path", r.URL.Path)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Error: message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}
