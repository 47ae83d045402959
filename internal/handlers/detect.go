package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/skyscope/skyscope/internal/gateway"
	"github.com/skyscope/skyscope/internal/models"
)

// room for the multipart envelope around the image part
const formOverhead = 1 << 20

func (h *Handler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(APIVersionHeader, APIVersion)
	if r.Method != http.MethodPost {
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)
	file, _, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, h.tooLargeMessage(), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, r, gateway.ErrMissingImage.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, r, "Failed to read file contents: "+err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.writeError(w, r, h.tooLargeMessage(), http.StatusRequestEntityTooLarge)
		return
	}

	var requested []models.ClassToken
	if r.MultipartForm != nil {
		for _, c := range r.MultipartForm.Value["classes"] {
			requested = append(requested, models.ClassToken(c))
		}
	}

	detections, err := h.detect.Detect(r.Context(), data, requested)
	if err != nil {
		h.writeError(w, r, err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, models.DetectionResponse{Detections: detections})
}

func (h *Handler) HandleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, models.LabelsResponse{
		Backend: h.detect.Backend(),
		Labels:  h.detect.Labels(),
	})
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File too large (max %dMB)", h.maxUploadBytes>>20)
}

// statusFor maps gateway and geolocation errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrMissingImage),
		errors.Is(err, gateway.ErrInvalidImage),
		errors.Is(err, models.ErrMissingGeolocation),
		errors.Is(err, models.ErrInvalidGeolocation):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, gateway.ErrInference):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
