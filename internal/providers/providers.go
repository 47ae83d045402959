package providers

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/skyscope/skyscope/internal/gemini"
	"github.com/skyscope/skyscope/internal/models"
	"github.com/skyscope/skyscope/internal/yolo"
)

// ErrModelUnavailable is returned when a backend cannot be reached or loaded at startup.
var ErrModelUnavailable = errors.New("model unavailable")

// Backend names
const (
	BackendYOLO   = "yolo"
	BackendGemini = "gemini"
)

// Config represents the configuration for a detector backend
type Config struct {
	Backend     string
	Model       string
	Temperature float64
	Prompt      string
	// Confidence and IoU are forwarded to backends that run NMS themselves.
	Confidence float64
	IoU        float64
	URL        string
	APIKey     string
	Labels     []string
}

// Detector defines the interface for an object detection backend.
// Labels is the fixed vocabulary, indexed by RawDetection.ClassIndex.
type Detector interface {
	Labels() []string
	Detect(ctx context.Context, frame models.Frame) ([]models.RawDetection, error)
	Close() error
}

// New builds the configured backend. Any failure is fatal for the caller.
func New(ctx context.Context, config Config) (Detector, error) {
	var (
		d   Detector
		err error
	)
	switch config.Backend {
	case BackendYOLO, "":
		d, err = yolo.New(ctx, yolo.Options{
			URL:        config.URL,
			Confidence: config.Confidence,
			IoU:        config.IoU,
		})
	case BackendGemini:
		d, err = gemini.New(ctx, gemini.Options{
			APIKey:      config.APIKey,
			Model:       config.Model,
			Temperature: config.Temperature,
			Prompt:      config.Prompt,
			Labels:      config.Labels,
		})
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrModelUnavailable, config.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, config.Backend, err)
	}
	if len(d.Labels()) == 0 {
		d.Close()
		return nil, fmt.Errorf("%w: %s reported an empty label vocabulary", ErrModelUnavailable, config.Backend)
	}
	return Traced(d, config.Backend), nil
}

// Traced wraps d so every inference call gets its own span.
func Traced(d Detector, backend string) Detector {
	return &traced{Detector: d, backend: backend}
}

type traced struct {
	Detector
	backend string
}

func (t *traced) Detect(ctx context.Context, frame models.Frame) ([]models.RawDetection, error) {
	ctx, span := otel.Tracer("github.com/skyscope/skyscope/internal/providers").Start(ctx, "detector.Detect")
	defer span.End()
	span.SetAttributes(
		attribute.String("detector.backend", t.backend),
		attribute.Int("image.width", frame.Width()),
		attribute.Int("image.height", frame.Height()),
	)

	raw, err := t.Detector.Detect(ctx, frame)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("detector.candidates", len(raw)))
	return raw, nil
}
