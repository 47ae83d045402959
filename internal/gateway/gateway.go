// Package gateway runs uploaded images through a detector and keeps only the
// classes the caller asked for.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"github.com/skyscope/skyscope/internal/models"
	"github.com/skyscope/skyscope/internal/providers"
)

// DefaultThreshold is the minimum confidence a detection needs to be returned.
const DefaultThreshold = 0.35

// images larger than this are rejected before the pixel data is decoded
const maxPixels = 64 << 20

// Outcomes reported to the Recorder
const (
	OutcomeOK           = "ok"
	OutcomeMissingImage = "missing_image"
	OutcomeInvalidImage = "invalid_image"
	OutcomeTimeout      = "timeout"
	OutcomeInference    = "inference_error"
	OutcomeCanceled     = "canceled"
)

var tracer = otel.Tracer("github.com/skyscope/skyscope/internal/gateway")

// Recorder receives per-request measurements. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveDetect(outcome string, elapsed time.Duration, detections []models.Detection)
	ObserveInference(elapsed time.Duration)
}

// Config holds gateway tuning
type Config struct {
	Backend       string
	Threshold     float64
	Timeout       time.Duration
	MaxConcurrent int
}

// Gateway is safe for concurrent use. Inference calls are bounded by a semaphore.
type Gateway struct {
	detector  providers.Detector
	backend   string
	labels    []string
	index     map[models.ClassToken]int
	threshold float64
	timeout   time.Duration
	sem       *semaphore.Weighted
	recorder  Recorder
}

// New indexes the detector's vocabulary and returns a gateway. recorder may be nil.
func New(detector providers.Detector, config Config, recorder Recorder) *Gateway {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	labels := append([]string(nil), detector.Labels()...)
	index := make(map[models.ClassToken]int, len(labels))
	for i, label := range labels {
		if _, dup := index[models.ClassToken(label)]; !dup {
			index[models.ClassToken(label)] = i
		}
	}
	return &Gateway{
		detector:  detector,
		backend:   config.Backend,
		labels:    labels,
		index:     index,
		threshold: config.Threshold,
		timeout:   config.Timeout,
		sem:       semaphore.NewWeighted(int64(config.MaxConcurrent)),
		recorder:  recorder,
	}
}

// Labels returns the detector vocabulary in class-index order
func (g *Gateway) Labels() []string {
	return g.labels
}

// Backend returns the configured backend name
func (g *Gateway) Backend() string {
	return g.backend
}

// ResolveIndices maps requested tokens to label indices. Unknown tokens are ignored.
func (g *Gateway) ResolveIndices(requested []models.ClassToken) map[int]struct{} {
	indices := make(map[int]struct{}, len(requested))
	for _, tok := range requested {
		if i, ok := g.index[tok]; ok {
			indices[i] = struct{}{}
		}
	}
	return indices
}

// Detect decodes data, runs one inference pass and returns the detections for
// the requested classes. The configured timeout covers decode and inference.
func (g *Gateway) Detect(ctx context.Context, data []byte, requested []models.ClassToken) ([]models.Detection, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "gateway.Detect")
	defer span.End()
	span.SetAttributes(
		attribute.Int("image.bytes", len(data)),
		attribute.Int("detect.requested", len(requested)),
	)

	detections, err := g.detect(ctx, data, requested)
	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("detect.returned", len(detections)))
	}
	if g.recorder != nil {
		g.recorder.ObserveDetect(outcome, time.Since(start), detections)
	}
	return detections, err
}

func (g *Gateway) detect(ctx context.Context, data []byte, requested []models.ClassToken) ([]models.Detection, error) {
	if len(data) == 0 {
		return nil, ErrMissingImage
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	frame, err := decode(ctx, data)
	if err != nil {
		return nil, deadlineOr(ctx, err)
	}

	indices := g.ResolveIndices(requested)

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, deadlineOr(ctx, err)
	}
	inferStart := time.Now()
	raw, err := g.detector.Detect(ctx, frame)
	g.sem.Release(1)
	if g.recorder != nil {
		g.recorder.ObserveInference(time.Since(inferStart))
	}
	if err != nil {
		if ctxErr := deadlineOr(ctx, nil); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}

	detections := FilterDetections(raw, g.labels, indices, g.threshold)
	slog.Debug("Detection complete",
		"backend", g.backend,
		"candidates", len(raw),
		"requested", len(requested),
		"returned", len(detections))
	return detections, nil
}

// deadlineOr maps an expired deadline to ErrTimeout and a cancelled context to
// its error; otherwise err is returned unchanged.
func deadlineOr(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMissingImage):
		return OutcomeMissingImage
	case errors.Is(err, ErrInvalidImage):
		return OutcomeInvalidImage
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrInference):
		return OutcomeInference
	}
	return OutcomeCanceled
}

func decode(ctx context.Context, data []byte) (models.Frame, error) {
	type result struct {
		frame models.Frame
		err   error
	}
	done := make(chan result, 1)

	go func() {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrInvalidImage, err)}
			return
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
			done <- result{err: fmt.Errorf("%w: unsupported dimensions %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)}
			return
		}
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrInvalidImage, err)}
			return
		}
		done <- result{frame: models.Frame{Image: img, Data: data, Format: format}}
	}()

	select {
	case <-ctx.Done():
		return models.Frame{}, ctx.Err()
	case r := <-done:
		return r.frame, r.err
	}
}
