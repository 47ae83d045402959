package sky

import (
	"context"
	"log/slog"
	"time"

	"github.com/skyscope/skyscope/internal/models"
)

// Recorder receives one observation per visibility computation.
type Recorder interface {
	ObserveVisibility(elapsed time.Duration, visible int)
}

// Result is the output of one pipeline run
type Result struct {
	Visible     models.VisibleSet
	Interesting []string
	Classes     []models.ClassToken
	Elapsed     time.Duration
}

// Pipeline runs compute, sort, filter and token mapping in that order.
type Pipeline struct {
	engine   *Engine
	allow    []string
	recorder Recorder
}

// NewPipeline creates a pipeline filtering against allow. recorder may be nil.
func NewPipeline(engine *Engine, allow []string, recorder Recorder) *Pipeline {
	return &Pipeline{
		engine:   engine,
		allow:    append([]string(nil), allow...),
		recorder: recorder,
	}
}

// Engine returns the underlying engine
func (p *Pipeline) Engine() *Engine {
	return p.engine
}

// Run computes the visible set for observer and derives the detector class tokens.
func (p *Pipeline) Run(ctx context.Context, observer models.ObserverPosition) Result {
	start := time.Now()
	visible := p.engine.ComputeVisible(ctx, observer)
	names := p.engine.FilterByInterest(visible, p.allow)
	elapsed := time.Since(start)

	if p.recorder != nil {
		p.recorder.ObserveVisibility(elapsed, len(visible))
	}
	slog.Debug("Computed visible constellations",
		"lat", observer.Latitude,
		"lon", observer.Longitude,
		"at", observer.Timestamp.Format(time.RFC3339),
		"visible", len(visible),
		"interesting", len(names),
		"elapsed", elapsed)

	return Result{
		Visible:     visible,
		Interesting: names,
		Classes:     ToClassTokens(names),
		Elapsed:     elapsed,
	}
}

// Response shapes a result for the API and CLI output.
func (p *Pipeline) Response(observer models.ObserverPosition, result Result) models.VisibleResponse {
	return models.VisibleResponse{
		Observer:       observer,
		Constellations: p.engine.Describe(result.Visible),
		Interesting:    result.Interesting,
		Classes:        result.Classes,
	}
}
