// Package app assembles the long-lived, read-only components shared by the
// server and CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/skyscope/skyscope/internal/astrometry"
	"github.com/skyscope/skyscope/internal/boundaries"
	"github.com/skyscope/skyscope/internal/config"
	"github.com/skyscope/skyscope/internal/gateway"
	"github.com/skyscope/skyscope/internal/handlers"
	"github.com/skyscope/skyscope/internal/lore"
	"github.com/skyscope/skyscope/internal/observability"
	"github.com/skyscope/skyscope/internal/providers"
	"github.com/skyscope/skyscope/internal/sky"
)

type App struct {
	Config   *config.Config
	Pipeline *sky.Pipeline
	Gateway  *gateway.Gateway
	Lore     *lore.Catalog
	Metrics  *observability.Collector
	Registry *prometheus.Registry

	detector        providers.Detector
	shutdownTracing func(context.Context) error
}

// NewPipeline loads the boundary and name tables and returns a visibility
// pipeline. recorder may be nil.
func NewPipeline(cfg *config.Config, recorder sky.Recorder) (*sky.Pipeline, error) {
	table, err := boundaries.LoadTable(cfg.Sky.BoundariesPath)
	if err != nil {
		return nil, err
	}
	names, err := boundaries.LoadNames(cfg.Sky.NamesPath)
	if err != nil {
		return nil, err
	}
	if err := names.Check(table); err != nil {
		return nil, err
	}

	engine := sky.NewEngine(astrometry.New(), table, names, cfg.Sky.Grid)
	slog.Debug("Visibility engine ready",
		"segments", table.Len(),
		"constellations", len(names.IDs()),
		"samples", engine.SampleCount())
	return sky.NewPipeline(engine, cfg.InterestList(), recorder), nil
}

// New builds every component the server needs. The detector backend is
// contacted here, so an unreachable model fails startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	shutdown, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise tracing: %w", err)
	}
	a := &App{Config: cfg, shutdownTracing: shutdown}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.Metrics, err = observability.NewCollector(a.Registry); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if a.Pipeline, err = NewPipeline(cfg, a.Metrics); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if a.Lore, err = lore.Load(cfg.Lore.Path); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.detector, err = providers.New(ctx, providers.Config{
		Backend:     cfg.Detect.Backend,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
		Confidence:  cfg.Detect.Threshold,
		IoU:         cfg.Detect.IoU,
		URL:         cfg.YOLO.URL,
		APIKey:      cfg.Gemini.APIKey,
		Labels:      cfg.GeminiLabels(),
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Gateway = gateway.New(a.detector, gateway.Config{
		Backend:       cfg.Detect.Backend,
		Threshold:     cfg.Detect.Threshold,
		Timeout:       cfg.Detect.Timeout,
		MaxConcurrent: cfg.Detect.MaxConcurrentInference,
	}, a.Metrics)

	slog.Info("Detector ready", "backend", cfg.Detect.Backend, "labels", len(a.Gateway.Labels()))
	return a, nil
}

// Handler returns the API handler bound to this app's components.
func (a *App) Handler() *handlers.Handler {
	return handlers.New(a.Gateway, a.Pipeline, a.Lore, a.Config.MaxUploadBytes())
}

// Close releases the detector and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close detector: %w", err))
		}
		a.detector = nil
	}
	observability.ShutdownWithTimeout(ctx, a.shutdownTracing)
	a.shutdownTracing = nil
	return errors.Join(errs...)
}
