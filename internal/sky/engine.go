// Package sky decides which constellations are above an observer's horizon and
// turns them into detector class tokens.
package sky

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skyscope/skyscope/internal/models"
)

var tracer = otel.Tracer("github.com/skyscope/skyscope/internal/sky")

// Astrometry reduces a fixed sample to its apparent position for an observer.
type Astrometry interface {
	Apparent(observer models.ObserverPosition, sample models.CelestialSample) models.ApparentPosition
}

// BoundaryLookup names the constellation containing an apparent position.
type BoundaryLookup interface {
	ConstellationAt(pos models.ApparentPosition) models.ConstellationID
}

// NameMap resolves IAU abbreviations to full names.
type NameMap interface {
	Name(id models.ConstellationID) (string, bool)
	IDs() []models.ConstellationID
}

// Grid describes the fixed J2000 sampling of the sky.
type Grid struct {
	RAStepHours    float64 `mapstructure:"ra_step_hours"`
	DecStepDegrees float64 `mapstructure:"dec_step_degrees"`
}

// DefaultGrid is 24 RA hours by 19 declinations, 456 samples.
var DefaultGrid = Grid{RAStepHours: 1, DecStepDegrees: 10}

// Validate checks that the steps tile the sphere evenly.
func (g Grid) Validate() error {
	if g.RAStepHours <= 0 || g.RAStepHours > 24 {
		return fmt.Errorf("ra step %v must be in (0, 24]", g.RAStepHours)
	}
	if g.DecStepDegrees <= 0 || g.DecStepDegrees > 180 {
		return fmt.Errorf("dec step %v must be in (0, 180]", g.DecStepDegrees)
	}
	if n := 24 / g.RAStepHours; n != float64(int(n)) {
		return fmt.Errorf("ra step %v does not divide 24h", g.RAStepHours)
	}
	if n := 180 / g.DecStepDegrees; n != float64(int(n)) {
		return fmt.Errorf("dec step %v does not divide 180 degrees", g.DecStepDegrees)
	}
	return nil
}

// Samples enumerates the grid, RA-major, declination from -90 to +90 inclusive.
func (g Grid) Samples() []models.CelestialSample {
	raCount := int(24/g.RAStepHours + 0.5)
	decCount := int(180/g.DecStepDegrees+0.5) + 1

	samples := make([]models.CelestialSample, 0, raCount*decCount)
	for i := 0; i < raCount; i++ {
		for j := 0; j < decCount; j++ {
			samples = append(samples, models.CelestialSample{
				RightAscensionHours: float64(i) * g.RAStepHours,
				DeclinationDegrees:  -90 + float64(j)*g.DecStepDegrees,
			})
		}
	}
	return samples
}

// Engine evaluates the sample grid for an observer.
type Engine struct {
	astrometry Astrometry
	boundaries BoundaryLookup
	names      NameMap
	samples    []models.CelestialSample
}

// NewEngine builds an engine over grid. The grid must already be valid.
func NewEngine(astrometry Astrometry, boundaries BoundaryLookup, names NameMap, grid Grid) *Engine {
	return &Engine{
		astrometry: astrometry,
		boundaries: boundaries,
		names:      names,
		samples:    grid.Samples(),
	}
}

// Vocabulary returns every constellation the name map knows about
func (e *Engine) Vocabulary() []models.ConstellationID {
	return e.names.IDs()
}

// SampleCount returns how many grid points each computation evaluates
func (e *Engine) SampleCount() int {
	return len(e.samples)
}

// ComputeVisible returns every constellation with at least one sample strictly
// above the horizon. Samples at exactly zero altitude do not count.
func (e *Engine) ComputeVisible(ctx context.Context, observer models.ObserverPosition) models.VisibleSet {
	_, span := tracer.Start(ctx, "sky.ComputeVisible")
	defer span.End()

	visible := models.VisibleSet{}
	above := 0
	for _, sample := range e.samples {
		pos := e.astrometry.Apparent(observer, sample)
		if pos.AltitudeDegrees <= 0 {
			continue
		}
		above++
		visible.Add(e.boundaries.ConstellationAt(pos))
	}

	span.SetAttributes(
		attribute.Float64("observer.latitude", observer.Latitude),
		attribute.Float64("observer.longitude", observer.Longitude),
		attribute.Int("sky.samples_above_horizon", above),
		attribute.Int("sky.visible_count", len(visible)),
	)
	return visible
}

// VisibleNames resolves the set to full names in ascending order.
// IDs with no known name are skipped.
func (e *Engine) VisibleNames(visible models.VisibleSet) []string {
	names := make([]string, 0, len(visible))
	for id := range visible {
		if name, ok := e.names.Name(id); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Describe lists the visible constellations with their names and tokens, sorted by name.
func (e *Engine) Describe(visible models.VisibleSet) []models.VisibleConstellation {
	out := make([]models.VisibleConstellation, 0, len(visible))
	for _, id := range visible.IDs() {
		name, ok := e.names.Name(id)
		if !ok {
			continue
		}
		out = append(out, models.VisibleConstellation{ID: id, Name: name, Token: ToClassToken(name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FilterByInterest keeps the visible constellations named in allow, sorted by name.
// Matching is exact and case sensitive; allow entries that are not visible are dropped.
func (e *Engine) FilterByInterest(visible models.VisibleSet, allow []string) []string {
	wanted := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		wanted[name] = struct{}{}
	}

	var out []string
	for _, name := range e.VisibleNames(visible) {
		if _, ok := wanted[name]; ok {
			out = append(out, name)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
