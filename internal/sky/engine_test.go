package sky

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skyscope/skyscope/internal/astrometry"
	"github.com/skyscope/skyscope/internal/boundaries"
	"github.com/skyscope/skyscope/internal/models"
)

var update = flag.Bool("update", false, "rewrite golden files")

var seoul = models.ObserverPosition{
	Latitude:  37.5665,
	Longitude: 126.9780,
	Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
}

// recordingAstrometry remembers the altitude computed for every sample.
type recordingAstrometry struct {
	inner Astrometry
	mu    sync.Mutex
	alts  map[models.CelestialSample]float64
}

func (r *recordingAstrometry) Apparent(o models.ObserverPosition, s models.CelestialSample) models.ApparentPosition {
	pos := r.inner.Apparent(o, s)
	r.mu.Lock()
	r.alts[s] = pos.AltitudeDegrees
	r.mu.Unlock()
	return pos
}

// fixedAstrometry returns a canned altitude per declination.
type fixedAstrometry map[float64]float64

func (f fixedAstrometry) Apparent(_ models.ObserverPosition, s models.CelestialSample) models.ApparentPosition {
	return models.ApparentPosition{
		RightAscensionHours: s.RightAscensionHours,
		DeclinationDegrees:  s.DeclinationDegrees,
		AltitudeDegrees:     f[s.DeclinationDegrees],
	}
}

// bandLookup names a position by its declination.
type bandLookup struct{}

func (bandLookup) ConstellationAt(pos models.ApparentPosition) models.ConstellationID {
	return models.ConstellationID(fmt.Sprintf("D%+03.0f", pos.DeclinationDegrees))
}

type mapNames map[models.ConstellationID]string

func (m mapNames) Name(id models.ConstellationID) (string, bool) {
	n, ok := m[id]
	return n, ok
}

func (m mapNames) IDs() []models.ConstellationID {
	set := models.VisibleSet{}
	for id := range m {
		set.Add(id)
	}
	return set.IDs()
}

func newRealEngine(t *testing.T, astro Astrometry) (*Engine, *boundaries.Names) {
	t.Helper()
	table, err := boundaries.LoadTable("")
	if err != nil {
		t.Fatalf("Failed to load boundary table: %v", err)
	}
	names, err := boundaries.LoadNames("")
	if err != nil {
		t.Fatalf("Failed to load names: %v", err)
	}
	if astro == nil {
		astro = astrometry.New()
	}
	return NewEngine(astro, table, names, DefaultGrid), names
}

func TestGridSamples(t *testing.T) {
	samples := DefaultGrid.Samples()
	if len(samples) != 456 {
		t.Fatalf("Expected 456 samples, got %d", len(samples))
	}
	first, last := samples[0], samples[len(samples)-1]
	if first.RightAscensionHours != 0 || first.DeclinationDegrees != -90 {
		t.Errorf("Expected first sample (0h, -90), got %+v", first)
	}
	if last.RightAscensionHours != 23 || last.DeclinationDegrees != 90 {
		t.Errorf("Expected last sample (23h, +90), got %+v", last)
	}
}

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name    string
		grid    Grid
		wantErr bool
	}{
		{"default", DefaultGrid, false},
		{"fine", Grid{RAStepHours: 0.5, DecStepDegrees: 5}, false},
		{"zero ra", Grid{RAStepHours: 0, DecStepDegrees: 10}, true},
		{"uneven ra", Grid{RAStepHours: 5, DecStepDegrees: 10}, true},
		{"uneven dec", Grid{RAStepHours: 1, DecStepDegrees: 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestComputeVisibleHorizonIsStrict(t *testing.T) {
	astro := fixedAstrometry{-90: -10, 0: 0, 10: 1e-9, 20: 45}
	engine := NewEngine(astro, bandLookup{}, mapNames{}, DefaultGrid)

	visible := engine.ComputeVisible(context.Background(), seoul)

	if visible.Has("D+00") {
		t.Error("Sample exactly on the horizon must not count")
	}
	if visible.Has("D-90") {
		t.Error("Sample below the horizon must not count")
	}
	for _, id := range []models.ConstellationID{"D+10", "D+20"} {
		if !visible.Has(id) {
			t.Errorf("Expected %s to be visible", id)
		}
	}
}

func TestComputeVisibleSubsetAndIdempotent(t *testing.T) {
	engine, _ := newRealEngine(t, nil)

	vocab := map[models.ConstellationID]bool{}
	for _, id := range engine.Vocabulary() {
		vocab[id] = true
	}

	first := engine.ComputeVisible(context.Background(), seoul)
	second := engine.ComputeVisible(context.Background(), seoul)

	if len(first) == 0 {
		t.Fatal("Expected some constellations to be visible")
	}
	for id := range first {
		if !vocab[id] {
			t.Errorf("%s is not in the vocabulary", id)
		}
	}
	if fmt.Sprint(first.IDs()) != fmt.Sprint(second.IDs()) {
		t.Errorf("Repeated computation differs:\n%v\n%v", first.IDs(), second.IDs())
	}
}

func TestComputeVisibleNorthPole(t *testing.T) {
	rec := &recordingAstrometry{inner: astrometry.New(), alts: map[models.CelestialSample]float64{}}
	engine, _ := newRealEngine(t, rec)

	pole := models.ObserverPosition{Latitude: 90, Longitude: 0, Timestamp: seoul.Timestamp}
	engine.ComputeVisible(context.Background(), pole)

	for s, alt := range rec.alts {
		if s.DeclinationDegrees >= 10 && alt <= 0 {
			t.Errorf("Sample (%vh, %v) should be above the horizon at the pole, altitude %v",
				s.RightAscensionHours, s.DeclinationDegrees, alt)
		}
		if s.DeclinationDegrees <= -10 && alt > 0 {
			t.Errorf("Sample (%vh, %v) should be below the horizon at the pole, altitude %v",
				s.RightAscensionHours, s.DeclinationDegrees, alt)
		}
	}
}

func TestComputeVisibleEquatorSeesHalfTheSky(t *testing.T) {
	rec := &recordingAstrometry{inner: astrometry.New(), alts: map[models.CelestialSample]float64{}}
	engine, _ := newRealEngine(t, rec)

	equator := models.ObserverPosition{Latitude: 0, Longitude: 0, Timestamp: seoul.Timestamp}
	engine.ComputeVisible(context.Background(), equator)

	above := 0
	for _, alt := range rec.alts {
		if alt > 0 {
			above++
		}
	}
	frac := float64(above) / float64(len(rec.alts))
	if frac < 0.4 || frac > 0.6 {
		t.Errorf("Expected roughly half the grid above the horizon, got %.3f", frac)
	}
}

func TestComputeVisibleSeoulGolden(t *testing.T) {
	engine, names := newRealEngine(t, nil)

	visible := engine.ComputeVisible(context.Background(), seoul)

	var b strings.Builder
	for _, id := range visible.IDs() {
		name, _ := names.Name(id)
		fmt.Fprintf(&b, "%s %s\n", id, name)
	}

	golden := filepath.Join("testdata", "seoul.golden")
	if *update {
		if err := os.WriteFile(golden, []byte(b.String()), 0644); err != nil {
			t.Fatalf("Failed to update golden file: %v", err)
		}
	}
	want, err := os.ReadFile(golden)
	if err != nil {
		t.Fatalf("Failed to read golden file: %v", err)
	}
	if b.String() != string(want) {
		t.Errorf("Visible set differs from %s\ngot:\n%s\nwant:\n%s", golden, b.String(), want)
	}
}

func TestFilterByInterest(t *testing.T) {
	names := mapNames{"ORI": "Orion", "UMA": "Ursa Major", "AND": "Andromeda", "LEO": "Leo"}
	engine := NewEngine(fixedAstrometry{}, bandLookup{}, names, DefaultGrid)

	visible := models.VisibleSet{}
	for _, id := range []models.ConstellationID{"UMA", "ORI", "AND", "XXX"} {
		visible.Add(id)
	}

	tests := []struct {
		name  string
		allow []string
		want  []string
	}{
		{"full list sorted by name", FullInterest, []string{"Orion", "Ursa Major"}},
		{"empty allow list", nil, []string{}},
		{"case sensitive", []string{"orion", "Andromeda"}, []string{"Andromeda"}},
		{"not visible is dropped", []string{"Leo"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.FilterByInterest(visible, tt.allow)
			if got == nil {
				t.Fatal("Expected non-nil slice")
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassTokens(t *testing.T) {
	shape := regexp.MustCompile(`^[a-z]+(_[a-z]+)*$`)

	names, err := boundaries.LoadNames("")
	if err != nil {
		t.Fatalf("Failed to load names: %v", err)
	}

	all := append([]string{}, FullInterest...)
	for _, id := range names.IDs() {
		n, _ := names.Name(id)
		all = append(all, n)
	}

	for _, name := range all {
		tok := ToClassToken(name)
		if !shape.MatchString(string(tok)) {
			t.Errorf("Token %q for %q has the wrong shape", tok, name)
		}
		if again := ToClassToken(string(tok)); again != tok {
			t.Errorf("Token is not idempotent: %q -> %q", tok, again)
		}
	}

	got := ToClassTokens([]string{"Canis Major", "Orion", "Ursa Major"})
	want := []models.ClassToken{"canis_major", "orion", "ursa_major"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestInterestList(t *testing.T) {
	tests := []struct {
		name    string
		preset  string
		names   []string
		want    int
		wantErr bool
	}{
		{"default is full", "", nil, 15, false},
		{"full", "full", nil, 15, false},
		{"compact", "Compact", nil, 10, false},
		{"explicit wins", "compact", []string{"Orion", " ", "Leo"}, 2, false},
		{"unknown", "tiny", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InterestList(tt.preset, tt.names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d names, got %d", tt.want, len(got))
			}
		})
	}
}

type countingRecorder struct {
	calls   int
	visible int
}

func (c *countingRecorder) ObserveVisibility(_ time.Duration, visible int) {
	c.calls++
	c.visible = visible
}

func TestPipelineSeoul(t *testing.T) {
	engine, _ := newRealEngine(t, nil)
	rec := &countingRecorder{}
	pipeline := NewPipeline(engine, FullInterest, rec)

	result := pipeline.Run(context.Background(), seoul)

	wantNames := []string{"Canis Major", "Canis Minor", "Cassiopeia", "Cygnus", "Gemini", "Leo", "Orion", "Taurus", "Ursa Major"}
	if fmt.Sprint(result.Interesting) != fmt.Sprint(wantNames) {
		t.Errorf("Expected %v, got %v", wantNames, result.Interesting)
	}
	if len(result.Classes) != len(result.Interesting) {
		t.Fatalf("Expected one token per name, got %d tokens for %d names", len(result.Classes), len(result.Interesting))
	}
	if result.Classes[0] != "canis_major" {
		t.Errorf("Expected first token canis_major, got %s", result.Classes[0])
	}
	if rec.calls != 1 || rec.visible != len(result.Visible) {
		t.Errorf("Expected one recorded run with %d visible, got %d runs with %d", len(result.Visible), rec.calls, rec.visible)
	}

	resp := pipeline.Response(seoul, result)
	if len(resp.Constellations) != len(result.Visible) {
		t.Errorf("Expected %d described constellations, got %d", len(result.Visible), len(resp.Constellations))
	}
}
