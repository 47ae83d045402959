package astrometry

import (
	"math"
	"testing"
	"time"

	"github.com/skyscope/skyscope/internal/models"
)

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"J2000 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), J2000},
		{"seoul evening in UTC", time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), 2460325.0},
		{"zone is ignored", time.Date(2024, 1, 15, 21, 0, 0, 0, time.FixedZone("KST", 9*3600)), 2460325.0},
		{"half a second", time.Date(2000, 1, 1, 12, 0, 0, 500_000_000, time.UTC), J2000 + 0.5/86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.at)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %.9f, got %.9f", tt.want, got)
			}
		})
	}
}

func TestPrecessToB1875(t *testing.T) {
	tests := []struct {
		name           string
		ra, dec        float64
		wantRA, wantDe float64
	}{
		{"vernal equinox", 0, 0, 23.893266993362264, -0.6960280469855075},
		{"orion belt", 5.5, -5.0, 5.397329232934769, -5.100128762360412},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra, dec := Precess(tt.ra, tt.dec, J2000, B1875)
			if math.Abs(ra-tt.wantRA) > 1e-9 || math.Abs(dec-tt.wantDe) > 1e-9 {
				t.Errorf("Expected (%.9f, %.9f), got (%.9f, %.9f)", tt.wantRA, tt.wantDe, ra, dec)
			}
		})
	}
}

func TestPrecessRoundTrip(t *testing.T) {
	date := JulianDate(time.Date(2031, 7, 4, 3, 0, 0, 0, time.UTC))
	for ra := 0.0; ra < 24; ra += 2.5 {
		for dec := -80.0; dec <= 80; dec += 20 {
			r1, d1 := Precess(ra, dec, J2000, date)
			r2, d2 := Precess(r1, d1, date, B1875)
			r3, d3 := Precess(r2, d2, B1875, J2000)
			dra := math.Abs(r3 - ra)
			if dra > 12 {
				dra = 24 - dra
			}
			if dra > 1e-9 || math.Abs(d3-dec) > 1e-9 {
				t.Errorf("Round trip of (%v, %v) drifted to (%v, %v)", ra, dec, r3, d3)
			}
		}
	}
}

func TestApparentAltitude(t *testing.T) {
	p := New()
	seoul := models.ObserverPosition{
		Latitude:  37.5665,
		Longitude: 126.9780,
		Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	pos := p.Apparent(seoul, models.CelestialSample{RightAscensionHours: 6, DeclinationDegrees: 20})

	if math.Abs(pos.RightAscensionHours-6.023781181520103) > 1e-9 {
		t.Errorf("Expected RA of date 6.0238h, got %v", pos.RightAscensionHours)
	}
	if math.Abs(pos.DeclinationDegrees-19.99958341825775) > 1e-9 {
		t.Errorf("Expected Dec of date 19.9996, got %v", pos.DeclinationDegrees)
	}
	if math.Abs(pos.AltitudeDegrees-59.36044368967442) > 1e-4 {
		t.Errorf("Expected altitude 59.3604, got %v", pos.AltitudeDegrees)
	}
	if pos.JulianDate != 2460325.0 {
		t.Errorf("Expected JD 2460325.0, got %v", pos.JulianDate)
	}
}

func TestApparentCelestialPole(t *testing.T) {
	p := New()
	obs := models.ObserverPosition{
		Latitude:  52.0,
		Longitude: -1.0,
		Timestamp: time.Date(2010, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	// the pole of date is within a few arcminutes of the J2000 pole
	pos := p.Apparent(obs, models.CelestialSample{RightAscensionHours: 0, DeclinationDegrees: 90})
	if math.Abs(pos.AltitudeDegrees-obs.Latitude) > 0.1 {
		t.Errorf("Expected pole altitude near %v, got %v", obs.Latitude, pos.AltitudeDegrees)
	}
}

func TestApparentIsMeanPlaceOfDate(t *testing.T) {
	p := New()
	obs := models.ObserverPosition{
		Latitude:  -33.87,
		Longitude: 151.21,
		Timestamp: time.Date(2030, 9, 1, 18, 30, 0, 0, time.UTC),
	}

	// precession is the only correction, so RA/Dec match Precess exactly
	for _, sample := range []models.CelestialSample{
		{RightAscensionHours: 0, DeclinationDegrees: 0},
		{RightAscensionHours: 13.5, DeclinationDegrees: -60},
		{RightAscensionHours: 21, DeclinationDegrees: 45},
	} {
		pos := p.Apparent(obs, sample)
		ra, dec := Precess(sample.RightAscensionHours, sample.DeclinationDegrees, J2000, pos.JulianDate)
		if pos.RightAscensionHours != ra || pos.DeclinationDegrees != dec {
			t.Errorf("Expected mean place %v/%v for %+v, got %v/%v",
				ra, dec, sample, pos.RightAscensionHours, pos.DeclinationDegrees)
		}
	}
}
