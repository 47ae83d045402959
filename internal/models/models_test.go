package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseObserverPosition(t *testing.T) {
	ts := time.Date(2024, 1, 15, 21, 0, 0, 0, time.FixedZone("KST", 9*3600))

	tests := []struct {
		name    string
		lat     string
		lon     string
		wantErr error
	}{
		{name: "seoul", lat: "37.5665", lon: "126.9780"},
		{name: "south pole", lat: "-90", lon: "0"},
		{name: "date line", lat: "0", lon: "-180"},
		{name: "missing latitude", lat: "", lon: "126.9780", wantErr: ErrMissingGeolocation},
		{name: "missing longitude", lat: "37.5", lon: "  ", wantErr: ErrMissingGeolocation},
		{name: "latitude out of range", lat: "91", lon: "0", wantErr: ErrInvalidGeolocation},
		{name: "longitude out of range", lat: "0", lon: "180.5", wantErr: ErrInvalidGeolocation},
		{name: "not a number", lat: "north", lon: "0", wantErr: ErrInvalidGeolocation},
		{name: "NaN", lat: "NaN", lon: "0", wantErr: ErrInvalidGeolocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := ParseObserverPosition(tt.lat, tt.lon, ts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if pos.Timestamp.Location() != time.UTC {
				t.Errorf("Expected UTC timestamp, got %v", pos.Timestamp.Location())
			}
			if !pos.Timestamp.Equal(ts) {
				t.Errorf("Expected instant %v, got %v", ts, pos.Timestamp)
			}
		})
	}
}

func TestVisibleSetIDsSorted(t *testing.T) {
	set := VisibleSet{}
	for _, id := range []ConstellationID{"UMA", "ORI", "CAS", "ORI"} {
		set.Add(id)
	}

	ids := set.IDs()
	want := []ConstellationID{"CAS", "ORI", "UMA"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, ids[i])
		}
	}
	if !set.Has("ORI") || set.Has("LEO") {
		t.Errorf("Has() disagrees with contents: %v", ids)
	}
}
