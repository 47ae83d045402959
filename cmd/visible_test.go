package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/skyscope/skyscope/internal/models"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVisibleJSON(t *testing.T) {
	out, err := runRoot(t, "visible", "--lat", "37.5665", "--lon", "126.978", "--at", "2024-01-15T21:00:00+09:00", "--format", "json")
	if err != nil {
		t.Fatalf("visible failed: %v", err)
	}

	var resp models.VisibleResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out, err)
	}
	want := []string{"Canis Major", "Canis Minor", "Cassiopeia", "Cygnus", "Gemini", "Leo", "Orion", "Taurus", "Ursa Major"}
	if strings.Join(resp.Interesting, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, resp.Interesting)
	}
	if len(resp.Classes) != len(want) || resp.Classes[0] != "canis_major" {
		t.Errorf("Unexpected classes %v", resp.Classes)
	}
}

func TestVisibleText(t *testing.T) {
	out, err := runRoot(t, "visible", "--lat", "37.5665", "--lon", "126.978", "--at", "2024-01-15T12:00:00Z")
	if err != nil {
		t.Fatalf("visible failed: %v", err)
	}
	for _, want := range []string{"Visible constellations (42)", "ORI  Orion", "Classes:     canis_major"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestVisibleMissingGeolocation(t *testing.T) {
	_, err := runRoot(t, "visible", "--lat", "37.5")
	if !errors.Is(err, models.ErrMissingGeolocation) {
		t.Errorf("Expected ErrMissingGeolocation, got %v", err)
	}
}
