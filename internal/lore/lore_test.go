package lore

import (
	"testing"

	"github.com/skyscope/skyscope/internal/models"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load embedded lore: %v", err)
	}

	if got := len(c.Tokens()); got != 15 {
		t.Errorf("Expected 15 entries, got %d", got)
	}

	e, ok := c.Get("canis_major")
	if !ok {
		t.Fatal("Expected lore for canis_major")
	}
	if e.BrightestStar != "Sirius" {
		t.Errorf("Expected Sirius, got %s", e.BrightestStar)
	}
	if e.Story == "" {
		t.Error("Expected a story")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "::: nope"},
		{"missing token", "- name: Orion\n"},
		{"duplicate", "- token: orion\n  name: Orion\n- token: orion\n  name: Orion\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestGetUnknown(t *testing.T) {
	c, err := Parse([]byte("- token: lyra\n  name: Lyra\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := c.Get(models.ClassToken("andromeda")); ok {
		t.Error("Expected no lore for andromeda")
	}
}
