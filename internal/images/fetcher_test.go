package images

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sky.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	data, name, err := NewFetcher().Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "jpeg" || name != "sky.jpg" {
		t.Errorf("Unexpected result %q %q", data, name)
	}
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos/orion.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	f := NewFetcher()
	data, name, err := f.Fetch(context.Background(), srv.URL+"/photos/orion.png?size=large")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "png" || name != "orion.png" {
		t.Errorf("Unexpected result %q %q", data, name)
	}

	if _, _, err := f.Fetch(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestFetchTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.jpg")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 11), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher()
	f.MaxBytes = 10
	if _, _, err := f.Fetch(context.Background(), path); err == nil {
		t.Error("Expected size error")
	}
}

func TestIsURL(t *testing.T) {
	for source, want := range map[string]bool{
		"https://example.com/a.jpg": true,
		"http://example.com/a.jpg":  true,
		"photos/a.jpg":              false,
		"/abs/a.jpg":                false,
	} {
		if got := IsURL(source); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", source, got, want)
		}
	}
}
