package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyscope/skyscope/internal/models"
)

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "sky.jpg", header.Filename)
		assert.Equal(t, "jpegdata", string(data))
		assert.Equal(t, []string{"orion", "leo"}, r.MultipartForm.Value["classes"])

		w.Write([]byte(`{"detections":[{"class":"orion","confidence":0.9,"bbox":[1,2,3,4]}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	got, err := c.Detect(context.Background(), "sky.jpg", []byte("jpegdata"), []models.ClassToken{"orion", "leo"})
	require.NoError(t, err)
	assert.Equal(t, []models.Detection{{Class: "orion", Confidence: 0.9, BBox: [4]float64{1, 2, 3, 4}}}, got)
}

func TestDetectAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"inference failed: boom"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Detect(context.Background(), "a.png", []byte("x"), nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "inference failed: boom", apiErr.Message)
}

func TestDetectNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Detect(context.Background(), "a.png", []byte("x"), nil)
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestDetectNullDetections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detections":null}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).Detect(context.Background(), "a.png", []byte("x"), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
