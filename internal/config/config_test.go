package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad_DefaultValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "yolo", cfg.Detect.Backend)
	assert.Equal(t, 0.35, cfg.Detect.Threshold)
	assert.Equal(t, 0.45, cfg.Detect.IoU)
	assert.Equal(t, 30*time.Second, cfg.Detect.Timeout)
	assert.Equal(t, 10, cfg.Detect.MaxUploadMB)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 1, cfg.Detect.MaxConcurrentInference)
	assert.Equal(t, "http://localhost:8000", cfg.YOLO.URL)
	assert.Equal(t, "full", cfg.Sky.Interest.Preset)
	assert.Equal(t, 1.0, cfg.Sky.Grid.RAStepHours)
	assert.Equal(t, 10.0, cfg.Sky.Grid.DecStepDegrees)
	assert.Len(t, cfg.InterestList(), 15)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "skyscope", cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Equal(t, "http://localhost:8888", cfg.Client.ServerURL)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: "9000"
detect:
  backend: gemini
  threshold: 0.5
  timeout: 5s
gemini:
  model: gemini-1.5-pro
  labels: [orion, leo]
sky:
  interest:
    preset: compact
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.Detect.Backend)
	assert.Equal(t, 0.5, cfg.Detect.Threshold)
	assert.Equal(t, 5*time.Second, cfg.Detect.Timeout)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, []string{"orion", "leo"}, cfg.GeminiLabels())
	assert.Len(t, cfg.InterestList(), 10)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skyscope.yaml"), []byte("detect:\n  max_concurrent_inference: 4\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Detect.MaxConcurrentInference)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SKYSCOPE_DETECT_THRESHOLD", "0.6")
	t.Setenv("SKYSCOPE_YOLO_URL", "http://sidecar:8000")
	t.Setenv("SKYSCOPE_SKY_INTEREST_NAMES", "Orion,Leo")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Detect.Threshold)
	assert.Equal(t, "http://sidecar:8000", cfg.YOLO.URL)
	assert.Equal(t, []string{"Orion", "Leo"}, cfg.InterestList())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/path/skyscope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad backend", func(c *Config) { c.Detect.Backend = "onnx" }, "detect.backend"},
		{"threshold too high", func(c *Config) { c.Detect.Threshold = 1.5 }, "detect.threshold"},
		{"no timeout", func(c *Config) { c.Detect.Timeout = 0 }, "detect.timeout"},
		{"no concurrency", func(c *Config) { c.Detect.MaxConcurrentInference = 0 }, "max_concurrent_inference"},
		{"unknown preset", func(c *Config) { c.Sky.Interest.Preset = "tiny" }, "sky.interest"},
		{"uneven grid", func(c *Config) { c.Sky.Grid.DecStepDegrees = 7 }, "sky.grid"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv("HOME", t.TempDir())
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGeminiLabelsDefaultToInterestTokens(t *testing.T) {
	cfg := &Config{Sky: SkyConfig{Interest: InterestConfig{Preset: "compact"}}}
	labels := cfg.GeminiLabels()
	require.Len(t, labels, 10)
	assert.Equal(t, "orion", labels[0])
	assert.Equal(t, "ursa_major", labels[1])
}
