package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/skyscope/skyscope/internal/logging"
	"github.com/skyscope/skyscope/internal/observability"
	"github.com/skyscope/skyscope/internal/sky"
)

// Config is the complete runtime configuration
type Config struct {
	Server  ServerConfig                `mapstructure:"server"`
	Detect  DetectConfig                `mapstructure:"detect"`
	YOLO    YOLOConfig                  `mapstructure:"yolo"`
	Gemini  GeminiConfig                `mapstructure:"gemini"`
	Sky     SkyConfig                   `mapstructure:"sky"`
	Lore    LoreConfig                  `mapstructure:"lore"`
	Client  ClientConfig                `mapstructure:"client"`
	Log     logging.Config              `mapstructure:"log"`
	Metrics MetricsConfig               `mapstructure:"metrics"`
	Tracing observability.TracingConfig `mapstructure:"tracing"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DetectConfig holds detection gateway settings
type DetectConfig struct {
	Backend                string        `mapstructure:"backend"`
	Threshold              float64       `mapstructure:"threshold"`
	IoU                    float64       `mapstructure:"iou"`
	Timeout                time.Duration `mapstructure:"timeout"`
	MaxUploadMB            int           `mapstructure:"max_upload_mb"`
	MaxConcurrentInference int           `mapstructure:"max_concurrent_inference"`
}

// YOLOConfig points at the inference sidecar
type YOLOConfig struct {
	URL string `mapstructure:"url"`
}

// GeminiConfig configures the Gemini backend. An empty APIKey falls back to GEMINI_API_KEY.
type GeminiConfig struct {
	Model       string   `mapstructure:"model"`
	APIKey      string   `mapstructure:"api_key"`
	Temperature float64  `mapstructure:"temperature"`
	Labels      []string `mapstructure:"labels"`
}

// InterestConfig chooses the allow-list
type InterestConfig struct {
	Preset string   `mapstructure:"preset"`
	Names  []string `mapstructure:"names"`
}

// SkyConfig holds visibility engine settings
type SkyConfig struct {
	Interest       InterestConfig `mapstructure:"interest"`
	Grid           sky.Grid       `mapstructure:"grid"`
	BoundariesPath string         `mapstructure:"boundaries_path"`
	NamesPath      string         `mapstructure:"names_path"`
}

// LoreConfig overrides the embedded lore asset
type LoreConfig struct {
	Path string `mapstructure:"path"`
}

// ClientConfig is used by the detect command
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MetricsConfig controls the Prometheus listener
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8888")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("detect.backend", "yolo")
	v.SetDefault("detect.threshold", 0.35)
	v.SetDefault("detect.iou", 0.45)
	v.SetDefault("detect.timeout", "30s")
	v.SetDefault("detect.max_upload_mb", 10)
	v.SetDefault("detect.max_concurrent_inference", 1)

	v.SetDefault("yolo.url", "http://localhost:8000")

	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.labels", []string{})

	v.SetDefault("sky.interest.preset", sky.PresetFull)
	v.SetDefault("sky.interest.names", []string{})
	v.SetDefault("sky.grid.ra_step_hours", sky.DefaultGrid.RAStepHours)
	v.SetDefault("sky.grid.dec_step_degrees", sky.DefaultGrid.DecStepDegrees)
	v.SetDefault("sky.boundaries_path", "")
	v.SetDefault("sky.names_path", "")

	v.SetDefault("lore.path", "")

	v.SetDefault("client.server_url", "http://localhost:8888")
	v.SetDefault("client.timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "skyscope")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Load reads configuration from path, or from skyscope.yaml in the working
// directory or $HOME/.config/skyscope when path is empty. A missing default file
// is not an error. SKYSCOPE_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SKYSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("skyscope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/skyscope")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	switch c.Detect.Backend {
	case "yolo", "gemini":
	default:
		errs = append(errs, fmt.Errorf("detect.backend must be yolo or gemini, got %q", c.Detect.Backend))
	}
	if c.Detect.Threshold < 0 || c.Detect.Threshold > 1 {
		errs = append(errs, fmt.Errorf("detect.threshold must be in [0, 1], got %v", c.Detect.Threshold))
	}
	if c.Detect.IoU < 0 || c.Detect.IoU > 1 {
		errs = append(errs, fmt.Errorf("detect.iou must be in [0, 1], got %v", c.Detect.IoU))
	}
	if c.Detect.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("detect.timeout must be positive, got %v", c.Detect.Timeout))
	}
	if c.Detect.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("detect.max_upload_mb must be positive, got %d", c.Detect.MaxUploadMB))
	}
	if c.Detect.MaxConcurrentInference < 1 {
		errs = append(errs, fmt.Errorf("detect.max_concurrent_inference must be at least 1, got %d", c.Detect.MaxConcurrentInference))
	}

	if _, err := sky.InterestList(c.Sky.Interest.Preset, c.Sky.Interest.Names); err != nil {
		errs = append(errs, fmt.Errorf("sky.interest: %w", err))
	}
	if err := c.Sky.Grid.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sky.grid: %w", err))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %v", c.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}

// InterestList resolves the configured allow-list
func (c *Config) InterestList() []string {
	names, _ := sky.InterestList(c.Sky.Interest.Preset, c.Sky.Interest.Names)
	return names
}

// MaxUploadBytes returns the upload cap in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Detect.MaxUploadMB) << 20
}

// GeminiLabels returns the configured Gemini vocabulary, defaulting to the
// class tokens of the interest list.
func (c *Config) GeminiLabels() []string {
	if len(c.Gemini.Labels) > 0 {
		return c.Gemini.Labels
	}
	var labels []string
	for _, tok := range sky.ToClassTokens(c.InterestList()) {
		labels = append(labels, string(tok))
	}
	return labels
}
