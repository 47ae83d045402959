package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skyscope/skyscope/internal/eval/metrics"
	"github.com/skyscope/skyscope/internal/models"
)

// DefaultDir is where evaluation runs are written
const DefaultDir = "evals"

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Backend      string  `yaml:"backend"`
	IoUThreshold float64 `yaml:"iouthreshold"`
	DatasetPath  string  `yaml:"datasetpath"`
	SampleSize   int     `yaml:"samplesize"`
	Timestamp    string  `yaml:"timestamp"`
}

// ClassSummary is one row of the per-class table
type ClassSummary struct {
	Class          string  `yaml:"class"`
	TruePositives  int     `yaml:"tp"`
	FalsePositives int     `yaml:"fp"`
	FalseNegatives int     `yaml:"fn"`
	Precision      float64 `yaml:"precision"`
	Recall         float64 `yaml:"recall"`
	F1             float64 `yaml:"f1"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier       string                    `yaml:"identifier"`
	ImagePath        string                    `yaml:"imagepath"`
	Requested        []models.ClassToken       `yaml:"requested"`
	Detections       []models.Detection        `yaml:"detections"`
	Counts           map[string]metrics.Counts `yaml:"counts,omitempty"`
	ProcessingMillis int64                     `yaml:"processingmillis"`
	Error            string                    `yaml:"error,omitempty"`
}

// EvalSpec represents the complete evaluation file
type EvalSpec struct {
	Config  EvalConfig     `yaml:"config"`
	Summary []ClassSummary `yaml:"summary"`
	Overall ClassSummary   `yaml:"overall"`
	Results []EvalResult   `yaml:"results"`
}

// Build converts a finished run into its YAML form
func Build(config EvalConfig, agg *metrics.AggregateResults, results []metrics.EvaluationResult) EvalSpec {
	doc := EvalSpec{
		Config:  config,
		Overall: summary(agg.Overall),
		Results: make([]EvalResult, 0, len(results)),
	}
	for _, s := range agg.Classes {
		doc.Summary = append(doc.Summary, summary(s))
	}
	for _, r := range results {
		doc.Results = append(doc.Results, EvalResult{
			Identifier:       r.ID,
			ImagePath:        r.ImagePath,
			Requested:        r.Requested,
			Detections:       r.Detections,
			Counts:           r.Counts,
			ProcessingMillis: r.ProcessingTime.Milliseconds(),
			Error:            r.Error,
		})
	}
	return doc
}

func summary(s metrics.ClassStats) ClassSummary {
	return ClassSummary{
		Class:          s.Class,
		TruePositives:  s.TruePositives,
		FalsePositives: s.FalsePositives,
		FalseNegatives: s.FalseNegatives,
		Precision:      s.Precision,
		Recall:         s.Recall,
		F1:             s.F1,
	}
}

// SaveToYAML writes doc into dir as <backend>-<timestamp>.yaml and returns the path.
func SaveToYAML(dir string, doc EvalSpec) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	if doc.Config.Timestamp == "" {
		doc.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", doc.Config.Backend, doc.Config.Timestamp))

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}

// LoadYAML reads a previously saved evaluation
func LoadYAML(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	var doc EvalSpec
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse results file: %w", err)
	}
	return &doc, nil
}
