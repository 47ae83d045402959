package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/skyscope/skyscope/internal/eval/dataset"
	"github.com/skyscope/skyscope/internal/eval/metrics"
	"github.com/skyscope/skyscope/internal/eval/results"
	"github.com/skyscope/skyscope/internal/images"
	"github.com/skyscope/skyscope/internal/models"
)

// Detector is the slice of the detection gateway an evaluation needs
type Detector interface {
	Detect(ctx context.Context, data []byte, requested []models.ClassToken) ([]models.Detection, error)
	Backend() string
}

// RunOptions controls one evaluation run
type RunOptions struct {
	DatasetPath  string
	Limit        int
	Concurrency  int
	IoUThreshold float64
	OutputDir    string
}

// Run evaluates every record in the dataset against d and saves the results.
// It returns the path of the written YAML file.
func Run(ctx context.Context, d Detector, opts RunOptions, out io.Writer) (string, error) {
	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "backend", d.Backend())

	records, err := dataset.NewLoader(opts.DatasetPath).LoadSample(opts.Limit)
	if err != nil {
		return "", fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "records", len(records))

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = metrics.DefaultIoUThreshold
	}

	type indexed struct {
		idx    int
		result metrics.EvaluationResult
	}

	fetcher := images.NewFetcher()

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, opts.Concurrency)
	resultsChan := make(chan indexed, len(records))

	for i, record := range records {
		wg.Add(1)
		go func(idx int, record dataset.Record) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			slog.Info("Processing record", "id", record.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(records)))
			resultsChan <- indexed{idx: idx, result: processRecord(ctx, d, fetcher, record, opts.IoUThreshold)}
		}(i, record)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	collected := make([]indexed, 0, len(records))
	for r := range resultsChan {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })

	evalResults := make([]metrics.EvaluationResult, len(collected))
	for i, r := range collected {
		evalResults[i] = r.result
	}

	agg := metrics.AggregateEvaluationResults(evalResults, d.Backend())
	agg.PrintSummary(out)

	doc := results.Build(results.EvalConfig{
		Backend:      d.Backend(),
		IoUThreshold: opts.IoUThreshold,
		DatasetPath:  opts.DatasetPath,
		SampleSize:   len(records),
	}, agg, evalResults)

	path, err := results.SaveToYAML(opts.OutputDir, doc)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(out, "\nEvaluation results saved to: %s\n", path)
	return path, nil
}

func processRecord(ctx context.Context, d Detector, fetcher *images.Fetcher, record dataset.Record, iouThreshold float64) metrics.EvaluationResult {
	start := time.Now()
	result := metrics.EvaluationResult{
		ID:        record.ID,
		ImagePath: record.ImagePath,
		Requested: record.Classes(),
	}

	if record.ImagePath == "" {
		result.Error = "no image path"
		return result
	}

	data, _, err := fetcher.Fetch(ctx, record.ImagePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read image: %v", err)
		return result
	}

	detections, err := d.Detect(ctx, data, result.Requested)
	result.ProcessingTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		slog.Warn("Detection failed", "id", record.ID, "err", err)
		return result
	}

	result.Detections = detections
	result.Counts = metrics.Match(detections, record.Annotations, iouThreshold)
	return result
}
