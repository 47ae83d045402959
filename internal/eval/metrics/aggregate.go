package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/skyscope/skyscope/internal/models"
)

// EvaluationResult is the outcome for a single image
type EvaluationResult struct {
	ID             string
	ImagePath      string
	Requested      []models.ClassToken
	Detections     []models.Detection
	Counts         map[string]Counts
	ProcessingTime time.Duration
	Error          string
}

// ClassStats summarizes one class over the whole run
type ClassStats struct {
	Class string
	Counts
	Precision float64
	Recall    float64
	F1        float64
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int

	Classes []ClassStats
	Overall ClassStats

	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	EvaluationDate time.Time
	Backend        string
}

// AggregateEvaluationResults micro-averages per-class counts across results
func AggregateEvaluationResults(results []EvaluationResult, backend string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		EvaluationDate: time.Now(),
		Backend:        backend,
	}

	totals := map[string]*Counts{}
	var overall Counts
	var successDuration time.Duration

	for _, result := range results {
		agg.TotalProcessingTime += result.ProcessingTime
		if result.Error != "" {
			agg.FailureCount++
			continue
		}
		agg.SuccessCount++
		successDuration += result.ProcessingTime

		for class, c := range result.Counts {
			t, ok := totals[class]
			if !ok {
				t = &Counts{}
				totals[class] = t
			}
			t.Add(c)
			overall.Add(c)
		}
	}

	for class, c := range totals {
		agg.Classes = append(agg.Classes, stats(class, *c))
	}
	sort.Slice(agg.Classes, func(i, j int) bool { return agg.Classes[i].Class < agg.Classes[j].Class })
	agg.Overall = stats("overall", overall)

	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	return agg
}

func stats(class string, c Counts) ClassStats {
	return ClassStats{
		Class:     class,
		Counts:    c,
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
	}
}

// PrintSummary writes a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "SKYSCOPE DETECTION EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Backend: %s\n", a.Backend)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Records: %d\n", a.TotalRecords)
	if a.TotalRecords > 0 {
		fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, float64(a.SuccessCount)/float64(a.TotalRecords)*100)
		fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, float64(a.FailureCount)/float64(a.TotalRecords)*100)
	}
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PER-CLASS ACCURACY")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-14s %5s %5s %5s %9s %7s %7s\n", "class", "tp", "fp", "fn", "precision", "recall", "f1")
	for _, s := range a.Classes {
		printClassStats(w, s)
	}
	fmt.Fprintln(w, strings.Repeat("-", 70))
	printClassStats(w, a.Overall)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func printClassStats(w io.Writer, s ClassStats) {
	fmt.Fprintf(w, "%-14s %5d %5d %5d %9.3f %7.3f %7.3f\n",
		s.Class, s.TruePositives, s.FalsePositives, s.FalseNegatives, s.Precision, s.Recall, s.F1)
}
