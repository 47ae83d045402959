package evalcmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/skyscope/skyscope/internal/eval/results"
)

// Report prints a saved evaluation in the requested format
func Report(path, format string, out io.Writer) error {
	doc, err := results.LoadYAML(path)
	if err != nil {
		return err
	}

	switch format {
	case "text", "":
		printTextReport(doc, out)
		return nil
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(doc)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(doc *results.EvalSpec, out io.Writer) {
	fmt.Fprintln(out, "========================================")
	fmt.Fprintln(out, "Skyscope Detection Evaluation Report")
	fmt.Fprintln(out, "========================================")
	fmt.Fprintf(out, "Backend:   %s\n", doc.Config.Backend)
	fmt.Fprintf(out, "Dataset:   %s\n", doc.Config.DatasetPath)
	fmt.Fprintf(out, "Records:   %d\n", doc.Config.SampleSize)
	fmt.Fprintf(out, "Timestamp: %s\n", doc.Config.Timestamp)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%-14s %5s %5s %5s %9s %7s %7s\n", "class", "tp", "fp", "fn", "precision", "recall", "f1")
	for _, s := range append(doc.Summary, doc.Overall) {
		fmt.Fprintf(out, "%-14s %5d %5d %5d %9.3f %7.3f %7.3f\n",
			s.Class, s.TruePositives, s.FalsePositives, s.FalseNegatives, s.Precision, s.Recall, s.F1)
	}

	fmt.Fprintln(out, "\nDetailed Results:")
	fmt.Fprintln(out, "========================================")
	for i, r := range doc.Results {
		fmt.Fprintf(out, "\n[%d] %s (%s)\n", i+1, r.Identifier, r.ImagePath)
		if r.Error != "" {
			fmt.Fprintf(out, "  Error: %s\n", r.Error)
			continue
		}
		fmt.Fprintf(out, "  Requested: %v\n", r.Requested)
		for _, d := range r.Detections {
			fmt.Fprintf(out, "  %-14s %.3f %v\n", d.Class, d.Confidence, d.BBox)
		}
	}
}
