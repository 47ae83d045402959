package evalcmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Opener builds the detector for a run and returns a release function
type Opener func(cmd *cobra.Command) (Detector, func(), error)

// NewRunCmd creates the eval run command
func NewRunCmd(open Opener) *cobra.Command {
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the configured detector against a labelled dataset",
		Long: `Runs every image in a labelled dataset through the detection gateway,
requesting the classes annotated on that image, and scores the detections
against the ground-truth boxes.

Datasets are JSONL or Parquet with one record per image:
  {"id": "...", "image_path": "...", "annotations": [{"class": "orion", "x1": 0, "y1": 0, "x2": 10, "y2": 10}]}`,
		Example: `  # Evaluate the first 20 images
  skyscope eval run --dataset ./sky/labels.jsonl --limit 20

  # Evaluate a parquet dataset with four workers
  skyscope eval run --dataset ./sky/labels.parquet --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.DatasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}
			d, release, err := open(cmd)
			if err != nil {
				return err
			}
			defer release()

			_, err = Run(cmd.Context(), d, opts, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&opts.DatasetPath, "dataset", "", "Path to a .jsonl or .parquet dataset (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "Number of records to evaluate (-1 for all)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 1, "Number of images evaluated in parallel")
	cmd.Flags().Float64Var(&opts.IoUThreshold, "iou", 0.5, "Minimum IoU for a detection to match a ground-truth box")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "evals", "Directory for the results YAML")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// NewReportCmd creates the eval report command
func NewReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report <results.yaml>",
		Short: "Print a saved evaluation",
		Args:  cobra.ExactArgs(1),
		Example: `  skyscope eval report evals/yolo-2024-01-15_12-00-00.yaml
  skyscope eval report evals/yolo-2024-01-15_12-00-00.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Report(args[0], format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, yaml)")
	return cmd
}
