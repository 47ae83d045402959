package cmd

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/webp"

	"github.com/skyscope/skyscope/internal/annotate"
	"github.com/skyscope/skyscope/internal/app"
	"github.com/skyscope/skyscope/internal/client"
	"github.com/skyscope/skyscope/internal/images"
)

func newDetectCmd() *cobra.Command {
	var (
		obs          observerFlags
		imagePath    string
		serverURL    string
		annotatePath string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect visible constellations in a night-sky photo",
		Long: `Works out which constellations of interest are above the horizon for the
given place and time, then uploads the photo to a Skyscope server asking only
for those classes. Detections are printed and can be drawn onto a copy of the
photo with --annotate.`,
		Example: `  # Detect against a local server
  skyscope detect --image sky.jpg --lat 37.5665 --lon 126.978 --at 2024-01-15T21:00:00+09:00

  # Save an annotated copy
  skyscope detect --image sky.jpg --lat 37.5665 --lon 126.978 --annotate sky-boxes.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			observer, err := obs.observer()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if serverURL == "" {
				serverURL = cfg.Client.ServerURL
			}

			fetcher := images.NewFetcher()
			fetcher.MaxBytes = cfg.MaxUploadBytes()
			data, name, err := fetcher.Fetch(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			pipeline, err := app.NewPipeline(cfg, nil)
			if err != nil {
				return err
			}
			result := pipeline.Run(cmd.Context(), observer)
			slog.Info("Requesting classes", "classes", result.Classes)

			c := client.New(serverURL, cfg.Client.Timeout)
			detections, err := c.Detect(cmd.Context(), name, data, result.Classes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(detections) == 0 {
				fmt.Fprintln(out, "No constellations detected.")
			}
			for _, d := range detections {
				fmt.Fprintf(out, "%-14s %.3f  [%.1f, %.1f, %.1f, %.1f]\n",
					d.Class, d.Confidence, d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
			}

			if annotatePath == "" {
				return nil
			}
			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("failed to decode image for annotation: %w", err)
			}
			f, err := os.Create(annotatePath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", annotatePath, err)
			}
			defer f.Close()
			if err := annotate.WritePNG(f, annotate.Draw(img, detections)); err != nil {
				return err
			}
			if !strings.EqualFold(filepath.Ext(annotatePath), ".png") {
				slog.Warn("Annotated image is PNG encoded", "path", annotatePath)
			}
			fmt.Fprintf(out, "\nAnnotated image saved to: %s\n", annotatePath)
			return nil
		},
	}

	obs.register(cmd)
	cmd.Flags().StringVar(&imagePath, "image", "", "Path or http(s) URL of the night-sky photo (required)")
	cmd.Flags().StringVar(&serverURL, "server", "", "Skyscope server URL (default client.server_url)")
	cmd.Flags().StringVar(&annotatePath, "annotate", "", "Write a PNG copy of the image with boxes drawn")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
