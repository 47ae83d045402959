package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skyscope/skyscope/internal/app"
	"github.com/skyscope/skyscope/internal/models"
)

type observerFlags struct {
	lat string
	lon string
	at  string
}

func (f *observerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.lat, "lat", "", "Observer latitude in degrees, north positive")
	cmd.Flags().StringVar(&f.lon, "lon", "", "Observer longitude in degrees, east positive")
	cmd.Flags().StringVar(&f.at, "at", "", "Observation time, RFC3339 (default now)")
}

func (f *observerFlags) observer() (models.ObserverPosition, error) {
	at := time.Now()
	if f.at != "" {
		parsed, err := time.Parse(time.RFC3339, f.at)
		if err != nil {
			return models.ObserverPosition{}, fmt.Errorf("invalid --at %q: expected RFC3339", f.at)
		}
		at = parsed
	}
	return models.ParseObserverPosition(f.lat, f.lon, at)
}

func newVisibleCmd() *cobra.Command {
	var (
		obs    observerFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "visible",
		Short: "List the constellations above the horizon",
		Long: `Samples a fixed sky grid for the given place and time and prints every
constellation with at least one sample above the horizon, followed by the
configured constellations of interest and their detector class tokens.`,
		Example: `  # Seoul, 9pm local time
  skyscope visible --lat 37.5665 --lon 126.978 --at 2024-01-15T21:00:00+09:00

  # Machine-readable output
  skyscope visible --lat 51.48 --lon 0 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			observer, err := obs.observer()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pipeline, err := app.NewPipeline(cfg, nil)
			if err != nil {
				return err
			}

			result := pipeline.Run(cmd.Context(), observer)
			return writeVisible(cmd.OutOrStdout(), format, pipeline.Response(observer, result))
		},
	}

	obs.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, yaml)")

	return cmd
}

func writeVisible(w io.Writer, format string, resp models.VisibleResponse) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(resp)
	case "text", "":
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	fmt.Fprintf(w, "Observer: %.4f, %.4f at %s\n\n",
		resp.Observer.Latitude, resp.Observer.Longitude, resp.Observer.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "Visible constellations (%d):\n", len(resp.Constellations))
	for _, c := range resp.Constellations {
		fmt.Fprintf(w, "  %-4s %s\n", c.ID, c.Name)
	}

	tokens := make([]string, len(resp.Classes))
	for i, t := range resp.Classes {
		tokens[i] = string(t)
	}
	fmt.Fprintf(w, "\nOf interest: %s\n", strings.Join(resp.Interesting, ", "))
	fmt.Fprintf(w, "Classes:     %s\n", strings.Join(tokens, " "))
	return nil
}
