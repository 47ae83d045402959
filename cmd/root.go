package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skyscope/skyscope/internal/config"
	"github.com/skyscope/skyscope/internal/logging"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skyscope",
		Short: "Find the constellations above you and spot them in your photos",
		Long: `Skyscope works out which constellations are above the horizon for a
given place and time, and runs night-sky photos through a detector that only
reports those constellations.

Settings come from skyscope.yaml (in the working directory or
$HOME/.config/skyscope), SKYSCOPE_* environment variables, and flags.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to a config file (default skyscope.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVisibleCmd())
	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}

// loadConfig reads configuration for cmd and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log)
	return cfg, nil
}
