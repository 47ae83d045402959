package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/skyscope/skyscope/internal/app"
	"github.com/skyscope/skyscope/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Detector evaluation tools",
		Long: `Evaluation tools for measuring how well the configured detector finds
constellations in labelled night-sky photos.

Runs report per-class precision, recall and F1 and are saved as YAML under evals/.`,
	}

	open := func(run *cobra.Command) (evalcmd.Detector, func(), error) {
		cfg, err := loadConfig(run)
		if err != nil {
			return nil, nil, err
		}
		a, err := app.New(run.Context(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return a.Gateway, func() { a.Close(context.Background()) }, nil
	}

	cmd.AddCommand(evalcmd.NewRunCmd(open))
	cmd.AddCommand(evalcmd.NewReportCmd())

	return cmd
}
