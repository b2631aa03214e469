package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pixforge/job"
	"pixforge/models"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags assetFlags
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process raw images as they are added or changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := openSession(true)
			if err != nil {
				return err
			}
			defer s.close()

			assets := flags.apply(cfg.Assets)
			runner, err := newRunner(cfg, s, assets)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", assets.SourceDir)
			err = runner.Watch(cmd.Context(), debounce, func(o models.AssetOutcome) {
				fmt.Fprintf(out, "%s: %s %s\n", o.Source, outcomeStatus(o), outputSummary(o.Outputs))
				s.writeMetrics(cfg.Metrics.TextfilePath)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", job.DefaultDebounce, "Quiet period before a changed file is processed")
	return cmd
}
