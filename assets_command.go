package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pixforge/catalog"
	"pixforge/config"
	"pixforge/job"
	"pixforge/models"
)

type assetFlags struct {
	source  string
	output  string
	catalog string
	strict  bool
}

func (f assetFlags) apply(c config.Assets) config.Assets {
	if f.source != "" {
		c.SourceDir = f.source
	}
	if f.output != "" {
		c.OutputDir = f.output
	}
	if f.catalog != "" {
		c.CatalogFile = f.catalog
	}
	if f.strict {
		c.Strict = true
	}
	return c
}

func (f *assetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "Directory of raw source images")
	cmd.Flags().StringVar(&f.output, "output", "", "Directory the derived assets are written to")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "TOML or YAML catalog file replacing the built-in one")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Exit non-zero when any file fails")
}

// newRunner builds an asset runner from the loaded config and an open session.
func newRunner(cfg *config.Config, s *session, assets config.Assets) (*job.Runner, error) {
	registry, err := catalog.LoadRegistry(assets.CatalogFile)
	if err != nil {
		return nil, err
	}
	pub, err := s.publisher(cfg.Publish.Targets)
	if err != nil {
		return nil, err
	}
	return job.NewRunner(job.Deps{
		Catalog:   registry,
		Encoders:  s.encoders,
		Journal:   s.journal,
		Failures:  s.failures,
		Success:   s.success,
		Publisher: pub,
		Metrics:   s.metrics,
	}, job.OptionsFromConfig(assets))
}

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var flags assetFlags

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Transform every raw image into its catalog assets",
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

			runner, err := newRunner(cfg, s, flags.apply(cfg.Assets))
			if err != nil {
				return err
			}
			summary, runErr := runner.Run(cmd.Context())
			s.writeMetrics(cfg.Metrics.TextfilePath)

			if len(summary.Outcomes) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderAssetTable(summary))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d processed, %d skipped, %d failed\n",
				summary.RunID, summary.Processed, summary.Skipped, summary.Failed)
			return runErr
		},
	}
	flags.register(cmd)
	return cmd
}

func renderAssetTable(s models.AssetRunSummary) string {
	rows := make([][]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		rows = append(rows, []string{o.Source, o.TargetName, outcomeStatus(o), outputSummary(o.Outputs)})
	}
	return renderTable([]string{"Source", "Asset", "Status", "Outputs"}, rows, nil)
}

func outcomeStatus(o models.AssetOutcome) string {
	switch {
	case o.Skipped():
		return "skipped"
	case o.Failed():
		return "failed"
	case o.Avatar:
		return "ok (avatar)"
	default:
		return "ok"
	}
}

func outputSummary(outputs []models.OutputRecord) string {
	parts := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if out.Err != nil {
			parts = append(parts, out.Format+": failed")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", filepath.Base(out.Path), humanize.Bytes(uint64(out.Bytes))))
	}
	return strings.Join(parts, ", ")
}
