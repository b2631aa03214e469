package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pixforge/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the asset catalog and responsive table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Assets.CatalogFile
			}
			registry, err := catalog.LoadRegistry(file)
			if err != nil {
				return err
			}
			table, err := catalog.LoadResponsive(cfg.Optimize.ResponsiveFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCatalog(registry))
			for _, o := range registry.Overlaps() {
				fmt.Fprintln(out, color.YellowString("warning: %s; order decides which entry wins", o))
			}
			fmt.Fprintln(out, renderResponsive(table))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Catalog file to inspect instead of the configured one")
	return cmd
}

func renderCatalog(r *catalog.Registry) string {
	configs := r.Configs()
	rows := make([][]string, 0, len(configs))
	for i, c := range configs {
		mode := "standard"
		if c.AvatarMode {
			mode = "avatar"
		}
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			c.MatchKey,
			c.TargetName,
			fmt.Sprintf("%dx%d", c.Size.Width, c.Size.Height),
			mode,
			describeEnhancement(c),
		})
	}
	return renderTable(
		[]string{"#", "Match", "Target", "Size", "Mode", "Adjustments"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}

func describeEnhancement(c catalog.AssetConfig) string {
	var parts []string
	add := func(name string, f *float64) {
		if f != nil {
			parts = append(parts, fmt.Sprintf("%s %.2f", name, *f))
		}
	}
	add("brightness", c.Enhancement.Brightness)
	add("contrast", c.Enhancement.Contrast)
	add("saturation", c.Enhancement.Saturation)
	add("sharpness", c.Enhancement.Sharpness)
	if c.Tint != nil {
		parts = append(parts, fmt.Sprintf("tint %.2f/%.2f/%.2f", c.Tint.R, c.Tint.G, c.Tint.B))
	}
	return strings.Join(parts, ", ")
}

func renderResponsive(t catalog.ResponsiveTable) string {
	names := t.Files()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		bps, _ := t.Lookup(name)
		sizes := make([]string, 0, len(bps))
		for _, bp := range bps {
			sizes = append(sizes, fmt.Sprintf("%s<=%dpx", bp.Label, bp.MaxWidth))
		}
		rows = append(rows, []string{name, strings.Join(sizes, ", ")})
	}
	return renderTable([]string{"Published image", "Variants"}, rows, nil)
}
