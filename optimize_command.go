package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pixforge/catalog"
	"pixforge/config"
	"pixforge/responsive"
)

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var (
		source string
		backup string
		report string
		force  bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Back up, re-encode and generate responsive variants of published images",
		Long: `Copies the published directory to a backup, re-encodes every image in place
and writes the responsive variants configured for it.

An existing backup is only replaced after confirmation on a terminal, or with
--force. Without either the run stops before touching any file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opt := cfg.Optimize
			if source != "" {
				// a derived backup dir follows the new source
				if opt.BackupDir == config.BackupDirFor(opt.SourceDir) {
					opt.BackupDir = config.BackupDirFor(source)
				}
				opt.SourceDir = source
			}
			if backup != "" {
				opt.BackupDir = backup
			}
			if report != "" {
				opt.ReportPath = report
			}
			if strict {
				opt.Strict = true
			}

			table, err := catalog.LoadResponsive(opt.ResponsiveFile)
			if err != nil {
				return err
			}

			s, err := openSession(true)
			if err != nil {
				return err
			}
			defer s.close()

			options := responsive.OptionsFromConfig(opt, table)
			options.Force = force
			confirm := responsive.NewTerminalConfirmer()
			confirm.Out = cmd.ErrOrStderr()
			if in := cmd.InOrStdin(); in != io.Reader(os.Stdin) {
				confirm.In = in
				confirm.Interactive = false
			}
			optimizer, err := responsive.New(responsive.Deps{
				Encoders: s.encoders,
				Journal:  s.journal,
				Failures: s.failures,
				Success:  s.success,
				Metrics:  s.metrics,
				Confirm:  confirm,
			}, options)
			if err != nil {
				return err
			}

			summary, runErr := optimizer.Run(cmd.Context())
			s.writeMetrics(cfg.Metrics.TextfilePath)
			if summary.Files > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), responsive.RenderTable(summary))
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Published images directory")
	cmd.Flags().StringVar(&backup, "backup", "", "Backup directory (default <source>-backup)")
	cmd.Flags().StringVar(&report, "report", "", "Report file path")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing backup without asking")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any file fails")
	return cmd
}
