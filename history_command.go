package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pixforge/failures"
	"pixforge/success"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var run string

	cmd := &cobra.Command{
		Use:       "history [failures|success]",
		Short:     "List recorded per-file failures or successes",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"failures", "success"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "failures"
			if len(args) == 1 {
				kind = args[0]
			}
			s, err := openSession(false)
			if err != nil {
				return err
			}
			defer s.close()

			var out string
			switch kind {
			case "failures":
				out, err = failureHistory(s, run)
			default:
				out, err = successHistory(s, run)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&run, "run", "", "Only show records of this run ID")
	return cmd
}

func failureHistory(s *session, run string) (string, error) {
	list := s.failures.List
	if run != "" {
		list = func() ([]failures.FailureRecord, error) { return s.failures.ListRun(run) }
	}
	records, err := list()
	if err != nil {
		return "", fmt.Errorf("failed to list failures: %w", err)
	}
	if len(records) == 0 {
		return "No failures recorded", nil
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			shortRun(r.RunID), r.File, r.Pipeline, r.Kind, r.Error, formatWhen(r.Timestamp),
		})
	}
	return renderTable([]string{"Run", "File", "Pipeline", "Kind", "Error", "When"}, rows, nil), nil
}

func successHistory(s *session, run string) (string, error) {
	list := s.success.List
	if run != "" {
		list = func() ([]success.SuccessRecord, error) { return s.success.ListRun(run) }
	}
	records, err := list()
	if err != nil {
		return "", fmt.Errorf("failed to list success records: %w", err)
	}
	if len(records) == 0 {
		return "No successes recorded", nil
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		size := ""
		if r.OriginalBytes > 0 {
			size = humanize.Bytes(uint64(r.OriginalBytes)) + " -> " + humanize.Bytes(uint64(r.OptimizedBytes))
		}
		rows = append(rows, []string{
			shortRun(r.RunID), r.File, r.Pipeline, strings.Join(r.Outputs, ", "), size, formatWhen(r.Timestamp),
		})
	}
	return renderTable([]string{"Run", "File", "Pipeline", "Outputs", "Size", "When"}, rows, nil), nil
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history records older than --max-age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				return fmt.Errorf("--max-age must be positive, got %v", maxAge)
			}
			s, err := openSession(false)
			if err != nil {
				return err
			}
			defer s.close()

			n := pruneStores(maxAge, map[string]historyStore{"success": s.success, "failure": s.failures})
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records older than %v\n", n, maxAge)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", defaultMaxAge, "Age beyond which records are deleted")
	return cmd
}
