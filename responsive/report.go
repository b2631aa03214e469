package responsive

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"pixforge/models"
)

// WriteReport renders the plain-text optimization report.
func WriteReport(w io.Writer, s models.RunSummary, backupDir string, now time.Time) error {
	var b strings.Builder
	saved, pct := s.Saved()

	fmt.Fprintf(&b, "Optimization report - %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	if backupDir != "" {
		fmt.Fprintf(&b, "Backup: %s\n", backupDir)
	}
	fmt.Fprintf(&b, "Total savings: %s (%.1f%%)\n", signedBytes(saved), pct)
	fmt.Fprintf(&b, "Original: %s, optimized: %s\n", humanize.Bytes(uint64(s.TotalOriginal)), humanize.Bytes(uint64(s.TotalOptimized)))
	fmt.Fprintf(&b, "Images: %d, responsive variants: %d, failed: %d\n", s.Files, s.Variants, s.Failed)
	b.WriteString("\nPer-image details:\n")

	for _, r := range s.Results {
		fmt.Fprintf(&b, "\n%s: %s -> %s (%.1f%%) %dx%d",
			r.Name, humanize.Bytes(uint64(r.OriginalBytes)), humanize.Bytes(uint64(r.OptimizedBytes)),
			r.ReductionPct, r.Width, r.Height)
		if !r.Replaced {
			b.WriteString(" [original kept]")
		}
		b.WriteString("\n")
		for _, v := range r.Variants {
			fmt.Fprintf(&b, "  - %s: %dx%d, %s\n", v.Name, v.Width, v.Height, humanize.Bytes(uint64(v.SizeBytes)))
		}
	}

	if len(s.Failures) > 0 {
		b.WriteString("\nFailed images:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", f.Name, f.Kind, f.Error)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

// RenderTable renders a console summary of an optimization run.
func RenderTable(s models.RunSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Image", "Size", "Before", "After", "Saved", "Variants"})
	for _, r := range s.Results {
		after := humanize.Bytes(uint64(r.OptimizedBytes))
		if !r.Replaced {
			after += " (kept)"
		}
		tw.AppendRow(table.Row{
			r.Name,
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			humanize.Bytes(uint64(r.OriginalBytes)),
			after,
			fmt.Sprintf("%.1f%%", r.ReductionPct),
			strconv.Itoa(len(r.Variants)),
		})
	}
	saved, pct := s.Saved()
	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d images", s.Files), "",
		humanize.Bytes(uint64(s.TotalOriginal)),
		humanize.Bytes(uint64(s.TotalOptimized)),
		fmt.Sprintf("%s (%.1f%%)", signedBytes(saved), pct),
		strconv.Itoa(s.Variants),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}
