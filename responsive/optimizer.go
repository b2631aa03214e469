// Package responsive re-encodes the published images in place and derives
// their downscaled responsive variants, after taking a full backup.
package responsive

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pixforge/canvas"
	"pixforge/catalog"
	"pixforge/config"
	"pixforge/encoder"
	"pixforge/failures"
	"pixforge/journal"
	"pixforge/logger"
	"pixforge/metrics"
	"pixforge/models"
	"pixforge/success"
)

const pipelineName = "optimize"

// Deps are the collaborators an Optimizer uses. Encoders is required.
type Deps struct {
	Encoders *encoder.Registry
	Journal  *journal.Journal
	Failures *failures.Store
	Success  *success.Store
	Metrics  *metrics.Recorder
	Confirm  Confirmer
}

// Options configure one optimization run.
type Options struct {
	SourceDir     string
	BackupDir     string
	Extensions    []string
	Quality       int
	Speed         int
	Table         catalog.ResponsiveTable
	ReportPath    string
	OnlyIfSmaller bool
	Force         bool // overwrite an existing backup without asking
	Strict        bool
}

// OptionsFromConfig maps the [optimize] section to optimizer options.
func OptionsFromConfig(c config.Optimize, table catalog.ResponsiveTable) Options {
	return Options{
		SourceDir:     c.SourceDir,
		BackupDir:     c.BackupDir,
		Extensions:    c.Extensions,
		Quality:       c.Quality,
		Speed:         c.Speed,
		Table:         table,
		ReportPath:    c.ReportPath,
		OnlyIfSmaller: c.OnlyIfSmaller,
		Strict:        c.Strict,
	}
}

// Optimizer runs the responsive optimization pipeline.
type Optimizer struct {
	deps Deps
	opts Options
}

// New validates deps and opts.
func New(deps Deps, opts Options) (*Optimizer, error) {
	if deps.Encoders == nil {
		return nil, errors.New("optimizer needs an encoder registry")
	}
	if opts.SourceDir == "" {
		return nil, errors.New("optimizer needs a source directory")
	}
	if opts.BackupDir == "" {
		opts.BackupDir = config.BackupDirFor(opts.SourceDir)
	}
	if config.Overlaps(opts.SourceDir, opts.BackupDir) {
		return nil, fmt.Errorf("backup directory %s must be outside the source directory %s and must not contain it",
			opts.BackupDir, opts.SourceDir)
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, fmt.Errorf("quality must be between 1 and 100, got %d", opts.Quality)
	}
	if opts.Table == nil {
		opts.Table = catalog.ResponsiveTable{}
	}
	if err := opts.Table.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{deps: deps, opts: opts}, nil
}

// Run backs up the source tree, then optimizes every top-level image in it.
// Setup failures (missing directory, refused backup overwrite) return before
// any file is touched. Per-file failures are recorded and skipped.
func (o *Optimizer) Run(ctx context.Context) (models.RunSummary, error) {
	summary := models.RunSummary{RunID: uuid.NewString(), Started: time.Now()}

	info, err := os.Stat(o.opts.SourceDir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return summary, fmt.Errorf("%w: %s", models.ErrDirectoryMissing, o.opts.SourceDir)
	}
	if err != nil {
		return summary, fmt.Errorf("failed to stat %s: %w", o.opts.SourceDir, err)
	}

	files, err := o.candidates()
	if err != nil {
		return summary, err
	}
	if n, err := o.deps.Journal.Sweep(); err != nil {
		logger.Warnf("journal sweep incomplete: %v", err)
	} else if n > 0 {
		logger.Infof("removed %d temp files left by an earlier run", n)
	}
	if err := o.backup(); err != nil {
		return summary, err
	}

	logger.Infof("optimize run %s: %d images in %s", summary.RunID, len(files), o.opts.SourceDir)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		name := filepath.Base(path)
		result, err := o.OptimizeFile(ctx, path)
		if result != nil {
			summary.Add(*result)
			o.deps.Metrics.Optimized(result.OriginalBytes, result.OptimizedBytes)
		}
		if err != nil {
			summary.Fail(name, err)
			o.fail(summary.RunID, name, err)
			continue
		}
		o.succeed(summary.RunID, *result)
	}

	saved, pct := summary.Saved()
	logger.Infof("optimize run %s done: %d files, %d variants, saved %d bytes (%.1f%%)",
		summary.RunID, summary.Files, summary.Variants, saved, pct)

	if o.opts.ReportPath != "" {
		if err := o.writeReport(summary); err != nil {
			logger.Errorf("failed to write report: %v", err)
		} else {
			logger.Infof("report written to %s", o.opts.ReportPath)
		}
	}
	o.deps.Metrics.RunFinished(pipelineName, summary.Started)

	if o.opts.Strict && summary.Failed > 0 {
		return summary, fmt.Errorf("%d files failed", summary.Failed)
	}
	return summary, nil
}

// candidates lists the files to optimize: regular files with an accepted
// extension that are not themselves responsive variants or temp files.
func (o *Optimizer) candidates() ([]string, error) {
	entries, err := os.ReadDir(o.opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", o.opts.SourceDir, err)
	}
	allowed := make(map[string]bool, len(o.opts.Extensions))
	for _, e := range o.opts.Extensions {
		allowed[strings.ToLower(e)] = true
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || strings.Contains(name, ".tmp.") {
			continue
		}
		if !allowed[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if o.opts.Table.IsVariant(name) {
			logger.Debugf("skipping responsive variant %s", name)
			continue
		}
		files = append(files, filepath.Join(o.opts.SourceDir, name))
	}
	sort.Strings(files)
	return files, nil
}

// copyTree is replaced in tests to simulate a failing copy.
var copyTree = CopyTree

// backup copies the source tree into a staging sibling of the backup
// directory and only then swaps it over any previous backup, so a failed copy
// leaves the old backup in place.
func (o *Optimizer) backup() error {
	backupDir := o.opts.BackupDir
	_, err := os.Lstat(backupDir)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat backup %s: %w", backupDir, err)
	}
	if exists && !o.opts.Force {
		ok, err := o.confirmOverwrite()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", models.ErrBackupConflict, backupDir)
		}
	}

	staging := backupDir + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("failed to clear staging backup %s: %w", staging, err)
	}
	if err := copyTree(o.opts.SourceDir, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to back up %s: %w", o.opts.SourceDir, err)
	}

	if !exists {
		if err := os.Rename(staging, backupDir); err != nil {
			os.RemoveAll(staging)
			return fmt.Errorf("failed to move backup into place: %w", err)
		}
		logger.Infof("backup created at %s", backupDir)
		return nil
	}

	logger.Warnf("replacing existing backup %s", backupDir)
	retired := backupDir + ".old"
	if err := os.RemoveAll(retired); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to clear %s: %w", retired, err)
	}
	if err := os.Rename(backupDir, retired); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("failed to retire old backup: %w", err)
	}
	if err := os.Rename(staging, backupDir); err != nil {
		if restoreErr := os.Rename(retired, backupDir); restoreErr != nil {
			logger.Errorf("old backup left at %s: %v", retired, restoreErr)
		}
		os.RemoveAll(staging)
		return fmt.Errorf("failed to move backup into place: %w", err)
	}
	if err := os.RemoveAll(retired); err != nil {
		logger.Warnf("failed to remove old backup %s: %v", retired, err)
	}
	logger.Infof("backup replaced at %s", backupDir)
	return nil
}

func (o *Optimizer) confirmOverwrite() (bool, error) {
	if o.deps.Confirm == nil {
		return false, nil
	}
	return o.deps.Confirm.Confirm(fmt.Sprintf("backup %s already exists. Overwrite?", o.opts.BackupDir))
}

// OptimizeFile re-encodes one image in place and writes its variants. The
// result is nil when the file could not be decoded or re-encoded at all; a
// non-nil result with an error means some variants failed.
func (o *Optimizer) OptimizeFile(ctx context.Context, path string) (*models.OptimizationResult, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	original := info.Size()

	src, err := canvas.Open(path)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	logger.Infof("optimizing %s (%dx%d, %d bytes)", name, b.Dx(), b.Dy(), original)

	format := encoder.FormatFromPath(path)
	opts := encoder.Options{Quality: o.opts.Quality, Speed: o.opts.Speed}
	optimized := original

	replaced, err := o.deps.Journal.Replace(path,
		func(tmp string) error {
			return o.deps.Encoders.Encode(ctx, format, src, tmp, opts)
		},
		func(tmp string) (bool, error) {
			st, err := os.Stat(tmp)
			if err != nil {
				return false, err
			}
			if o.opts.OnlyIfSmaller && st.Size() >= original {
				logger.Infof("%s: re-encode is not smaller (%d >= %d bytes), keeping original", name, st.Size(), original)
				return false, nil
			}
			optimized = st.Size()
			return true, nil
		},
	)
	if err != nil {
		return nil, err
	}

	result := &models.OptimizationResult{
		Name:           name,
		OriginalBytes:  original,
		OptimizedBytes: optimized,
		ReductionPct:   models.ReductionPct(original, optimized),
		Width:          b.Dx(),
		Height:         b.Dy(),
		Replaced:       replaced,
	}

	bps, ok := o.opts.Table.Lookup(name)
	if !ok {
		return result, nil
	}
	var errs []error
	for _, bp := range bps {
		v, err := o.writeVariant(ctx, src, path, format, opts, bp)
		if err != nil {
			errs = append(errs, fmt.Errorf("variant %s: %w", bp.Label, err))
			continue
		}
		result.Variants = append(result.Variants, v)
		o.deps.Metrics.Variant(bp.Label)
	}
	return result, errors.Join(errs...)
}

func (o *Optimizer) writeVariant(ctx context.Context, src image.Image, path, format string, opts encoder.Options, bp catalog.Breakpoint) (models.ResponsiveVariant, error) {
	scaled := canvas.ScaleToWidth(src, bp.MaxWidth)
	name := catalog.VariantName(path, bp.Label)
	final := filepath.Join(filepath.Dir(path), name)

	err := o.deps.Journal.WriteAtomic(final, func(tmp string) error {
		return o.deps.Encoders.Encode(ctx, format, scaled, tmp, opts)
	})
	if err != nil {
		return models.ResponsiveVariant{}, err
	}
	info, err := os.Stat(final)
	if err != nil {
		return models.ResponsiveVariant{}, err
	}
	sb := scaled.Bounds()
	logger.Infof("  %s (%dx%d, %d bytes)", name, sb.Dx(), sb.Dy(), info.Size())
	return models.ResponsiveVariant{
		Name:      name,
		Label:     bp.Label,
		MaxWidth:  bp.MaxWidth,
		Width:     sb.Dx(),
		Height:    sb.Dy(),
		SizeBytes: info.Size(),
	}, nil
}

func (o *Optimizer) fail(runID, file string, err error) {
	logger.Errorf("%s: %v", file, err)
	o.deps.Metrics.Error(pipelineName, models.Kind(err))
	if o.deps.Failures == nil {
		return
	}
	if storeErr := o.deps.Failures.Store(runID, file, pipelineName, err); storeErr != nil {
		logger.Errorf("Failed to store failure for %s: %v", file, storeErr)
	}
}

func (o *Optimizer) succeed(runID string, r models.OptimizationResult) {
	if o.deps.Success == nil {
		return
	}
	outputs := []string{r.Name}
	for _, v := range r.Variants {
		outputs = append(outputs, v.Name)
	}
	err := o.deps.Success.Store(success.SuccessRecord{
		RunID:          runID,
		File:           r.Name,
		Pipeline:       pipelineName,
		Outputs:        outputs,
		OriginalBytes:  r.OriginalBytes,
		OptimizedBytes: r.OptimizedBytes,
	})
	if err != nil {
		logger.Errorf("Failed to store success record for %s: %v", r.Name, err)
	}
}

func (o *Optimizer) writeReport(s models.RunSummary) error {
	if dir := filepath.Dir(o.opts.ReportPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return o.deps.Journal.WriteAtomic(o.opts.ReportPath, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := WriteReport(f, s, o.opts.BackupDir, time.Now()); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}
