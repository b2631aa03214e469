// Package job runs the asset pipeline: every raw file in the source directory
// is routed through the catalog, transformed, and written in each configured
// output format.
package job

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
	"pixforge/publisher"
	"pixforge/success"
	"pixforge/transform"
)

const pipelineName = "assets"

// Deps are the collaborators a Runner writes through. Catalog and Encoders are
// required; everything else is optional.
type Deps struct {
	Catalog   *catalog.Registry
	Encoders  *encoder.Registry
	Journal   *journal.Journal
	Failures  *failures.Store
	Success   *success.Store
	Publisher *publisher.Publisher
	Metrics   *metrics.Recorder
}

// Options select what a run reads and writes.
type Options struct {
	SourceDir  string
	OutputDir  string
	Extensions []string
	Outputs    []models.OutputSpec
	Strict     bool
}

// OptionsFromConfig maps the [assets] section to runner options: one lossy and
// one lossless output per asset.
func OptionsFromConfig(c config.Assets) Options {
	return Options{
		SourceDir:  c.SourceDir,
		OutputDir:  c.OutputDir,
		Extensions: c.Extensions,
		Strict:     c.Strict,
		Outputs: []models.OutputSpec{
			{Format: c.LossyFormat, Quality: c.LossyQuality, Speed: c.Speed},
			{Format: c.LosslessFormat, Quality: 100, Speed: c.Speed, Lossless: true},
		},
	}
}

// Runner executes asset runs.
type Runner struct {
	deps Deps
	opts Options
}

// NewRunner validates deps and opts.
func NewRunner(deps Deps, opts Options) (*Runner, error) {
	if deps.Catalog == nil {
		return nil, errors.New("asset runner needs a catalog")
	}
	if deps.Encoders == nil {
		return nil, errors.New("asset runner needs an encoder registry")
	}
	if opts.SourceDir == "" || opts.OutputDir == "" {
		return nil, errors.New("asset runner needs source and output directories")
	}
	if len(opts.Outputs) == 0 {
		return nil, errors.New("asset runner needs at least one output format")
	}
	for _, o := range opts.Outputs {
		if _, ok := deps.Encoders.Get(o.Format); !ok {
			logger.Warnf("no encoder for output format %q; those outputs will fail", o.Format)
		}
	}
	return &Runner{deps: deps, opts: opts}, nil
}

// Run processes every matching file in the source directory, one at a time,
// in name order. Per-file failures are recorded and do not stop the run; the
// returned error is non-nil only for setup problems, cancellation, or when
// Strict is set and a file failed.
func (r *Runner) Run(ctx context.Context) (models.AssetRunSummary, error) {
	summary := models.AssetRunSummary{RunID: uuid.NewString(), Started: time.Now()}

	files, err := ListSources(r.opts.SourceDir, r.opts.Extensions)
	if err != nil {
		return summary, err
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("failed to create output directory: %w", err)
	}
	if n, err := r.deps.Journal.Sweep(); err != nil {
		logger.Warnf("journal sweep incomplete: %v", err)
	} else if n > 0 {
		logger.Infof("removed %d temp files left by an earlier run", n)
	}

	logger.Infof("asset run %s: %d candidate files in %s", summary.RunID, len(files), r.opts.SourceDir)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			logger.Warnf("asset run %s cancelled after %d files", summary.RunID, len(summary.Outcomes))
			return summary, err
		}
		r.record(&summary, r.ProcessFile(ctx, summary.RunID, path))
	}

	r.deps.Metrics.RunFinished(pipelineName, summary.Started)
	logger.Infof("asset run %s done: %d processed, %d skipped, %d failed",
		summary.RunID, summary.Processed, summary.Skipped, summary.Failed)

	if r.opts.Strict && summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d files failed", summary.Failed, len(summary.Outcomes))
	}
	return summary, nil
}

func (r *Runner) record(s *models.AssetRunSummary, o models.AssetOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch {
	case o.Skipped():
		s.Skipped++
	case o.Failed():
		s.Failed++
	default:
		s.Processed++
	}
	r.deps.Metrics.Asset(statusOf(o.Skipped(), o.Failed()))
}

// ProcessFile resolves, decodes, transforms and writes one source file.
func (r *Runner) ProcessFile(ctx context.Context, runID, path string) models.AssetOutcome {
	name := filepath.Base(path)
	outcome := models.AssetOutcome{Source: name}

	cfg, ok := r.deps.Catalog.Resolve(name).Config()
	if !ok {
		outcome.Err = fmt.Errorf("%w: %s", models.ErrConfigurationMismatch, name)
		logger.Warnf("skipping %s: no catalog entry matches", name)
		return outcome
	}
	outcome.TargetName = cfg.TargetName
	outcome.Avatar = cfg.AvatarMode

	logger.Infof("processing %s -> %s", name, cfg.TargetName)
	img, err := decodeAndTransform(path, cfg)
	if err != nil {
		outcome.Err = err
		r.fail(runID, name, err)
		return outcome
	}

	var written []string
	for _, spec := range r.opts.Outputs {
		rec := r.writeOutput(ctx, img, cfg.TargetName, spec)
		outcome.Outputs = append(outcome.Outputs, rec)
		r.deps.Metrics.Output(encoder.Normalize(spec.Format), rec.Err == nil)
		if rec.Err != nil {
			r.fail(runID, filepath.Base(rec.Path), rec.Err)
			continue
		}
		written = append(written, rec.Path)
		logger.Infof("wrote %s (%d bytes)", rec.Path, rec.Bytes)
	}

	r.publish(ctx, runID, written)

	if !outcome.Failed() {
		r.succeed(runID, name, written)
	}
	return outcome
}

func (r *Runner) writeOutput(ctx context.Context, img image.Image, target string, spec models.OutputSpec) models.OutputRecord {
	final := filepath.Join(r.opts.OutputDir, target+encoder.Extension(spec.Format))
	rec := models.OutputRecord{Format: encoder.Normalize(spec.Format), Path: final}

	opts := encoder.Options{Quality: spec.Quality, Speed: spec.Speed, Lossless: spec.Lossless}
	rec.Err = r.deps.Journal.WriteAtomic(final, func(tmp string) error {
		return r.deps.Encoders.Encode(ctx, spec.Format, img, tmp, opts)
	})
	if rec.Err == nil {
		if info, err := os.Stat(final); err == nil {
			rec.Bytes = info.Size()
		}
	}
	return rec
}

func (r *Runner) publish(ctx context.Context, runID string, paths []string) {
	if !r.deps.Publisher.Enabled() {
		return
	}
	for _, p := range paths {
		if err := r.deps.Publisher.Publish(ctx, p); err != nil {
			logger.Errorf("failed to publish %s: %v", filepath.Base(p), err)
			r.deps.Metrics.Error("publish", "publish_failure")
			if storeErr := r.deps.Failures.Store(runID, "publish:"+filepath.Base(p), "publish", err); storeErr != nil {
				logger.Debugf("failure store: %v", storeErr)
			}
		}
	}
}

func (r *Runner) fail(runID, file string, err error) {
	logger.Errorf("%s: %v", file, err)
	r.deps.Metrics.Error(pipelineName, models.Kind(err))
	if r.deps.Failures == nil {
		return
	}
	if storeErr := r.deps.Failures.Store(runID, file, pipelineName, err); storeErr != nil {
		logger.Errorf("Failed to store failure for %s: %v", file, storeErr)
	}
}

func (r *Runner) succeed(runID, file string, outputs []string) {
	if r.deps.Success == nil {
		return
	}
	names := make([]string, len(outputs))
	for i, p := range outputs {
		names[i] = filepath.Base(p)
	}
	err := r.deps.Success.Store(success.SuccessRecord{
		RunID:    runID,
		File:     file,
		Pipeline: pipelineName,
		Outputs:  names,
	})
	if err != nil {
		logger.Errorf("Failed to store success record for %s: %v", file, err)
	}
}

func decodeAndTransform(path string, cfg catalog.AssetConfig) (image.Image, error) {
	src, err := canvas.Open(path)
	if err != nil {
		return nil, err
	}
	return transform.Apply(src, cfg), nil
}

// ListSources returns the regular files directly inside dir whose extension
// is in exts, sorted by name. A missing dir wraps models.ErrDirectoryMissing.
func ListSources(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrDirectoryMissing, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") || strings.Contains(e.Name(), ".tmp.") {
			continue
		}
		if !allowed[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
