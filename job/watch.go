package job

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"pixforge/logger"
	"pixforge/models"
)

// DefaultDebounce is how long a file must stay quiet before it is processed.
const DefaultDebounce = 500 * time.Millisecond

// Watch processes files as they appear or change in the source directory
// until ctx is cancelled. Bursts of events for one file are debounced and
// files are still processed one at a time. The outcome of every processed
// file is passed to onOutcome when it is non-nil.
func (r *Runner) Watch(ctx context.Context, debounce time.Duration, onOutcome func(models.AssetOutcome)) error {
	if _, err := ListSources(r.opts.SourceDir, r.opts.Extensions); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(r.opts.SourceDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.opts.SourceDir, err)
	}

	runID := "watch-" + uuid.NewString()
	logger.Infof("watching %s (run %s)", r.opts.SourceDir, runID)

	ready := make(chan string, 64)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !r.accepts(event.Name) {
				continue
			}
			name := event.Name
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			outcome := r.ProcessFile(ctx, runID, path)
			r.deps.Metrics.Asset(statusOf(outcome.Skipped(), outcome.Failed()))
			if onOutcome != nil {
				onOutcome(outcome)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("watcher error: %v", err)
		}
	}
}

func (r *Runner) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.Contains(base, ".tmp.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range r.opts.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func statusOf(skipped, failed bool) string {
	switch {
	case skipped:
		return "skipped"
	case failed:
		return "failed"
	default:
		return "processed"
	}
}
