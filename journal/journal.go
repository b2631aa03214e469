// Package journal tracks temporary files written next to their final
// destination so a crashed run never leaves stray "*.tmp.*" files behind.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pixforge/logger"
)

type entry struct {
	Final   string    `json:"final"`
	Created time.Time `json:"created"`
}

// Journal records in-flight temp files. A nil *Journal is valid and tracks
// nothing, which keeps callers free of nil checks.
type Journal struct {
	q *DBQueue
}

// Open opens the journal database at path.
func Open(path string) (*Journal, error) {
	q, err := OpenQueue(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{q: q}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.q.Close()
}

// TempPath returns the sibling temp name for final: "<stem>.tmp<ext>".
func TempPath(final string) string {
	ext := filepath.Ext(final)
	return strings.TrimSuffix(final, ext) + ".tmp" + ext
}

// Track registers tmp as in flight for final.
func (j *Journal) Track(tmp, final string) error {
	if j == nil {
		return nil
	}
	data, err := json.Marshal(entry{Final: final, Created: time.Now()})
	if err != nil {
		return err
	}
	return j.q.Add(tmp, data)
}

// Release forgets tmp.
func (j *Journal) Release(tmp string) error {
	if j == nil {
		return nil
	}
	return j.q.Delete(tmp)
}

// Pending lists the temp files currently tracked.
func (j *Journal) Pending() ([]string, error) {
	if j == nil {
		return nil, nil
	}
	return j.q.Keys()
}

// Sweep deletes every tracked temp file that still exists and clears the
// journal. It returns the number of files removed from disk.
func (j *Journal) Sweep() (int, error) {
	pending, err := j.Pending()
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, tmp := range pending {
		switch err := os.Remove(tmp); {
		case err == nil:
			removed++
			logger.Infof("removed leftover temp file %s", tmp)
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
			continue
		}
		if err := j.Release(tmp); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// WriteAtomic writes final through a tracked temp file and renames it into
// place once write succeeds.
func (j *Journal) WriteAtomic(final string, write func(tmp string) error) error {
	_, err := j.Replace(final, write, nil)
	return err
}

// Replace writes a candidate through a tracked temp file, then asks accept
// whether to rename it over final. A rejected candidate is discarded. A nil
// accept always accepts. It reports whether final was replaced.
func (j *Journal) Replace(final string, write func(tmp string) error, accept func(tmp string) (bool, error)) (bool, error) {
	tmp := TempPath(final)
	if err := j.Track(tmp, final); err != nil {
		return false, fmt.Errorf("failed to journal %s: %w", tmp, err)
	}
	defer func() {
		if err := j.Release(tmp); err != nil {
			logger.Warnf("failed to release journal entry %s: %v", tmp, err)
		}
	}()

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return false, err
	}

	if accept != nil {
		ok, err := accept(tmp)
		if err != nil || !ok {
			os.Remove(tmp)
			return false, err
		}
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("failed to move %s into place: %w", filepath.Base(final), err)
	}
	return true, nil
}
