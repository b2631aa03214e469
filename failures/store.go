// Package failures persists per-file failures of pixforge runs so they can be
// inspected after the process exits.
package failures

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"

	"pixforge/models"
)

// FailureRecord represents a processing failure
type FailureRecord struct {
	RunID     string    `json:"run_id"`
	File      string    `json:"file"`
	Pipeline  string    `json:"pipeline"` // "assets", "optimize" or "publish"
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a pebble-backed failure log keyed by "<runID>/<file>".
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the failure store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open failure store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the failure store
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

func key(runID, file string) []byte {
	return []byte(runID + "/" + file)
}

// Store records a failure of file during run runID.
func (s *Store) Store(runID, file, pipeline string, err error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("failure store not initialized")
	}

	record := FailureRecord{
		RunID:     runID,
		File:      file,
		Pipeline:  pipeline,
		Kind:      models.Kind(err),
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
	data, jsonErr := json.Marshal(record)
	if jsonErr != nil {
		return fmt.Errorf("failed to marshal failure record: %w", jsonErr)
	}
	return s.db.Set(key(runID, file), data, pebble.Sync)
}

// Get retrieves a failure record. A missing record returns nil, nil.
func (s *Store) Get(runID, file string) (*FailureRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	data, closer, err := s.db.Get(key(runID, file))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failure: %w", err)
	}
	defer closer.Close()

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &record, nil
}

// Delete removes a failure record
func (s *Store) Delete(runID, file string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("failure store not initialized")
	}
	return s.db.Delete(key(runID, file), pebble.Sync)
}

// List returns all failure records ordered by key.
func (s *Store) List() ([]FailureRecord, error) {
	return s.scan(&pebble.IterOptions{})
}

// ListRun returns the failures recorded for one run.
func (s *Store) ListRun(runID string) ([]FailureRecord, error) {
	prefix := runID + "/"
	return s.scan(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(runID + "0"), // '0' sorts right after '/'
	})
}

func (s *Store) scan(opts *pebble.IterOptions) ([]FailureRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("failure store not initialized")
	}

	iter, err := s.db.NewIter(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var out []FailureRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		out = append(out, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return out, nil
}

// CleanupOldRecords removes failures older than maxAge and returns how many
// were deleted.
func (s *Store) CleanupOldRecords(maxAge time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("failure store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var record FailureRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			k := make([]byte, len(iter.Key()))
			copy(k, iter.Key())
			keysToDelete = append(keysToDelete, k)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	for _, k := range keysToDelete {
		if err := s.db.Delete(k, pebble.Sync); err != nil {
			return 0, fmt.Errorf("failed to delete old failure record: %w", err)
		}
	}
	return len(keysToDelete), nil
}

// CheckHealth performs a basic health check on the failure database
func (s *Store) CheckHealth() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("failure database not initialized")
	}
	_, closer, err := s.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
