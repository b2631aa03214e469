// Package success persists per-file results of pixforge runs.
package success

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// SuccessRecord represents one file that a run finished without error.
type SuccessRecord struct {
	RunID          string    `json:"run_id"`
	File           string    `json:"file"`
	Pipeline       string    `json:"pipeline"`
	Outputs        []string  `json:"outputs,omitempty"`
	OriginalBytes  int64     `json:"original_bytes,omitempty"`
	OptimizedBytes int64     `json:"optimized_bytes,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Store is a pebble-backed success log keyed by "<runID>/<file>".
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the success store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open success store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the success store
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// Store records a successful file. RunID and File must be set; a zero
// Timestamp is filled with the current time.
func (s *Store) Store(record SuccessRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("success store not initialized")
	}
	if record.RunID == "" || record.File == "" {
		return fmt.Errorf("success record needs a run id and a file")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal success record: %w", err)
	}
	return s.db.Set([]byte(record.RunID+"/"+record.File), data, pebble.Sync)
}

// Get retrieves a success record. Not found is not an error.
func (s *Store) Get(runID, file string) (*SuccessRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	data, closer, err := s.db.Get([]byte(runID + "/" + file))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	var record SuccessRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal success record: %w", err)
	}
	return &record, nil
}

// Delete removes a success record
func (s *Store) Delete(runID, file string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("success store not initialized")
	}
	return s.db.Delete([]byte(runID+"/"+file), pebble.Sync)
}

// List returns all success records (for admin/debugging)
func (s *Store) List() ([]SuccessRecord, error) {
	return s.scan(&pebble.IterOptions{})
}

// ListRun returns the records of a single run.
func (s *Store) ListRun(runID string) ([]SuccessRecord, error) {
	return s.scan(&pebble.IterOptions{
		LowerBound: []byte(runID + "/"),
		UpperBound: []byte(runID + "0"),
	})
}

func (s *Store) scan(opts *pebble.IterOptions) ([]SuccessRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("success store not initialized")
	}

	iter, err := s.db.NewIter(opts)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []SuccessRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var record SuccessRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			continue // Skip invalid records
		}
		records = append(records, record)
	}
	return records, iter.Error()
}

// CleanupOldRecords removes success records older than the specified duration
// and returns how many were deleted.
func (s *Store) CleanupOldRecords(maxAge time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("success store not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	records, err := s.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.Delete(r.RunID, r.File); err != nil {
			return deleted, fmt.Errorf("failed to delete old success record: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// CheckHealth performs a basic health check on the success database
func (s *Store) CheckHealth() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("success database not initialized")
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
