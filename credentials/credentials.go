// Package credentials stores access info for publish targets, keyed by the
// name a target's credentials_key refers to.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"pixforge/logger"
)

// ErrNotFound is returned when no credentials exist under a key.
var ErrNotFound = errors.New("credentials not found")

// Store is a pebble-backed credential map.
type Store struct {
	db *pebble.DB
}

// Open opens the Pebble DB for credentials at the specified path
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		logger.Errorf("Failed to open Pebble DB: %v", err)
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the DB
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// Get returns the credentials stored under key.
func (s *Store) Get(key string) (map[string]string, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	creds := make(map[string]string)
	if err := json.Unmarshal(value, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials %s: %w", key, err)
	}
	return creds, nil
}

// Put stores the credentials map under the given key
func (s *Store) Put(key string, creds map[string]string) error {
	if key == "" {
		return errors.New("credentials key is empty")
	}
	encodedCreds, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.db.Set([]byte(key), encodedCreds, pebble.Sync)
}

// Merge adds fields to the credentials under key, creating them if needed.
func (s *Store) Merge(key string, fields map[string]string) error {
	current, err := s.Get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current == nil {
		current = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		current[k] = v
	}
	return s.Put(key, current)
}

// Delete deletes the credentials for the given key
func (s *Store) Delete(key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

// Keys lists every stored credentials key.
func (s *Store) Keys() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}
