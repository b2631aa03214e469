package config

import (
	"os"
	"path/filepath"
)

// getDataDir determines the data directory path from environment or default.
// Priority: PIXFORGE_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("PIXFORGE_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDataDir returns the directory holding pixforge's databases, lock file and
// journal. The environment is read on every call so tests and long-running
// commands see changes without a restart.
func GetDataDir() string {
	return getDataDir()
}

// GetCredentialsDBPath returns the full path to the credentials database.
// The credentials database stores access info for publish targets.
// Path: {DATA_DIR}/credentials.db
func GetCredentialsDBPath() string {
	return filepath.Join(GetDataDir(), "credentials.db")
}

// GetFailuresDBPath returns the full path to the failures database.
// Path: {DATA_DIR}/failures.db
func GetFailuresDBPath() string {
	return filepath.Join(GetDataDir(), "failures.db")
}

// GetSuccessDBPath returns the full path to the success database.
// Path: {DATA_DIR}/success.db
func GetSuccessDBPath() string {
	return filepath.Join(GetDataDir(), "success.db")
}

// GetJournalDBPath returns the path of the temp-file journal.
// Path: {DATA_DIR}/journal.db
func GetJournalDBPath() string {
	return filepath.Join(GetDataDir(), "journal.db")
}

// GetLockPath returns the path of the lock file that serializes runs.
func GetLockPath() string {
	return filepath.Join(GetDataDir(), "pixforge.lock")
}
